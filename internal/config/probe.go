package config

import (
	"context"
	"net/http"
	"time"

	"github.com/isprambiente/pdnd-client/internal/pdnderr"
	"github.com/rs/zerolog/log"
)

// ProbeTimeout bounds a reachability probe. No other network call has a
// timeout.
const ProbeTimeout = 10 * time.Second

// Probe checks that url answers a HEAD request with a status in [200,400).
// Any other status, or no response at all, is pdnderr.URLUnreachable. An
// empty url is not probed.
func Probe(ctx context.Context, client *http.Client, url string) error {
	if url == "" {
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return pdnderr.Wrap(err, pdnderr.URLUnreachable, "URL unreachable or invalid: %s", url)
	}

	resp, err := client.Do(req)
	if err != nil {
		return pdnderr.Wrap(err, pdnderr.URLUnreachable, "URL unreachable or invalid: %s", url)
	}
	defer resp.Body.Close()

	log.Ctx(ctx).Debug().Str("url", url).Int("status", resp.StatusCode).Msg("probe complete")

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return pdnderr.New(pdnderr.URLUnreachable, "URL unreachable or invalid: %s (HTTP %d)", url, resp.StatusCode)
	}

	return nil
}
