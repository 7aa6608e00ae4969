// Package api calls the PDND-protected target and status endpoints with a
// bearer token.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/isprambiente/pdnd-client/internal/observe"
	"github.com/isprambiente/pdnd-client/internal/pdnderr"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Options configure an Invoker. They are fixed for its lifetime.
type Options struct {
	// VerifyTLS enables server certificate verification.
	VerifyTLS bool
	// Verbose writes each request URL, response status and body to
	// Diagnostics.
	Verbose     bool
	Diagnostics io.Writer
	// Transport replaces the base transport, and with it VerifyTLS.
	Transport http.RoundTripper
}

// Response is the outcome of a target API call. Any HTTP status is returned
// to the caller as-is.
type Response struct {
	StatusCode int
	Body       []byte
}

// Invoker performs authenticated GET requests.
type Invoker struct {
	client      *http.Client
	verbose     bool
	diagnostics io.Writer
}

// New creates an Invoker that adds the token from src as a bearer
// Authorization header on every request.
func New(src oauth2.TokenSource, opts Options) *Invoker {
	base := opts.Transport
	if base == nil {
		base = observe.NewBaseTransport(opts.VerifyTLS)
	}

	diagnostics := opts.Diagnostics
	if diagnostics == nil {
		diagnostics = io.Discard
	}

	return &Invoker{
		client: &http.Client{
			Transport: &oauth2.Transport{
				Source: src,
				Base:   base,
			},
		},
		verbose:     opts.Verbose,
		diagnostics: diagnostics,
	}
}

// Call sends a GET to target with the filters appended to its query. An
// empty response body is a pdnderr.TransportFailure.
func (i *Invoker) Call(ctx context.Context, target string, filters Filters) (Response, error) {
	resolved := filters.AppendTo(target)

	status, body, err := i.get(ctx, resolved)
	if err != nil {
		return Response{}, err
	}

	if len(body) == 0 {
		return Response{}, pdnderr.New(pdnderr.TransportFailure, "empty response from %s (HTTP %d)", resolved, status)
	}

	return Response{StatusCode: status, Body: body}, nil
}

// CheckStatus calls the status endpoint. It succeeds only for a 2xx response
// whose body is a JSON object with a "status" member, and returns the decoded
// object.
func (i *Invoker) CheckStatus(ctx context.Context, statusURL string) (map[string]any, error) {
	status, body, err := i.get(ctx, statusURL)
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		return nil, pdnderr.New(pdnderr.InvalidStatusResponse, "status check failed (HTTP %d): %s", status, string(body))
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, pdnderr.Wrap(err, pdnderr.InvalidStatusResponse, "invalid status response: %s", string(body))
	}
	if _, ok := payload["status"]; !ok {
		return nil, pdnderr.New(pdnderr.InvalidStatusResponse, "invalid status response: %s", string(body))
	}

	return payload, nil
}

func (i *Invoker) get(ctx context.Context, target string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, pdnderr.Wrap(err, pdnderr.TransportFailure, "invalid URL %s", target)
	}
	req.Header.Set("Accept", "*/*")

	resp, err := i.client.Do(req)
	if err != nil {
		// token failures surface through the transport unchanged
		if pdnderr.KindOf(err) != "" {
			return 0, nil, err
		}
		return 0, nil, pdnderr.Wrap(err, pdnderr.TransportFailure, "request to %s failed", target)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, pdnderr.Wrap(err, pdnderr.TransportFailure, "reading response from %s failed", target)
	}

	log.Ctx(ctx).Debug().
		Str("url", target).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("api responded")

	if i.verbose {
		i.describe(target, resp.StatusCode, body)
	}

	return resp.StatusCode, body, nil
}

// describe writes the exchange to the diagnostics writer. Bodies that are not
// JSON are written unchanged.
func (i *Invoker) describe(target string, status int, body []byte) {
	fmt.Fprintf(i.diagnostics, "URL: %s\n", target)
	fmt.Fprintf(i.diagnostics, "HTTP status: %d\n", status)
	_, _ = i.diagnostics.Write(Pretty(body))
	fmt.Fprintln(i.diagnostics)
}

// Pretty indents a JSON body. Anything else is returned unchanged.
func Pretty(body []byte) []byte {
	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		return body
	}
	return out.Bytes()
}
