package token

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/isprambiente/pdnd-client/internal/pdnderr"
	"github.com/rs/zerolog/log"
)

const (
	ClientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
	GrantType           = "client_credentials"
)

// Exchanger trades a client assertion for an access token at a PDND token
// endpoint.
type Exchanger struct {
	client   *http.Client
	endpoint string
}

// NewExchanger creates an Exchanger for endpoint. A nil client uses
// http.DefaultClient. No timeout is applied beyond the client's own.
func NewExchanger(client *http.Client, endpoint string) *Exchanger {
	if client == nil {
		client = http.DefaultClient
	}

	return &Exchanger{
		client:   client,
		endpoint: endpoint,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Exchange posts the client credentials grant with the JWT-bearer client
// assertion. Only HTTP 200 succeeds: any other status is a
// pdnderr.TokenExchangeFailure carrying the response body, as is a 200
// response without an access_token. Failures to get any response are
// pdnderr.TransportFailure.
func (e *Exchanger) Exchange(ctx context.Context, clientID string, clientAssertion string) (AccessToken, error) {
	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("client_assertion", clientAssertion)
	form.Set("client_assertion_type", ClientAssertionType)
	form.Set("grant_type", GrantType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return AccessToken{}, pdnderr.Wrap(err, pdnderr.TransportFailure, "invalid token endpoint %s", e.endpoint)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		return AccessToken{}, pdnderr.Wrap(err, pdnderr.TransportFailure, "token request to %s failed", e.endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return AccessToken{}, pdnderr.Wrap(err, pdnderr.TransportFailure, "reading token response from %s failed", e.endpoint)
	}

	log.Ctx(ctx).Debug().
		Str("endpoint", e.endpoint).
		Int("status", resp.StatusCode).
		Msg("token endpoint responded")

	if resp.StatusCode != http.StatusOK {
		return AccessToken{}, pdnderr.New(pdnderr.TokenExchangeFailure,
			"token request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.AccessToken == "" {
		return AccessToken{}, pdnderr.New(pdnderr.TokenExchangeFailure, "no access token in response: %s", string(body))
	}

	token := NewAccessToken(parsed.AccessToken)

	ev := log.Ctx(ctx).Debug()
	if exp, ok := token.ExpiryTime(); ok {
		ev = ev.Time("expiry", exp.In(time.Local))
	} else {
		ev = ev.Str("expiry", "unknown")
	}
	ev.Msg("access token issued")

	return token, nil
}
