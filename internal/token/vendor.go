package token

import (
	"context"
	"fmt"
	"time"

	"github.com/isprambiente/pdnd-client/internal/cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Vendor returns an access token, from the authorization server or a cache.
type Vendor func(ctx context.Context) (AccessToken, error)

// AssertionSigner creates a new signed client assertion on each call.
type AssertionSigner interface {
	Sign() (string, error)
}

// NewVendor signs a fresh assertion and exchanges it on every call.
func NewVendor(signer AssertionSigner, exchanger *Exchanger, clientID string) Vendor {
	return func(ctx context.Context) (AccessToken, error) {
		assertion, err := signer.Sign()
		if err != nil {
			return AccessToken{}, err
		}

		log.Ctx(ctx).Debug().Msg("client assertion created")

		return exchanger.Exchange(ctx, clientID, assertion)
	}
}

// Cached supplies a vendor that reuses the token stored under key while its
// local validity check passes, and stores every newly vended token. The cache
// is non-locking: concurrent runs for the same key may both exchange, and the
// last write wins.
func Cached(store cache.TokenCache[AccessToken], key string, now func() time.Time) func(Vendor) Vendor {
	if now == nil {
		now = time.Now
	}

	return func(v Vendor) Vendor {
		return func(ctx context.Context) (AccessToken, error) {
			cached, found, err := store.Get(ctx, key)
			if err != nil {
				// an unreadable cache only costs an exchange
				log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("token cache read failed")
			}

			if found && cached.ValidAt(now()) {
				exp, _ := cached.ExpiryTime()
				log.Ctx(ctx).Debug().Time("expiry", exp).Str("key", key).Msg("hit: cached token still valid")
				return cached, nil
			}
			if found {
				log.Ctx(ctx).Debug().Str("key", key).Msg("cached token expired or without expiry")
			}

			token, err := v(ctx)
			if err != nil {
				return AccessToken{}, err
			}

			if err := store.Set(ctx, key, token); err != nil {
				return AccessToken{}, fmt.Errorf("saving token: %w", err)
			}

			return token, nil
		}
	}
}

// vendorSource adapts a Vendor to oauth2.TokenSource.
type vendorSource struct {
	ctx    context.Context
	vendor Vendor
}

func (s vendorSource) Token() (*oauth2.Token, error) {
	t, err := s.vendor(s.ctx)
	if err != nil {
		return nil, err
	}

	return t.OAuth2(), nil
}

// NewTokenSource returns a TokenSource backed by v. The token is reused for
// the life of the source; a token without a known expiry is never refreshed
// by the source itself.
func NewTokenSource(ctx context.Context, v Vendor) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, vendorSource{ctx: ctx, vendor: v})
}

// OAuth2 converts t for use with golang.org/x/oauth2 transports.
func (t AccessToken) OAuth2() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken: t.Token,
		TokenType:   "Bearer",
	}
	if exp, ok := t.ExpiryTime(); ok {
		tok.Expiry = exp
	}
	return tok
}
