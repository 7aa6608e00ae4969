// Package assertion builds the signed client assertion that authenticates
// the client to the PDND token endpoint (JWT-bearer client assertion,
// RFC 7523).
package assertion

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"time"

	"github.com/isprambiente/pdnd-client/internal/config"
	"github.com/isprambiente/pdnd-client/internal/pdnderr"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Lifetime is the validity period written into every assertion.
const Lifetime = 30 * 24 * time.Hour

// PurposeIDClaim is the private claim carrying the purpose the token is
// requested for.
const PurposeIDClaim = "purposeId"

// Signer creates client assertions for a single set of credentials and
// authorization server.
type Signer struct {
	signingKey any // jwk.Key or kmsKey
	kid        string
	issuer     string
	audience   string
	purposeID  string

	now    func() time.Time
	random io.Reader
}

// SignerOption customises a Signer, mostly for tests.
type SignerOption func(*Signer)

// WithClock replaces the time source used for iat and exp.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// WithRandom replaces the source of the jti bytes.
func WithRandom(r io.Reader) SignerOption {
	return func(s *Signer) {
		s.random = r
	}
}

// NewSigner loads the private key named by the credentials. Any failure to
// obtain the key is a pdnderr.SigningFailure.
func NewSigner(ctx context.Context, creds config.Credentials, profile config.Profile, opts ...SignerOption) (*Signer, error) {
	key, err := LoadSigningKey(ctx, creds.PrivateKeyPath)
	if err != nil {
		return nil, pdnderr.Wrap(err, pdnderr.SigningFailure, "client assertion signing key unavailable")
	}

	return NewSignerWithKey(key, creds, profile, opts...), nil
}

// NewSignerWithKey creates a Signer for an already loaded key.
func NewSignerWithKey(signingKey any, creds config.Credentials, profile config.Profile, opts ...SignerOption) *Signer {
	s := &Signer{
		signingKey: signingKey,
		kid:        creds.Kid,
		issuer:     creds.Issuer,
		audience:   profile.Audience,
		purposeID:  creds.PurposeID,
		now:        time.Now,
		random:     rand.Reader,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Sign returns a freshly signed assertion. The subject is the issuer, and
// each assertion carries a new random jti.
func (s *Signer) Sign() (string, error) {
	jti, err := s.newJTI()
	if err != nil {
		return "", pdnderr.Wrap(err, pdnderr.SigningFailure, "could not generate jti")
	}

	// whole seconds, so that exp-iat is exactly the lifetime
	issuedAt := s.now().Truncate(time.Second)

	token, err := jwt.NewBuilder().
		Issuer(s.issuer).
		Subject(s.issuer).
		Audience([]string{s.audience}).
		JwtID(jti).
		IssuedAt(issuedAt).
		Expiration(issuedAt.Add(Lifetime)).
		Claim(PurposeIDClaim, s.purposeID).
		Build()
	if err != nil {
		return "", pdnderr.Wrap(err, pdnderr.SigningFailure, "could not build client assertion claims")
	}

	headers := jws.NewHeaders()
	if err := headers.Set(jws.KeyIDKey, s.kid); err != nil {
		return "", pdnderr.Wrap(err, pdnderr.SigningFailure, "could not set kid header")
	}
	if err := headers.Set(jws.TypeKey, "JWT"); err != nil {
		return "", pdnderr.Wrap(err, pdnderr.SigningFailure, "could not set typ header")
	}

	// RS256 - key type determines signing behavior via delegatingSigner
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256(), s.signingKey, jws.WithProtectedHeaders(headers)))
	if err != nil {
		return "", pdnderr.Wrap(err, pdnderr.SigningFailure, "could not sign client assertion")
	}

	return string(signed), nil
}

func (s *Signer) newJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := io.ReadFull(s.random, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
