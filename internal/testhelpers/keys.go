package testhelpers

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// RSAKey wraps an RSA key pair used to sign client assertions in tests.
type RSAKey struct {
	privateKey *rsa.PrivateKey
}

// NewRSAKey generates an RSA 2048-bit key pair.
func NewRSAKey(t *testing.T) RSAKey {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "failed to generate private key")

	return RSAKey{privateKey: privateKey}
}

// PrivateKey returns the raw *rsa.PrivateKey.
func (k RSAKey) PrivateKey() *rsa.PrivateKey {
	return k.privateKey
}

// PublicKey returns the public half of the pair.
func (k RSAKey) PublicKey() *rsa.PublicKey {
	return &k.privateKey.PublicKey
}

// PKCS1PEM returns the private key encoded as a PKCS#1 PEM block.
func (k RSAKey) PKCS1PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(k.privateKey),
	})
}

// PKCS8PEM returns the private key encoded as a PKCS#8 PEM block.
func (k RSAKey) PKCS8PEM(t *testing.T) []byte {
	t.Helper()

	der, err := x509.MarshalPKCS8PrivateKey(k.privateKey)
	require.NoError(t, err, "failed to marshal PKCS#8 key")

	return pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: der,
	})
}

// WritePEM writes the PKCS#1 private key to a file in a temporary directory
// and returns its path.
func (k RSAKey) WritePEM(t *testing.T) string {
	t.Helper()
	return WriteFile(t, "private.pem", k.PKCS1PEM())
}

// ECKeyPEM returns a PEM encoded EC private key, which is not usable for
// RS256.
func ECKeyPEM(t *testing.T) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
}

// WriteFile writes content to name in a fresh temporary directory.
func WriteFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, content, 0o600)
	require.NoError(t, err)

	return path
}

// UnsignedJWT builds a token with the given payload claims and a dummy
// signature. The exchange never verifies the access token signature, so this
// is enough to exercise expiry extraction.
func UnsignedJWT(t *testing.T, claims map[string]any) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"at+jwt"}`))

	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	return strings.Join([]string{
		header,
		base64.RawURLEncoding.EncodeToString(payload),
		"c2lnbmF0dXJl",
	}, ".")
}

// DecodeSegment decodes one base64url segment of a compact JWT into a map.
func DecodeSegment(t *testing.T, token string, index int) map[string]any {
	t.Helper()

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3, "token should have three segments")

	raw, err := base64.RawURLEncoding.DecodeString(parts[index])
	require.NoError(t, err)

	decoded := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	return decoded
}
