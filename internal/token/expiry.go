package token

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"strings"
)

// ExpiryFromToken reads the "exp" claim from the payload segment of a compact
// JWT. The signature is not verified: the token was just issued by the
// authorization server the client trusts. It returns false when the token
// does not have exactly three segments, the payload does not decode, or it
// has no numeric exp.
func ExpiryFromToken(raw string) (int64, bool) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return 0, false
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return 0, false
	}

	var claims struct {
		Exp *json.Number `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil || claims.Exp == nil {
		return 0, false
	}

	if exp, err := claims.Exp.Int64(); err == nil {
		return exp, true
	}

	f, err := claims.Exp.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

// decodeSegment accepts base64url with or without padding.
func decodeSegment(seg string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(seg, "="))
}
