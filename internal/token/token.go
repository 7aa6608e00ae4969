// Package token obtains PDND access tokens: it exchanges a client assertion at
// the authorization server and decides when a cached token can be reused.
package token

import (
	"time"
)

// AccessToken is a bearer token and, when the token carried one, its expiry
// in Unix seconds. It is stored as-is in the token cache file.
type AccessToken struct {
	Token  string `json:"token"`
	Expiry *int64 `json:"exp"`
}

// NewAccessToken extracts the expiry from raw.
func NewAccessToken(raw string) AccessToken {
	t := AccessToken{Token: raw}
	if exp, ok := ExpiryFromToken(raw); ok {
		t.Expiry = &exp
	}
	return t
}

// ExpiryTime returns the expiry, if known.
func (t AccessToken) ExpiryTime() (time.Time, bool) {
	if t.Expiry == nil {
		return time.Time{}, false
	}
	return time.Unix(*t.Expiry, 0), true
}

// ValidAt reports whether the expiry is known and strictly after now. It is a
// local check only: a token with an unknown expiry is never valid here.
func (t AccessToken) ValidAt(now time.Time) bool {
	if t.Token == "" || t.Expiry == nil {
		return false
	}
	return *t.Expiry > now.Unix()
}

// Valid is ValidAt the current time.
func (t AccessToken) Valid() bool {
	return t.ValidAt(time.Now())
}

// IsZero reports whether t holds no token. The file cache treats a zero
// record as no cached token.
func (t AccessToken) IsZero() bool {
	return t.Token == ""
}
