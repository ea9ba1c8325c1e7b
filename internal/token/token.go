// Package token implements the bearer tokens issued by the server: an
// opaque string with an embedded expiry claim. The server signs and
// verifies; clients only read the expiry to decide whether a token is
// still usable before spending a network call on it.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Lifetime is how long an issued token stays valid.
const Lifetime = 30 * 24 * time.Hour

// SkewBuffer is the client-side clock-skew allowance: a token with less
// than this much lifetime left is treated as already expired.
const SkewBuffer = 5 * time.Minute

var (
	ErrMalformed = errors.New("malformed token")
	ErrBadSig    = errors.New("token signature mismatch")
)

// Sign issues a token for userID expiring at expiry.
// Format: base64url(userID).expiryUnix.base64url(hmac-sha256).
func Sign(userID string, expiry time.Time, secret []byte) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(userID)) + "." +
		strconv.FormatInt(expiry.Unix(), 10)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return payload + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Parse extracts the user id and expiry claim without verifying the
// signature. This is the client-side view: the token is opaque except for
// its expiry.
func Parse(tok string) (userID string, expiry time.Time, err error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return "", time.Time{}, ErrMalformed
	}
	idBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	unix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return string(idBytes), time.Unix(unix, 0), nil
}

// Verify checks the signature and expiry server-side. Returns the user id.
func Verify(tok string, secret []byte, now time.Time) (string, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return "", ErrMalformed
	}
	payload := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	want := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(parts[2])) {
		return "", ErrBadSig
	}

	userID, expiry, err := Parse(tok)
	if err != nil {
		return "", err
	}
	if now.After(expiry) {
		return "", fmt.Errorf("token expired at %s", expiry.Format(time.RFC3339))
	}
	return userID, nil
}

// Usable reports whether a token still has more than the skew buffer of
// lifetime left at the given time.
func Usable(tok string, now time.Time) bool {
	_, expiry, err := Parse(tok)
	if err != nil {
		return false
	}
	return now.Add(SkewBuffer).Before(expiry)
}
