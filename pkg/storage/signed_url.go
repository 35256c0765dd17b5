package storage

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

// Token verification failures.
var (
	ErrTokenInvalid = errors.New("download token invalid")
	ErrTokenExpired = errors.New("download token expired")
)

// Grant is what a download token authorises: one stored file of one job.
type Grant struct {
	JobID     string
	Path      string
	ExpiresAt time.Time
}

// Signer issues and verifies HMAC-SHA256 download tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer with the provided secret and TTL.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token granting access to path for jobID until the TTL elapses.
func (s *Signer) Sign(jobID, path string) (string, time.Time, error) {
	if jobID == "" || path == "" {
		return "", time.Time{}, fmt.Errorf("job id and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).UTC().Truncate(time.Second)
	payload := strings.Join([]string{jobID, strconv.FormatInt(expiresAt.Unix(), 10), path}, "\n")
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return encoded + "." + s.mac(encoded), expiresAt, nil
}

// Verify checks the signature and expiry of token. Expired tokens still
// return their grant alongside ErrTokenExpired so cleanup can locate files.
func (s *Signer) Verify(token string) (Grant, error) {
	encoded, signature, ok := strings.Cut(token, ".")
	if !ok || !hmac.Equal([]byte(signature), []byte(s.mac(encoded))) {
		return Grant{}, ErrTokenInvalid
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Grant{}, ErrTokenInvalid
	}
	parts := strings.SplitN(string(raw), "\n", 3)
	if len(parts) != 3 {
		return Grant{}, ErrTokenInvalid
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Grant{}, ErrTokenInvalid
	}
	grant := Grant{JobID: parts[0], Path: parts[2], ExpiresAt: time.Unix(exp, 0).UTC()}
	if s.now().After(grant.ExpiresAt) {
		return grant, ErrTokenExpired
	}
	return grant, nil
}

func (s *Signer) mac(encoded string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
