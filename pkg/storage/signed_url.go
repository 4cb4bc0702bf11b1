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

var (
	// ErrInvalidToken covers malformed or tampered tokens.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrExpiredToken is returned once a token's lifetime has passed.
	ErrExpiredToken = errors.New("download token expired")
)

// SignedURLSigner issues short-lived HMAC tokens naming an upload.
// Token layout: base64url(uploadID) "." unix-expiry "." base64url(hmac).
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token for uploadID and its expiry.
func (s *SignedURLSigner) Generate(uploadID string) (string, time.Time, error) {
	if uploadID == "" {
		return "", time.Time{}, fmt.Errorf("upload id required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).UTC().Truncate(time.Second)
	id := base64.RawURLEncoding.EncodeToString([]byte(uploadID))
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	return strings.Join([]string{id, exp, s.sign(id, exp)}, "."), expiresAt, nil
}

// Parse verifies a token and returns the upload it names.
func (s *SignedURLSigner) Parse(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrInvalidToken
	}
	id, exp, signature := parts[0], parts[1], parts[2]
	if !hmac.Equal([]byte(s.sign(id, exp)), []byte(signature)) {
		return "", ErrInvalidToken
	}

	unix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}
	if s.now().After(time.Unix(unix, 0)) {
		return "", ErrExpiredToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil || len(raw) == 0 {
		return "", ErrInvalidToken
	}
	return string(raw), nil
}

func (s *SignedURLSigner) sign(id, exp string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(id + "|" + exp))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
