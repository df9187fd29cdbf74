package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

const separator = "."

var (
	ErrMalformed        = fmt.Errorf("malformed token: %w", jwt.ErrTokenMalformed)
	ErrInvalidSignature = fmt.Errorf("invalid token signature: %w", jwt.ErrTokenSignatureInvalid)
	ErrExpired          = fmt.Errorf("token expired: %w", jwt.ErrTokenExpired)

	errInvalidSubject = errors.New("subject is not valid UTF-8")
)

// Claims is the payload carried by a signed token. Field order fixes the
// serialized key order, so the same claims always produce the same bytes.
// Sign refuses a Subject that is not valid UTF-8, since JSON could not carry
// it unchanged.
type Claims struct {
	Subject   string `json:"u"`
	ExpiresAt int64  `json:"exp"`
}

// Expired reports whether the claims expired before now. A token whose
// expiry equals now is still accepted.
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt < now.UnixMilli()
}

type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Sign(claims Claims) (string, error) {
	if !utf8.ValidString(claims.Subject) {
		return "", errInvalidSubject
	}

	raw, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}

	digest, err := s.digest(raw)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw) + separator + base64.RawURLEncoding.EncodeToString(digest), nil
}

// Verify checks the signature and returns the embedded claims as signed.
// Neither expiry nor claim contents are checked here.
func (s *Signer) Verify(tokenStr string) (Claims, error) {
	parts := strings.Split(tokenStr, separator)
	if len(parts) != 2 {
		return Claims{}, ErrMalformed
	}

	raw, err := decodeSegment(parts[0])
	if err != nil {
		return Claims{}, ErrMalformed
	}
	sig, err := decodeSegment(parts[1])
	if err != nil {
		return Claims{}, ErrMalformed
	}

	expected, err := s.digest(raw)
	if err != nil {
		return Claims{}, err
	}
	if !constantTimeEqual(sig, expected) {
		return Claims{}, ErrInvalidSignature
	}

	var claims Claims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}

func (s *Signer) digest(message []byte) ([]byte, error) {
	sig, err := jwt.SigningMethodHS256.Sign(string(message), s.secret)
	if err != nil {
		return nil, fmt.Errorf("compute hmac: %w", err)
	}
	return sig, nil
}

var strictEncoding = base64.RawURLEncoding.Strict()

// decodeSegment accepts unpadded base64url and, for tolerance, padded input.
// Non-zero trailing bits are rejected.
func decodeSegment(segment string) ([]byte, error) {
	segment = strings.TrimRight(segment, "=")
	if segment == "" {
		return nil, errors.New("empty segment")
	}
	return strictEncoding.DecodeString(segment)
}

// constantTimeEqual runs in time dependent only on the lengths of a and b.
func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}

	var out byte
	for i := range a {
		out |= a[i] ^ b[i]
	}
	return out == 0
}
