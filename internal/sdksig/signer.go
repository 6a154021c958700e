// Package sdksig signs the short-lived join credentials consumed by the video
// SDK and provisions the external session each meeting runs in.
package sdksig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role int

const (
	RoleAttendee Role = 0
	RoleHost     Role = 1
)

func (r Role) Valid() bool {
	return r == RoleAttendee || r == RoleHost
}

func (r Role) String() string {
	switch r {
	case RoleAttendee:
		return "attendee"
	case RoleHost:
		return "host"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// The vendor SDK rejects signatures living shorter than 30 minutes or longer than 48 hours.
const (
	minTTL = 30 * time.Minute
	maxTTL = 48 * time.Hour
)

var (
	ErrInvalidRole    = errors.New("sdk signature role must be 0 (attendee) or 1 (host)")
	ErrInvalidSession = errors.New("sdk session number is required")
	ErrMalformed      = errors.New("sdk signature is malformed")
	ErrBadSignature   = errors.New("sdk signature does not verify")
	ErrExpired        = errors.New("sdk signature has expired")
)

type Claims struct {
	SDKKey    string `json:"sdkKey"`
	AppKey    string `json:"appKey"`
	Session   string `json:"mn"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	TokenExp  int64  `json:"tokenExp"`
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

func (c Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c Claims) GetIssuer() (string, error)              { return "", nil }
func (c Claims) GetSubject() (string, error)             { return "", nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }

type Signature struct {
	Signature     string    `json:"signature"`
	SDKKey        string    `json:"sdk_key"`
	SessionNumber string    `json:"session_number"`
	Role          Role      `json:"role"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Signer produces HS256 JWT signatures. The secret stays inside the struct and
// is redacted from every textual representation.
type Signer struct {
	sdkKey string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(sdkKey, secret string, ttl time.Duration) *Signer {
	if sdkKey == "" || secret == "" {
		panic("sdksig: sdk key and secret are required")
	}
	if ttl < minTTL {
		ttl = minTTL
	}
	if ttl > maxTTL {
		ttl = maxTTL
	}
	return &Signer{sdkKey: sdkKey, secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *Signer) SDKKey() string { return s.sdkKey }

func (s *Signer) String() string   { return fmt.Sprintf("sdksig.Signer{sdkKey:%s secret:[redacted]}", s.sdkKey) }
func (s *Signer) GoString() string { return s.String() }

func (s *Signer) Sign(sessionNumber string, role Role) (Signature, error) {
	sessionNumber = strings.TrimSpace(sessionNumber)
	if sessionNumber == "" {
		return Signature{}, ErrInvalidSession
	}
	if !role.Valid() {
		return Signature{}, ErrInvalidRole
	}

	now := s.now().UTC().Truncate(time.Second)
	exp := now.Add(s.ttl)
	claims := Claims{
		SDKKey:    s.sdkKey,
		AppKey:    s.sdkKey,
		Session:   sessionNumber,
		Role:      role,
		IssuedAt:  now.Unix(),
		ExpiresAt: exp.Unix(),
		TokenExp:  exp.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Signature{}, fmt.Errorf("sign sdk claims: %w", err)
	}
	return Signature{
		Signature:     signed,
		SDKKey:        s.sdkKey,
		SessionNumber: sessionNumber,
		Role:          role,
		ExpiresAt:     exp,
	}, nil
}

// Verify checks a signature produced by Sign and rejects it once expired.
func (s *Signer) Verify(signature string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(signature, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Claims{}, ErrBadSignature
	default:
		return Claims{}, ErrMalformed
	}
}
