// Package jointoken issues and validates booking-scoped visitor join tokens.
//
// Tokens are HS256 JWTs carrying the booking id in a "bid" claim. Validation
// needs nothing but the signing secret.
package jointoken

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformed       = errors.New("join token is malformed")
	ErrSignature       = errors.New("join token signature is invalid")
	ErrExpired         = errors.New("join token has expired")
	ErrBookingMismatch = errors.New("join token was issued for another booking")
)

type Claims struct {
	BookingID uint `json:"bid"`
	jwt.RegisteredClaims
}

func (c Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

type Token struct {
	BookingID uint      `json:"booking_id"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	Expiry    time.Time `json:"expiry"`
}

type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	if secret == "" {
		panic("jointoken: secret is required")
	}
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *Signer) String() string   { return "jointoken.Signer{secret:[redacted]}" }
func (s *Signer) GoString() string { return s.String() }

func (s *Signer) Issue(bookingID uint) (Token, error) {
	now := s.now().UTC().Truncate(time.Second)
	claims := Claims{
		BookingID: bookingID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{
		BookingID: bookingID,
		Token:     signed,
		IssuedAt:  now,
		Expiry:    claims.Expiry().UTC(),
	}, nil
}

// Validate checks integrity, expiry and the booking binding of token.
func (s *Signer) Validate(token string, bookingID uint) (Claims, error) {
	claims, err := s.Parse(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.BookingID != bookingID {
		return Claims{}, ErrBookingMismatch
	}
	return claims, nil
}

// Parse verifies signature and expiry without checking the booking.
func (s *Signer) Parse(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Claims{}, ErrSignature
	case err != nil:
		return Claims{}, ErrMalformed
	}
	if claims.BookingID == 0 {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}
