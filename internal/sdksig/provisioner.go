package sdksig

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

const passwordAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Session is the external conferencing session a meeting runs in.
type Session struct {
	Number   string
	Password string
}

// Provisioner allocates external sessions.
type Provisioner interface {
	Provision(ctx context.Context) (Session, error)
}

// RandomProvisioner allocates numeric session numbers and random passwords
// locally, the way personal-room style SDK sessions are addressed.
type RandomProvisioner struct {
	PasswordLength int
}

func NewRandomProvisioner() *RandomProvisioner {
	return &RandomProvisioner{PasswordLength: 10}
}

func (p *RandomProvisioner) Provision(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	// 10 or 11 digits: [1e9, 1e11)
	span := new(big.Int).Sub(big.NewInt(100_000_000_000), big.NewInt(1_000_000_000))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return Session{}, fmt.Errorf("session number: %w", err)
	}
	number := new(big.Int).Add(n, big.NewInt(1_000_000_000))

	length := p.PasswordLength
	if length <= 0 {
		length = 10
	}
	password := make([]byte, length)
	alphabet := big.NewInt(int64(len(passwordAlphabet)))
	for i := range password {
		idx, err := rand.Int(rand.Reader, alphabet)
		if err != nil {
			return Session{}, fmt.Errorf("session password: %w", err)
		}
		password[i] = passwordAlphabet[idx.Int64()]
	}

	return Session{Number: number.String(), Password: string(password)}, nil
}
