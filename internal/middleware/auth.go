package middleware

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/service"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/argon2"
)

const (
	HeaderOperatorKey = "X-Operator-Key"
	HeaderJoinToken   = "X-Join-Token"
	QueryJoinToken    = "token"

	principalKey = "principal"
)

var (
	ErrInvalidKeyHash       = errors.New("invalid operator key hash format")
	ErrIncompatibleKeyHash  = errors.New("incompatible operator key hash version")
	ErrOperatorKeyMismatch  = errors.New("operator key does not match")
	errMissingCredentials   = echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	errInvalidOperatorKey   = echo.NewHTTPError(http.StatusUnauthorized, "invalid operator key")
	errOperatorOnlyEndpoint = echo.NewHTTPError(http.StatusForbidden, "operator access required")
)

type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// HashOperatorKey produces the value stored in OPERATOR_KEY_HASH.
func HashOperatorKey(key string, params Argon2idParams) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(key), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	// Format is $argon2id$v=...$m=...,t=...,p=...$salt$hash
	format := "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"
	return fmt.Sprintf(format, argon2.Version, params.Memory, params.Iterations, params.Parallelism, b64Salt, b64Hash), nil
}

func VerifyOperatorKey(encoded, key string) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return ErrInvalidKeyHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return ErrInvalidKeyHash
	}
	if version != argon2.Version {
		return ErrIncompatibleKeyHash
	}

	var params Argon2idParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return ErrInvalidKeyHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ErrInvalidKeyHash
	}
	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return ErrInvalidKeyHash
	}

	comparisonHash := argon2.IDKey([]byte(key), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(decodedHash)))
	if subtle.ConstantTimeCompare(decodedHash, comparisonHash) == 1 {
		return nil
	}
	return ErrOperatorKeyMismatch
}

// Auth authenticates operators by X-Operator-Key and visitors by join token.
// A verified key is remembered by digest so argon2 runs once per key.
type Auth struct {
	keyHash string

	mu       sync.RWMutex
	verified map[[sha256.Size]byte]struct{}
}

func NewAuth(keyHash string) *Auth {
	return &Auth{keyHash: keyHash, verified: make(map[[sha256.Size]byte]struct{})}
}

func (a *Auth) isOperator(key string) bool {
	if key == "" || a.keyHash == "" {
		return false
	}
	digest := sha256.Sum256([]byte(key))
	a.mu.RLock()
	_, ok := a.verified[digest]
	a.mu.RUnlock()
	if ok {
		return true
	}
	if VerifyOperatorKey(a.keyHash, key) != nil {
		return false
	}
	a.mu.Lock()
	a.verified[digest] = struct{}{}
	a.mu.Unlock()
	return true
}

// Operator admits only requests carrying a valid operator key.
func (a *Auth) Operator(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Header.Get(HeaderOperatorKey)
		if key == "" {
			if joinToken(c) != "" {
				return errOperatorOnlyEndpoint
			}
			return errMissingCredentials
		}
		if !a.isOperator(key) {
			return errInvalidOperatorKey
		}
		c.Set(principalKey, service.Principal{Role: models.RoleOperator})
		return next(c)
	}
}

// Participant admits operators and visitors. Visitor tokens are only checked
// for presence here; handlers bind them to the meeting being accessed.
func (a *Auth) Participant(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if key := c.Request().Header.Get(HeaderOperatorKey); key != "" {
			if !a.isOperator(key) {
				return errInvalidOperatorKey
			}
			c.Set(principalKey, service.Principal{Role: models.RoleOperator})
			return next(c)
		}
		token := joinToken(c)
		if token == "" {
			return errMissingCredentials
		}
		c.Set(principalKey, service.Principal{Role: models.RoleVisitor, Token: token})
		return next(c)
	}
}

// Visitor requires a join token and never treats the caller as an operator.
func Visitor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := joinToken(c)
		if token == "" {
			return errMissingCredentials
		}
		c.Set(principalKey, service.Principal{Role: models.RoleVisitor, Token: token})
		return next(c)
	}
}

// PrincipalFrom returns the caller set by one of the auth middlewares.
func PrincipalFrom(c echo.Context) (service.Principal, bool) {
	p, ok := c.Get(principalKey).(service.Principal)
	return p, ok
}

func joinToken(c echo.Context) string {
	if t := strings.TrimSpace(c.Request().Header.Get(HeaderJoinToken)); t != "" {
		return t
	}
	return strings.TrimSpace(c.QueryParam(QueryJoinToken))
}
