package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed        = errors.New("token is malformed")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
)

type Claims struct {
	UserID string `json:"user_id"`
	gojwt.RegisteredClaims
}

// KeySource supplies the HMAC signing key. It is consulted on every issue and
// verify so the key can be replaced through configuration.
type KeySource interface {
	SigningKey() []byte
}

type StaticKey []byte

func (k StaticKey) SigningKey() []byte {
	return k
}

// Manager issues and verifies HS256 identity tokens.
type Manager struct {
	keys KeySource
	ttl  time.Duration
	now  func() time.Time
}

func NewManager(keys KeySource, ttl time.Duration) *Manager {
	return &Manager{
		keys: keys,
		ttl:  ttl,
		now:  time.Now,
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) Issue(userID string) (string, error) {
	return generate(userID, m.now(), m.ttl, m.keys.SigningKey())
}

// Verify returns the user id carried by token, or one of ErrMalformed,
// ErrInvalidSignature and ErrExpired.
func (m *Manager) Verify(token string) (string, error) {
	claims, err := parse(token, m.keys.SigningKey(), m.now)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func GenerateToken(userID string, expiration time.Duration, secret string) (string, error) {
	return generate(userID, time.Now(), expiration, []byte(secret))
}

func ValidateToken(token, secret string) (*Claims, error) {
	return parse(token, []byte(secret), time.Now)
}

func generate(userID string, now time.Time, expiration time.Duration, key []byte) (string, error) {
	claims := Claims{
		UserID: userID,
		RegisteredClaims: gojwt.RegisteredClaims{
			IssuedAt:  gojwt.NewNumericDate(now),
			NotBefore: gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(expiration)),
		},
	}

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

func parse(token string, key []byte, now func() time.Time) (*Claims, error) {
	claims := &Claims{}
	_, err := gojwt.ParseWithClaims(token, claims, func(t *gojwt.Token) (interface{}, error) {
		return key, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(now),
	)
	if err != nil {
		return nil, classify(err)
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrMalformed)
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, gojwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, gojwt.ErrTokenSignatureInvalid), errors.Is(err, gojwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, gojwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
