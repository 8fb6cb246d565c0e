package operator

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCreds = errors.New("invalid credentials")

// Service authenticates the single configured operator account for the audit
// API. Credentials live in configuration; there is no user table.
type Service struct {
	login        string
	passwordHash []byte
	jwtSecret    []byte
	jwtTTL       time.Duration
}

func NewService(login string, passwordHash []byte, jwtSecret []byte, jwtTTL time.Duration) *Service {
	return &Service{login: login, passwordHash: passwordHash, jwtSecret: jwtSecret, jwtTTL: jwtTTL}
}

func (s *Service) Authenticate(login, password string) (string, error) {
	if login != s.login {
		return "", ErrInvalidCreds
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCreds
	}
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   login,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ValidSubject reports whether subject matches the configured operator. Used
// by the auth middleware when validating tokens.
func (s *Service) ValidSubject(subject string) bool {
	return subject == s.login
}
