package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/schoolpulse/comms/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Principal is the authenticated identity carried by a bearer token.
// The identity service signs these; the messaging core only verifies.
type Principal struct {
	UserID string
	Name   string
	Role   models.Role
	Unit   string
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates an HMAC-signed token and extracts the
// principal claims (sub, name, role, unit).
func (v *Verifier) Verify(tokenStr string) (Principal, error) {
	if tokenStr == "" {
		return Principal{}, ErrInvalidToken
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Principal{}, ErrInvalidToken
	}
	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)
	unit, _ := claims["unit"].(string)
	return Principal{
		UserID: sub,
		Name:   name,
		Role:   models.ParseRole(role),
		Unit:   unit,
	}, nil
}

// Sign issues a token for a principal. Used by tests and dev tooling;
// production tokens come from the identity service with the same secret.
func (v *Verifier) Sign(p Principal) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  p.UserID,
		"name": p.Name,
		"role": p.Role.String(),
		"unit": p.Unit,
	})
	return token.SignedString(v.secret)
}
