package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// Principal is the verified identity extracted from a credential. The
// gateway only verifies tokens; the auth backend issues them.
type Principal struct {
	Subject   string
	Claims    map[string]interface{}
	ExpiresAt time.Time
}

//go:generate mockery --name=Verifier --dir=. --output=mocks/ --filename=verifier_mock.go --case=underscore --with-expecter
type (
	Verifier interface {
		Verify(tokenString string) (*Principal, error)
	}
	verifier struct {
		secretKey []byte
	}
)

func NewVerifier(secretKey string) Verifier {
	return &verifier{secretKey: []byte(secretKey)}
}

func (v *verifier) Verify(tokenString string) (*Principal, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return v.secretKey, nil
		},
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	principal := &Principal{Claims: claims}
	if sub, err := claims.GetSubject(); err == nil {
		principal.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		principal.ExpiresAt = exp.Time
	}

	return principal, nil
}
