package auth

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hailaprogramare/contest-backend/internal/model"
	"github.com/pkg/errors"
)

type TokenType string

const (
	TokenTypeUndefined TokenType = ""
	TokenTypeUser      TokenType = "user"
	TokenTypeAdmin     TokenType = "admin"
)

var TokenSecretKey = os.Getenv("TOKEN_AUTH_SECRET")

type TokenClaims struct {
	Type    TokenType `json:"type"`
	Name    string    `json:"name,omitempty"`
	Email   string    `json:"email,omitempty"`
	Picture string    `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Identity rebuilds the profile carried in a user token.
func (c *TokenClaims) Identity() *model.Identity {
	return &model.Identity{
		Sub:     c.Subject,
		Name:    c.Name,
		Email:   c.Email,
		Picture: c.Picture,
	}
}

// GenerateUserToken issues a session token for a verified identity.
func GenerateUserToken(id *model.Identity, dur time.Duration) (string, error) {
	claims := TokenClaims{
		Type:    TokenTypeUser,
		Name:    id.Name,
		Email:   id.Email,
		Picture: id.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(dur)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	return signClaims(claims)
}

// GenerateAdminToken issues a session token for an authenticated operator.
func GenerateAdminToken(dur time.Duration) (string, error) {
	claims := TokenClaims{
		Type: TokenTypeAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(dur)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	return signClaims(claims)
}

func signClaims(claims TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(TokenSecretKey))
}

func VerifyToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Wrap(ErrInvalidSigningMethod, token.Header["alg"].(string))
		}
		return []byte(TokenSecretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

func IsValidToken(tokenString string) (TokenType, bool) {
	claims, err := VerifyToken(tokenString)
	if err != nil {
		return "", false
	}
	return claims.Type, true
}
