package auth

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"

	"github.com/trezcool/academia/core/user"
)

const audience = "Academia"

// Claims represents the authorization claims transmitted via a JWT.
// Everything the holder may learn about the session is here; nothing else
// is disclosed.
type Claims struct {
	jwt.StandardClaims
	Role   user.Role `json:"role,omitempty"`
	Name   string    `json:"name,omitempty"`
	Email  string    `json:"email,omitempty"`
	Avatar string    `json:"avatar,omitempty"`
}

// NewClaims builds session claims for an authenticated User.
// Each call gets a fresh token ID, so two tokens issued for the same
// identity always differ.
func NewClaims(usr user.User, issuer string, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    issuer,
			Subject:   usr.ID,
			Audience:  audience,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
		Role:   usr.Role,
		Name:   usr.Name,
		Email:  usr.Email,
		Avatar: usr.Avatar,
	}
}

// Identity reconstructs the session's identity view from verified claims.
func (c *Claims) Identity() user.User {
	return user.User{
		ID:     c.Subject,
		Name:   c.Name,
		Email:  c.Email,
		Role:   c.Role,
		Avatar: c.Avatar,
	}
}

// SignToken generates a signed JWT token string representing the Claims.
func SignToken(claims *Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyToken validates a token string's integrity and expiry and recovers
// the Claims. It is pure and safe for concurrent use.
func VerifyToken(raw string, secret []byte) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTamperedToken
		}
		return secret, nil
	})
	if err != nil {
		if vErr, ok := err.(*jwt.ValidationError); ok {
			switch {
			case vErr.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, ErrMalformedToken
			case vErr.Errors&(jwt.ValidationErrorSignatureInvalid|jwt.ValidationErrorUnverifiable) != 0:
				return nil, ErrTamperedToken
			case vErr.Errors&jwt.ValidationErrorExpired != 0:
				return nil, ErrExpiredToken
			}
		}
		return nil, ErrMalformedToken
	}
	if !token.Valid {
		return nil, ErrMalformedToken
	}
	// reject roles outside the closed set, whatever the token says
	if !claims.Role.Valid() {
		return nil, ErrMalformedToken
	}
	return claims, nil
}
