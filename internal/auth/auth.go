// Package auth verifies API bearer tokens and resolves the acting
// principal. Token issuance lives in the identity service.
package auth

import (
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	order "github.com/vendaro/vendaro/internal/order/domain"
)

var (
	ErrMissingToken = errors.New("missing_token")
	ErrInvalidToken = errors.New("invalid_token")
)

// Claims is the token payload this service accepts. Subject holds the
// principal's snowflake id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken verifies the HMAC signature and maps the claims onto an
// order actor. Unknown roles are rejected rather than defaulted.
func ParseToken(secret, tokenString string) (order.Actor, error) {
	if strings.TrimSpace(secret) == "" {
		return order.Actor{}, ErrInvalidToken
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return order.Actor{}, ErrInvalidToken
	}

	id, err := snowflake.ParseString(claims.Subject)
	if err != nil || id == 0 {
		return order.Actor{}, ErrInvalidToken
	}

	role := order.ActorRole(claims.Role)
	switch role {
	case order.RoleAdmin, order.RoleSeller, order.RoleCustomer:
	default:
		return order.Actor{}, ErrInvalidToken
	}

	return order.Actor{ID: id, Role: role}, nil
}
