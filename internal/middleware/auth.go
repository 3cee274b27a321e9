// Package middleware provides authentication, logging, rate limiting and
// tracing middleware for the Fiber app.
package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Token issuer and audience stamped on every access token.
const (
	TokenIssuer   = "flock-api"
	TokenAudience = "flock-client"
)

var (
	// ErrInvalidToken covers signature, expiry and structural failures.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidIssuer is returned when iss or aud do not match.
	ErrInvalidIssuer = errors.New("invalid token issuer or audience")
	// ErrInvalidSubject is returned when sub is not a user ID.
	ErrInvalidSubject = errors.New("invalid subject claim")
)

// AccessClaims is the verified content of a bearer token.
type AccessClaims struct {
	UserID    uint
	Username  string
	JTI       string
	ExpiresAt time.Time
}

// BearerToken extracts the token from "Authorization: Bearer <token>". When
// allowQuery is set it falls back to the ?token= parameter, which browsers need
// for websocket upgrades.
func BearerToken(c *fiber.Ctx, allowQuery bool) string {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	if allowQuery {
		return c.Query("token")
	}
	return ""
}

// ParseAccessToken validates an HS256 token and returns its claims.
func ParseAccessToken(tokenString, secret string) (*AccessClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != TokenIssuer {
		return nil, ErrInvalidIssuer
	}
	audience, err := claims.GetAudience()
	if err != nil || !containsString(audience, TokenAudience) {
		return nil, ErrInvalidIssuer
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidSubject
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidSubject
	}

	out := &AccessClaims{UserID: uint(userID)}
	out.Username, _ = claims["username"].(string)
	out.JTI, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
