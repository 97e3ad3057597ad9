package http

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/tastevin/tastevin/internal/domain"
)

var (
	ErrInvalidSigningMethod = errors.New("invalid-signing-method")
	ErrCorruptedToken       = errors.New("corrupted-token")
)

type identityClaims struct {
	DisplayName string `json:"name"`
	AvatarURL   string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// IdentityMiddleware resolves the auth cookie into a verified user and
// stores it on the request context. No cookie or a bad token simply
// means an anonymous viewer; the socket layer downgrades those to
// read-only.
func IdentityMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie("auth")
		if err != nil || raw == "" {
			c.Next()
			return
		}
		user, err := parseIdentity(raw, secret)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("auth cookie rejected")
			c.Next()
			return
		}
		c.Set("user", user)
		c.Next()
	}
}

func parseIdentity(raw, secret string) (*domain.User, error) {
	var claims identityClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid || claims.Subject == "" || len(claims.Subject) > domain.MaxUserIDLen {
		return nil, ErrCorruptedToken
	}
	name := claims.DisplayName
	if name == "" {
		name = "guest"
	}
	if len(name) > domain.MaxDisplayNameLen {
		name = name[:domain.MaxDisplayNameLen]
	}
	return &domain.User{
		ID:          domain.UserID(claims.Subject),
		DisplayName: name,
		AvatarURL:   claims.AvatarURL,
	}, nil
}
