package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/arkade-os/bridged/internal/interface/http/handlers"
	"github.com/arkade-os/bridged/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

const (
	adminTokenIssuer = "bridged"
	adminAudience    = "bridged-admin"

	subjectKey = "admin_subject"
)

// NewAdminToken mints a HS256 bearer token accepted by AdminAuth.
func NewAdminToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("missing secret")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be greater than zero")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    adminTokenIssuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{adminAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// AdminAuth rejects requests without a valid bearer token signed with secret.
// With an empty secret every request is let through.
func AdminAuth(secret []byte) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(adminTokenIssuer),
		jwt.WithAudience(adminAudience),
		jwt.WithExpirationRequired(),
	)
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		tokenStr, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(tokenStr) == "" {
			handlers.WriteError(c, errors.UNAUTHENTICATED.New("missing bearer token"))
			return
		}

		claims := &jwt.RegisteredClaims{}
		if _, err := parser.ParseWithClaims(tokenStr, claims, keyFunc); err != nil {
			log.WithError(err).WithField("path", c.FullPath()).Debug("rejected admin token")
			handlers.WriteError(c, errors.UNAUTHENTICATED.New("invalid bearer token"))
			return
		}

		c.Set(subjectKey, claims.Subject)
		c.Next()
	}
}
