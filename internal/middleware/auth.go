package middleware

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/utils"
)

// ownerKey is the gin context key carrying the authenticated owner id.
const ownerKey = "owner_id"

// AuthMiddleware verifies ES256 bearer tokens issued by the auth frontend.
// This service never issues tokens itself; it only verifies.
type AuthMiddleware struct {
	log    *logger.Logger
	pub    *ecdsa.PublicKey
	issuer string
}

func NewAuthMiddleware(baseLog *logger.Logger) (*AuthMiddleware, error) {
	log := baseLog.With("Middleware", "AuthMiddleware")
	pemStr := utils.GetEnv("JWT_ECDSA_PUBLIC", "", log)
	if pemStr == "" {
		return nil, errors.New("JWT_ECDSA_PUBLIC is required")
	}
	block, _ := pem.Decode([]byte(strings.ReplaceAll(pemStr, `\n`, "\n")))
	if block == nil {
		return nil, errors.New("JWT_ECDSA_PUBLIC is not valid PEM")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("JWT_ECDSA_PUBLIC is not an ECDSA key")
	}
	return &AuthMiddleware{
		log:    log,
		pub:    pub,
		issuer: utils.GetEnv("JWT_ISSUER_DOMAIN", "", log),
	}, nil
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"ES256"})}
		if am.issuer != "" {
			opts = append(opts, jwt.WithIssuer(am.issuer))
		}
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
			return am.pub, nil
		}, opts...)
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		sub, err := token.Claims.GetSubject()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			return
		}
		// Subject is "CHARACTER:EVE:<id>" or a bare character id.
		if idx := strings.LastIndex(sub, ":"); idx >= 0 {
			sub = sub[idx+1:]
		}
		ownerID, err := strconv.ParseInt(sub, 10, 64)
		if err != nil || ownerID <= 0 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Set(ownerKey, ownerID)
		c.Next()
	}
}

// OwnerID returns the authenticated owner of the request, or 0 when the
// request skipped RequireAuth.
func OwnerID(c *gin.Context) int64 {
	v, ok := c.Get(ownerKey)
	if !ok {
		return 0
	}
	id, _ := v.(int64)
	return id
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return c.Query("token")
}
