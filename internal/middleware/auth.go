package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/spooldock/spooldock/internal/logger"
)

// AuthMiddleware guards the API with a single optional shared credential
// pair. When no credential is configured every request passes.
type AuthMiddleware struct {
	log      *logger.Logger
	username string
	password string
}

func NewAuthMiddleware(log *logger.Logger, username, password string) *AuthMiddleware {
	return &AuthMiddleware{
		log:      log.With("Middleware", "AuthMiddleware"),
		username: username,
		password: password,
	}
}

func (am *AuthMiddleware) Enabled() bool {
	return am.username != "" && am.password != ""
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !am.Enabled() {
			c.Next()
			return
		}
		user, pass, ok := c.Request.BasicAuth()
		if !ok || !am.match(user, pass) {
			c.Header("WWW-Authenticate", `Basic realm="spooldock"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid credentials"})
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) match(user, pass string) bool {
	if subtle.ConstantTimeCompare([]byte(user), []byte(am.username)) != 1 {
		return false
	}
	// The configured password may be stored as a bcrypt hash.
	if strings.HasPrefix(am.password, "$2a$") || strings.HasPrefix(am.password, "$2b$") || strings.HasPrefix(am.password, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(am.password), []byte(pass)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(pass), []byte(am.password)) == 1
}
