package middleware

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tirthgodhni98/giftcard-api/pkg/logger"
	"go.uber.org/zap"
)

const (
	// UserEmailHeader carries the caller's email when a frontend forwards it
	UserEmailHeader = "X-User-Email"
	// UserNameHeader carries the caller's display name
	UserNameHeader = "X-User-Name"

	userEmailCookie = "user_email"
	userNameCookie  = "user_name"
	identityKey     = "caller_identity"

	// UnknownUserName is used when an email is known but no name was sent
	UnknownUserName = "Unknown User"
)

// Identity is a best-effort guess at who is calling. It is never an
// authorization decision.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// IdentityResolver guesses the caller from headers first, then cookies.
// Requests without any hint continue as an unknown caller.
func IdentityResolver() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, ok := resolveIdentity(c); ok {
			c.Set(identityKey, identity)
		}
		c.Next()
	}
}

func resolveIdentity(c *gin.Context) (identity Identity, ok bool) {
	defer func() {
		// Enrichment must never fail the request
		if r := recover(); r != nil {
			logger.WithContext(c.Request.Context()).Warn("identity resolution failed", zap.Any("error", r))
			identity, ok = Identity{}, false
		}
	}()

	email := strings.TrimSpace(c.GetHeader(UserEmailHeader))
	if email == "" {
		email = cookieValue(c, userEmailCookie)
	}
	if email == "" {
		return Identity{}, false
	}

	name := strings.TrimSpace(c.GetHeader(UserNameHeader))
	if name == "" {
		name = cookieValue(c, userNameCookie)
	}
	if name == "" {
		name = UnknownUserName
	}

	return Identity{Email: email, Name: name}, true
}

func cookieValue(c *gin.Context, name string) string {
	raw, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	value, err := url.QueryUnescape(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(value)
}

// GetIdentity returns the resolved caller identity, if any
func GetIdentity(c *gin.Context) (Identity, bool) {
	if v, exists := c.Get(identityKey); exists {
		if identity, ok := v.(Identity); ok {
			return identity, true
		}
	}
	return Identity{}, false
}
