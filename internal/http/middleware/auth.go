package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"rentcore/internal/domain"
)

const callerKey = "caller"

// Authenticate resolves a Bearer token into a domain.Caller. Requests
// without a token pass through anonymously; services reject them where an
// identity is required. A present but invalid token is rejected here.
func Authenticate(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" || secret == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		caller, err := ParseCaller(secret, strings.TrimSpace(raw))
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// ParseCaller validates an HS256 token and reads sub, role and email.
func ParseCaller(secret, raw string) (domain.Caller, error) {
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return domain.Caller{}, domain.UnauthenticatedError{Err: err}
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return domain.Caller{}, domain.UnauthenticatedError{Err: err}
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return domain.Caller{}, domain.UnauthenticatedError{Err: err}
	}
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)
	return domain.Caller{UserID: domain.ID(id), Role: role, Email: email}, nil
}

// CallerFrom returns the resolved caller, or the zero Caller for anonymous requests.
func CallerFrom(c *gin.Context) domain.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(domain.Caller); ok {
			return caller
		}
	}
	return domain.Caller{}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":      msg,
		"code":       "unauthenticated",
		"request_id": GetRequestID(c),
	})
}
