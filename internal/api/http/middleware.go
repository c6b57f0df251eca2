package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/burnchat/internal/service"
)

const (
	TokenCookie = "x-auth-token"
	TokenHeader = "X-Auth-Token"

	tokenKey = "client_token"
	authKey  = "auth"

	tokenCookieMaxAge = 60 * 60 * 24
)

// ClientTokenMiddleware makes sure every caller carries a session token,
// issuing a fresh one as a cookie on the first request.
func ClientTokenMiddleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(TokenHeader)
		if token == "" {
			token, _ = c.Cookie(TokenCookie)
		}
		if token == "" {
			token = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(TokenCookie, token, tokenCookieMaxAge, "/", "", secure, true)
		}
		c.Set(tokenKey, token)
		c.Next()
	}
}

// AdmissionMiddleware runs the admission gate for the roomId query parameter.
func AdmissionMiddleware(gate service.Admitter) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, err := gate.Admit(c.Request.Context(), c.Query("roomId"), c.GetString(tokenKey))
		if err != nil {
			writeError(c, err)
			return
		}
		c.Set(authKey, auth)
		c.Next()
	}
}

func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func authFrom(c *gin.Context) service.Auth {
	v, ok := c.Get(authKey)
	if !ok {
		return service.Auth{}
	}
	auth, _ := v.(service.Auth)
	return auth
}
