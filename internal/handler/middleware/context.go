package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/keyauth-service/internal/util"
)

const (
	requestIDContextKey   = "requestID"
	callerKeyContextKey   = "callerKey"
	tokenClaimsContextKey = "tokenClaims"
	apiKeyContextKey      = "apiKey"
)

// SetCallerKey records the API key a request claims to act for, so error
// logs can name the caller. Only the masked form is ever logged.
func SetCallerKey(c *gin.Context, key string) {
	if key != "" {
		c.Set(callerKeyContextKey, key)
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

func callerKey(c *gin.Context) string {
	return c.GetString(callerKeyContextKey)
}

// loggedPath is the request path as it may appear in logs. Route params
// such as /admin/api-keys/:key are masked; unmatched paths are masked whole
// since nothing tells which segment might be a key.
func loggedPath(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		return util.MaskKey(c.Request.URL.Path)
	}
	for _, p := range c.Params {
		route = strings.Replace(route, ":"+p.Key, util.MaskKey(p.Value), 1)
	}
	return route
}
