package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/flowershop/internal/pkg/auth"
)

// AdminKeyHeader carries key for administrative endpoints.
const AdminKeyHeader = "X-Admin-Key"

// AdminKey guards administrative endpoints. Without configured key they are hidden.
func AdminKey(verifier auth.KeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := verifier.Verify(c.GetHeader(AdminKeyHeader))
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, auth.ErrKeyDisabled):
			c.AbortWithStatus(http.StatusNotFound)
		default:
			c.AbortWithStatus(http.StatusForbidden)
		}
	}
}
