package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"github.com/crownline/pageant/pkg/response"
	"github.com/crownline/pageant/pkg/types"
)

// AuthMiddleware trusts the upstream auth service's bearer token: it decodes
// user_id and role claims and attaches them to the request context. No
// credential validation happens here beyond the token signature.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing bearer token"))
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.ErrorT[any](response.APIResponseCodeUnauthorized, "invalid token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.ErrorT[any](response.APIResponseCodeUnauthorized, "invalid claims"))
			return
		}

		userID, _ := claims["user_id"].(string)
		role, _ := claims["role"].(string)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing user_id claim"))
			return
		}

		c.Set("user_id", userID)
		c.Set("role", role)
		ctx := context.WithValue(c.Request.Context(), "user_id", userID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRole gates a route group on the role claim set by AuthMiddleware.
func RequireRole(role types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if got, _ := c.Get("role"); got != string(role) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				response.ErrorT[any](response.APIResponseCodeForbidden, "insufficient role"))
			return
		}
		c.Next()
	}
}
