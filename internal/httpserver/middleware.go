package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tradeboard/internal/util"
	"tradeboard/pkg/metrics"
)

func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		userID, accountType, err := util.ParseJWT(token, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		// store identity in context so handlers can use it
		c.Set("user_id", userID)
		c.Set("account_type", accountType)

		c.Next()
	}
}

// RequireAccountType 中间件：限制接口只对某一侧账号开放
func RequireAccountType(accountType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get("account_type")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		if v.(string) != accountType {
			c.JSON(http.StatusForbidden, gin.H{"error": "account type not allowed"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.RecordHTTPRequestDuration(c.Request.Method, c.FullPath(),
			strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
