package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/storefront-orders/utils"
)

func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		fields := logrus.Fields{
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
			"path":    path,
		}
		if tenant := CurrentTenant(c); tenant != nil {
			fields["tenant"] = tenant.Slug
		}

		switch {
		case len(c.Errors) > 0:
			utils.ErrorLogger.WithFields(fields).Error(c.Errors.String())
		case c.Writer.Status() >= 500:
			utils.ErrorLogger.WithFields(fields).Error("request failed")
		default:
			utils.InfoLogger.WithFields(fields).Info("request")
		}
	}
}
