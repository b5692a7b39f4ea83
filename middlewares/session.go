package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/storefront-orders/session"
)

const (
	SessionHeader     = "X-Session-ID"
	IdempotencyHeader = "Idempotency-Key"
)

// Sessions attaches the caller's checkout session, creating one when the header
// is missing or unknown. The id is always echoed back.
func Sessions(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := CurrentTenant(c)
		if tenant == nil {
			c.Next()
			return
		}
		sess, _ := store.GetOrCreate(tenant.ID, c.GetHeader(SessionHeader))
		c.Header(SessionHeader, sess.ID)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}
