package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Register mounts the liveness and readiness endpoints. ready is
// consulted on every /readyz call.
func Register(r gin.IRouter, ready func() bool) {
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if ready != nil && !ready() {
			c.String(http.StatusServiceUnavailable, "not ready")
			return
		}
		c.String(http.StatusOK, "ready")
	})
}
