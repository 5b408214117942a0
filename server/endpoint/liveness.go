package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var processStart = time.Now()

// Liveness answers 200 while the process can run handlers. Dependencies are
// not consulted so a database outage never triggers a restart.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		c.JSON(http.StatusOK, gin.H{
			"status":         "alive",
			"service":        serviceName,
			"uptime_seconds": int64(now.Sub(processStart).Seconds()),
			"timestamp":      now.UTC().Format(time.RFC3339),
		})
	}
}
