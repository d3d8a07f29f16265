package trigger

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures the trigger gateway's routes.
func SetupRouter(g *Gateway) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "report-trigger-service",
		})
	})

	r.OPTIONS("/api/v1/trigger", g.Preflight)
	r.POST("/api/v1/trigger", g.Fire)

	return r
}
