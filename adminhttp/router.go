// Package adminhttp exposes a small gin router for operating a
// server.Server: liveness, the list of currently connected peers, and
// a Prometheus scrape endpoint.
package adminhttp

// file: adminhttp/router.go

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kestrelrpc/kestrel/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds a gin.Engine exposing:
//
//	GET /healthz      - liveness, always 200 once the router is serving
//	GET /connections  - the ids of every currently connected peer
//	GET /metrics      - Prometheus exposition format
func NewRouter(srv *server.Server) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/connections", func(c *gin.Context) {
		ids := srv.ConnectedClients()
		c.JSON(http.StatusOK, gin.H{
			"connections": ids,
			"count":       len(ids),
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
