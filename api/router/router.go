// Package router wires the gin engine and route groups for the HTTP query
// surface (C9), grounded on the teacher's api/router/router.go layout: a
// health check plus a versionless route group, generalized from
// /api/v1/posts to /trends/*.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"gdelt-trends/api/handlers"
)

// New builds the gin engine and its route table, grounded on the teacher's
// health-check-plus-group layout.
func New(deps handlers.Deps) *gin.Engine {
	r := gin.Default()

	r.GET("/health", handlers.Health(deps))

	trends := r.Group("/trends")
	{
		trends.GET("/realtime", handlers.Realtime(deps))
		trends.GET("/daily", handlers.Daily(deps))
		trends.GET("/top", handlers.Top(deps))
		trends.GET("/documents", handlers.Documents(deps))
		trends.POST("/admin/fetchDaily", handlers.AdminFetchDaily(deps))
	}

	return r
}

// WithCORS wraps the engine with the teacher's github.com/rs/cors
// dependency at the http.Handler layer, matching how the teacher's broader
// app applies cors outside of gin's own middleware chain.
func WithCORS(engine *gin.Engine) http.Handler {
	return cors.Default().Handler(engine)
}
