package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/flowershop/internal/metrics"
	"github.com/polkiloo/flowershop/internal/pkg/auth"
	"github.com/polkiloo/flowershop/internal/server/http/handlers"
	"github.com/polkiloo/flowershop/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.ShopFacade, verifier auth.KeyVerifier, logger *slog.Logger, m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.Metrics(m))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	healthHandler := handlers.NewHealthHandler(facade)
	catalogHandler := handlers.NewCatalogHandler(facade)
	orderHandler := handlers.NewOrderHandler(facade)

	engine.GET("/healthz", healthHandler.Check)
	if m != nil {
		engine.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := engine.Group("/api")
	api.GET("/catalog", catalogHandler.List)

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKey(verifier))
	admin.GET("/orders/:id", orderHandler.Get)
	admin.GET("/customers/:id/orders", orderHandler.ListByCustomer)
	admin.POST("/orders/:id/status", orderHandler.SetStatus)

	return engine
}
