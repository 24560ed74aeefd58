package router

import (
	"github.com/gin-gonic/gin"
	"github.com/rt44/backend/internal/infrastructure/config"
	"github.com/rt44/backend/internal/infrastructure/logger"
	"github.com/rt44/backend/internal/interfaces/http/handler"
	"github.com/rt44/backend/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// EngineConfig holds what NewEngine needs besides the API handlers
type EngineConfig struct {
	Logger  *zap.Logger
	HTTP    config.HTTPConfig
	Tracing middleware.TracingConfig
	// Metrics, when set, records every request and is served on /metrics
	Metrics *middleware.HTTPMetrics
	// System serves /health; its info endpoint is mounted by the caller
	System *handler.SystemHandler
}

// NewEngine builds the gin engine with the global middleware stack and the
// unversioned operational endpoints.
//
// Middleware order:
//  1. Recovery - catch panics
//  2. Tracing - start the request span
//  3. Logger - request id and access log
//  4. SpanEnricher - copy request id and actor onto the span
//  5. Metrics
//  6. Security headers and CORS
//  7. BodyLimit
func NewEngine(cfg EngineConfig) *gin.Engine {
	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			cfg.Logger.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(logger.Recovery(cfg.Logger))
	engine.Use(middleware.TracingWithConfig(cfg.Tracing))
	engine.Use(logger.GinMiddleware(cfg.Logger))
	engine.Use(middleware.SpanEnricher())
	if cfg.Metrics != nil {
		engine.Use(cfg.Metrics.Middleware())
	}
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)))
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	if cfg.System != nil {
		engine.GET("/health", cfg.System.Health)
	}
	if cfg.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:    cfg.HTTP.SwaggerEnabled,
			AllowedIPs: cfg.HTTP.SwaggerAllowedIPs,
		}),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	return engine
}
