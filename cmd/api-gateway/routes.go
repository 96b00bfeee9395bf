package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/hostel-maintenance-api/internal/handler"
	"github.com/noah-isme/hostel-maintenance-api/internal/middleware"
	"github.com/noah-isme/hostel-maintenance-api/internal/models"
	"github.com/noah-isme/hostel-maintenance-api/internal/service"
	"github.com/noah-isme/hostel-maintenance-api/pkg/config"
)

type routeHandlers struct {
	requests *handler.RequestHandler
	auth     *handler.AuthHandler
	exports  *handler.ExportHandler
	metrics  *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, h routeHandlers, auth *service.AuthService) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.auth.Login)
	api.POST("/requests", h.requests.Create)
	api.GET("/requests", h.requests.ListMine)
	api.GET("/exports/download", h.exports.Download)

	admin := api.Group("/admin", middleware.JWT(auth), middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/requests", h.requests.ListAll)
	admin.GET("/requests/:id", h.requests.Get)
	admin.PATCH("/requests/:id/status", h.requests.UpdateStatus)
	admin.POST("/exports", h.exports.Create)
}
