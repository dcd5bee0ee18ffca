package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/spooldock/spooldock/internal/handlers"
	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/middleware"
)

type RouterConfig struct {
	Log             *logger.Logger
	AuthMiddleware  *middleware.AuthMiddleware
	InfoHandler     *handlers.InfoHandler
	VendorHandler   *handlers.VendorHandler
	FilamentHandler *handlers.FilamentHandler
	SpoolHandler    *handlers.SpoolHandler
	SettingHandler  *handlers.SettingHandler
	FieldHandler    *handlers.FieldHandler
	WSHandler       *handlers.WSHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLog(cfg.Log))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"X-Total-Count"},
		AllowCredentials: false,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api/v1")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	api.GET("/info", cfg.InfoHandler.Info)

	// Vendor
	api.POST("/vendor", cfg.VendorHandler.Create)
	api.GET("/vendor", cfg.VendorHandler.List)
	api.GET("/vendor/:id", cfg.VendorHandler.Get)
	api.PATCH("/vendor/:id", cfg.VendorHandler.Update)
	api.DELETE("/vendor/:id", cfg.VendorHandler.Delete)

	// Filament
	api.POST("/filament", cfg.FilamentHandler.Create)
	api.GET("/filament", cfg.FilamentHandler.List)
	api.GET("/filament/:id", cfg.FilamentHandler.Get)
	api.PATCH("/filament/:id", cfg.FilamentHandler.Update)
	api.DELETE("/filament/:id", cfg.FilamentHandler.Delete)

	// Spool
	api.POST("/spool", cfg.SpoolHandler.Create)
	api.GET("/spool", cfg.SpoolHandler.List)
	api.GET("/spool/:id", cfg.SpoolHandler.Get)
	api.PATCH("/spool/:id", cfg.SpoolHandler.Update)
	api.DELETE("/spool/:id", cfg.SpoolHandler.Delete)
	api.PUT("/spool/:id/use", cfg.SpoolHandler.Use)
	api.PUT("/spool/:id/measure", cfg.SpoolHandler.Measure)

	// Setting
	api.GET("/setting", cfg.SettingHandler.GetAll)
	api.GET("/setting/:key", cfg.SettingHandler.Get)
	api.POST("/setting/:key", cfg.SettingHandler.Set)
	api.DELETE("/setting/:key", cfg.SettingHandler.Unset)

	// Extra fields
	api.GET("/field/:entity_type", cfg.FieldHandler.List)
	api.POST("/field/:entity_type/:key", cfg.FieldHandler.AddOrUpdate)
	api.DELETE("/field/:entity_type/:key", cfg.FieldHandler.Delete)

	// Event stream
	api.GET("/ws/:resource", cfg.WSHandler.Subscribe)
	api.GET("/ws/:resource/:id", cfg.WSHandler.Subscribe)

	return router
}
