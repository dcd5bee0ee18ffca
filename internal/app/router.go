package app

import (
	"github.com/gin-gonic/gin"

	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/server"
)

func wireRouter(log *logger.Logger, handlerset Handlers, mw Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		Log:             log,
		AuthMiddleware:  mw.Auth,
		InfoHandler:     handlerset.Info,
		VendorHandler:   handlerset.Vendor,
		FilamentHandler: handlerset.Filament,
		SpoolHandler:    handlerset.Spool,
		SettingHandler:  handlerset.Setting,
		FieldHandler:    handlerset.Field,
		WSHandler:       handlerset.WS,
	})
}
