package app

import (
	"github.com/spooldock/spooldock/internal/events"
	"github.com/spooldock/spooldock/internal/handlers"
	"github.com/spooldock/spooldock/internal/logger"
)

type Handlers struct {
	Info     *handlers.InfoHandler
	Vendor   *handlers.VendorHandler
	Filament *handlers.FilamentHandler
	Spool    *handlers.SpoolHandler
	Setting  *handlers.SettingHandler
	Field    *handlers.FieldHandler
	WS       *handlers.WSHandler
}

func wireHandlers(log *logger.Logger, serviceset Services, hub *events.Hub, version, dbType string) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Info:     handlers.NewInfoHandler(version, dbType),
		Vendor:   handlers.NewVendorHandler(serviceset.Vendor),
		Filament: handlers.NewFilamentHandler(serviceset.Filament),
		Spool:    handlers.NewSpoolHandler(serviceset.Spool),
		Setting:  handlers.NewSettingHandler(serviceset.Setting),
		Field:    handlers.NewFieldHandler(serviceset.Fields),
		WS:       handlers.NewWSHandler(log, hub),
	}
}
