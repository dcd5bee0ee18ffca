package app

import (
	"gorm.io/gorm"

	"github.com/spooldock/spooldock/internal/events"
	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/services"
)

type Services struct {
	Fields   services.ExtraFieldService
	Setting  services.SettingService
	Vendor   services.VendorService
	Filament services.FilamentService
	Spool    services.SpoolService
}

func wireServices(db *gorm.DB, log *logger.Logger, reposet Repos, hub *events.Hub) Services {
	log.Info("Wiring services...")
	fields := services.NewExtraFieldService(db, log, reposet.Setting)
	return Services{
		Fields:   fields,
		Setting:  services.NewSettingService(db, log, reposet.Setting, hub),
		Vendor:   services.NewVendorService(db, log, reposet.Vendor, reposet.Filament, fields, hub),
		Filament: services.NewFilamentService(db, log, reposet.Filament, reposet.Vendor, reposet.Spool, fields, hub),
		Spool:    services.NewSpoolService(db, log, reposet.Spool, reposet.Filament, fields, hub),
	}
}
