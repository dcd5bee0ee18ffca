package app

import (
	"gorm.io/gorm"

	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/repos"
)

type Repos struct {
	Vendor   repos.VendorRepo
	Filament repos.FilamentRepo
	Spool    repos.SpoolRepo
	Setting  repos.SettingRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Vendor:   repos.NewVendorRepo(db, log),
		Filament: repos.NewFilamentRepo(db, log),
		Spool:    repos.NewSpoolRepo(db, log),
		Setting:  repos.NewSettingRepo(db, log),
	}
}
