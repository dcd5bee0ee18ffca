package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/types"
	"github.com/spooldock/spooldock/internal/utils"
)

type Service struct {
	db     *gorm.DB
	log    *logger.Logger
	dbType string
}

// New opens the database described by the DB_* environment variables.
// Sqlite is the default; postgres is selected with DB_TYPE=postgres and the
// usual host/port/name/user/password set (password may come from
// DB_PASSWORD_FILE).
func New(log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "DBService")

	dbType := strings.ToLower(utils.GetEnv("DB_TYPE", "sqlite", log))

	var dialector gorm.Dialector
	switch dbType {
	case "sqlite":
		path := utils.GetEnv("DB_PATH", "spooldock.db", log)
		dialector = sqlite.Open(path + "?_journal_mode=WAL&_busy_timeout=5000")
	case "postgres":
		host := utils.GetEnv("DB_HOST", "localhost", log)
		port := utils.GetEnv("DB_PORT", "5432", log)
		user := utils.GetEnv("DB_USER", "postgres", log)
		password := utils.GetEnvOrFile("DB_PASSWORD", "", log)
		name := utils.GetEnv("DB_NAME", "spooldock", log)
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q", dbType)
	}

	serviceLog.Info("Connecting to database...", "type", dbType)
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dbType, err)
	}

	if dbType == "sqlite" {
		// A single writer keeps the clamped-decrement statement serialized
		// without SQLITE_BUSY churn.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &Service{db: db, log: serviceLog, dbType: dbType}, nil
}

// Migrate creates or updates the schema, including the indices the find
// operations filter and order by.
func (s *Service) Migrate() error {
	s.log.Info("Migrating database schema...")
	err := s.db.AutoMigrate(
		&types.Vendor{},
		&types.VendorExtra{},
		&types.Filament{},
		&types.FilamentExtra{},
		&types.Spool{},
		&types.SpoolExtra{},
		&types.Setting{},
	)
	if err != nil {
		s.log.Error("Schema migration failed", "error", err)
		return err
	}
	return nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Type() string { return s.dbType }
