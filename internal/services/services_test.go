package services

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/spooldock/spooldock/internal/events"
	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/repos"
	"github.com/spooldock/spooldock/internal/types"
)

var testDBSeq atomic.Int64

type testEnv struct {
	db        *gorm.DB
	hub       *events.Hub
	fields    ExtraFieldService
	settings  SettingService
	vendors   VendorService
	filaments FilamentService
	spools    SpoolService
}

// newTestEnv wires the full service stack against a private in-memory
// database. A single connection keeps writes serialized the same way the
// production sqlite setup does.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)

	dsn := fmt.Sprintf("file:services_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := gdb.AutoMigrate(
		&types.Vendor{},
		&types.VendorExtra{},
		&types.Filament{},
		&types.FilamentExtra{},
		&types.Spool{},
		&types.SpoolExtra{},
		&types.Setting{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	hub := events.NewHub(log)
	vendorRepo := repos.NewVendorRepo(gdb, log)
	filamentRepo := repos.NewFilamentRepo(gdb, log)
	spoolRepo := repos.NewSpoolRepo(gdb, log)
	settingRepo := repos.NewSettingRepo(gdb, log)

	fields := NewExtraFieldService(gdb, log, settingRepo)
	return &testEnv{
		db:        gdb,
		hub:       hub,
		fields:    fields,
		settings:  NewSettingService(gdb, log, settingRepo, hub),
		vendors:   NewVendorService(gdb, log, vendorRepo, filamentRepo, fields, hub),
		filaments: NewFilamentService(gdb, log, filamentRepo, vendorRepo, spoolRepo, fields, hub),
		spools:    NewSpoolService(gdb, log, spoolRepo, filamentRepo, fields, hub),
	}
}

func fptr(v float64) *float64 { return &v }

func sptr(s string) *string { return &s }

func bptr(b bool) *bool { return &b }

func near(got, want, tolerance float64) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
