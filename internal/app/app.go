package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/spooldock/spooldock/internal/db"
	"github.com/spooldock/spooldock/internal/events"
	"github.com/spooldock/spooldock/internal/logger"
)

const Version = "1.0.0"

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Hub      *events.Hub

	bridge events.Bridge
	server *http.Server
	cancel context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	dbService, err := db.New(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.Migrate(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	theDB := dbService.DB()

	hub := events.NewHub(log)
	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, reposet, hub)
	handlerset := wireHandlers(log, serviceset, hub, Version, dbService.Type())
	mw := wireMiddleware(log, cfg)
	router := wireRouter(log, handlerset, mw)

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Hub:      hub,
	}, nil
}

// Start wires the optional cross-instance event bridge.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Cfg.RedisAddr != "" {
		bridge, err := events.NewRedisBridge(a.Log, a.Cfg.RedisAddr, a.Cfg.RedisChannel)
		if err != nil {
			return fmt.Errorf("init redis bridge: %w", err)
		}
		if err := a.Hub.AttachBridge(ctx, bridge); err != nil {
			return fmt.Errorf("attach redis bridge: %w", err)
		}
		a.bridge = bridge
		a.Log.Info("Redis event bridge attached", "addr", a.Cfg.RedisAddr, "channel", a.Cfg.RedisChannel)
	}
	return nil
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := net.JoinHostPort(a.Cfg.Host, a.Cfg.Port)
	a.server = &http.Server{
		Addr:    addr,
		Handler: a.Router,
	}
	a.Log.Info("Server listening", "addr", addr)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the bridge and logger.
func (a *App) Shutdown(timeout time.Duration) {
	if a == nil {
		return
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.Log.Warn("Server shutdown incomplete", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.bridge != nil {
		if err := a.bridge.Close(); err != nil {
			a.Log.Warn("Bridge close failed", "error", err)
		}
		a.bridge = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
