package app

import (
	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/middleware"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, cfg.AuthUsername, cfg.AuthPassword),
	}
}
