package app

import (
	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/utils"
)

type Config struct {
	Host string
	Port string

	// Optional shared credential guarding the API. Empty means open.
	AuthUsername string
	AuthPassword string

	// Optional redis bridge fanning events out across instances.
	RedisAddr    string
	RedisChannel string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Host:         utils.GetEnv("HOST", "", log),
		Port:         utils.GetEnv("PORT", "8000", log),
		AuthUsername: utils.GetEnv("AUTH_USERNAME", "", log),
		AuthPassword: utils.GetEnvOrFile("AUTH_PASSWORD", "", log),
		RedisAddr:    utils.GetEnv("REDIS_ADDR", "", log),
		RedisChannel: utils.GetEnv("REDIS_CHANNEL", "spooldock.events", log),
	}
}
