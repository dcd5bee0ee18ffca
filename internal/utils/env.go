package utils

import (
	"os"
	"strconv"
	"strings"

	"github.com/spooldock/spooldock/internal/logger"
)

func GetEnv(key, defaultVal string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	return val
}

func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		if log != nil {
			log.Debug("Environment variable could not be parsed as int, using default", "env_var", key, "provided", valStr, "default", defaultVal, "error", err)
		}
		return defaultVal
	}
	return i
}

// GetEnvOrFile resolves key, falling back to reading the file named by
// key+"_FILE". Secrets mounted by the orchestrator arrive as files.
func GetEnvOrFile(key, defaultVal string, log *logger.Logger) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	if path, ok := os.LookupEnv(key + "_FILE"); ok && strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if log != nil {
				log.Warn("Could not read secret file, using default", "env_var", key+"_FILE", "error", err)
			}
			return defaultVal
		}
		return strings.TrimSpace(string(raw))
	}
	return defaultVal
}
