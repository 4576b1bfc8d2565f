package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load applies the first env file found among paths, searching each one
// upwards from the working directory, then reads the environment and
// validates the result. Variables already set in the environment win.
func Load(paths ...string) (*App, error) {
	logger := slog.Default().With("component", "config")

	if file, ok := locate(paths); ok {
		if err := godotenv.Load(file); err != nil {
			logger.Warn("env file unreadable", "path", file, "error", err)
		} else {
			logger.Info("env file loaded", "path", file)
		}
	} else {
		logger.Debug("no env file found, using process environment", "paths", paths)
	}

	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("config loaded",
		"env", cfg.Env,
		"db_driver", cfg.DB.Driver,
		"db", maskValue(cfg.DB.Url),
		"cache_driver", cfg.Cache.Driver,
		"event_bus_driver", cfg.EventBus.Driver,
		"redis", maskValue(cfg.Redis.URL),
		"amqp", maskValue(cfg.Notifications.AMQPURL),
		"auth_jwt_expiry", cfg.Auth.Jwt.Expiry,
		"rate_limit", cfg.RateLimit.MaxRequests,
		"rate_limit_window", cfg.RateLimit.Window,
		"currency", cfg.Balance.Currency,
	)
	return &cfg, nil
}

func locate(paths []string) (string, bool) {
	wd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if file, ok := findUp(wd, p); ok {
			return file, true
		}
	}
	return "", false
}
