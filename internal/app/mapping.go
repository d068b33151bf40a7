package app

import (
	"fmt"
	"strings"
	"time"

	"weekletter/internal/config"
	"weekletter/internal/dispatch"
	"weekletter/internal/retry"
	"weekletter/internal/storage"
)

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	path := strings.TrimSpace(cfg.Storage.Path)

	switch driver {
	case "file":
		return storage.Config{Driver: "file", Path: path}, nil
	case "sqlite", "sqlite3":
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: "sqlite", Path: path, BusyTimeout: busy}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", cfg.Storage.Driver)
	}
}

func mapRetryConfig(cfg *config.Config) (retry.Config, error) {
	interval, err := config.ParseDurationOrDefault("retry.interval", cfg.Retry.Interval, retry.DefaultInterval)
	if err != nil {
		return retry.Config{}, err
	}
	maxDur, err := config.ParseDurationOrDefault("retry.max_duration", cfg.Retry.MaxDuration, retry.DefaultMaxDuration)
	if err != nil {
		return retry.Config{}, err
	}
	if maxDur < interval {
		return retry.Config{}, fmt.Errorf("retry.max_duration must be >= retry.interval")
	}
	return retry.Config{Interval: interval, MaxDuration: maxDur}, nil
}

func mapDispatchConfig(cfg *config.Config) (dispatch.Config, error) {
	timeout, err := config.ParseDurationField("dispatch.send_timeout", cfg.Dispatch.SendTimeout)
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{
		SendTimeout: timeout,
		RatePerSec:  cfg.Dispatch.RatePerSec,
	}, nil
}
