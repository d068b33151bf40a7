package app

import (
	"testing"
	"time"

	"weekletter/internal/config"
)

func TestMapStorageConfig(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: "sqlite3", Path: " ./db.sqlite ", BusyTimeout: "3s"}}
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		t.Fatalf("mapStorageConfig: %v", err)
	}
	if sc.Driver != "sqlite" || sc.Path != "./db.sqlite" || sc.BusyTimeout != 3*time.Second {
		t.Fatalf("sc = %+v", sc)
	}

	cfg.Storage = config.StorageConfig{Driver: "file", Path: "snap.json"}
	sc, err = mapStorageConfig(cfg)
	if err != nil || sc.Driver != "file" {
		t.Fatalf("sc = %+v err=%v", sc, err)
	}

	cfg.Storage.Driver = "redis"
	if _, err := mapStorageConfig(cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestMapRetryConfig(t *testing.T) {
	cfg := &config.Config{}
	rc, err := mapRetryConfig(cfg)
	if err != nil {
		t.Fatalf("mapRetryConfig: %v", err)
	}
	if rc.Interval != 2*time.Hour || rc.MaxDuration != 48*time.Hour {
		t.Fatalf("defaults = %+v", rc)
	}
	if rc.MaxAttempts() != 24 {
		t.Fatalf("MaxAttempts = %d, want 24", rc.MaxAttempts())
	}

	cfg.Retry = config.RetryConfig{Interval: "1h", MaxDuration: "6h"}
	rc, err = mapRetryConfig(cfg)
	if err != nil || rc.MaxAttempts() != 6 {
		t.Fatalf("rc = %+v err=%v", rc, err)
	}

	cfg.Retry = config.RetryConfig{Interval: "4h", MaxDuration: "1h"}
	if _, err := mapRetryConfig(cfg); err == nil {
		t.Fatal("expected error when max_duration < interval")
	}
}

func TestMapDispatchConfig(t *testing.T) {
	cfg := &config.Config{Dispatch: config.DispatchConfig{SendTimeout: "30s", RatePerSec: 5}}
	dc, err := mapDispatchConfig(cfg)
	if err != nil {
		t.Fatalf("mapDispatchConfig: %v", err)
	}
	if dc.SendTimeout != 30*time.Second || dc.RatePerSec != 5 {
		t.Fatalf("dc = %+v", dc)
	}

	cfg.Dispatch.SendTimeout = "soon"
	if _, err := mapDispatchConfig(cfg); err == nil {
		t.Fatal("expected error for bad duration")
	}
}
