package config

import (
	"testing"
)

func TestDefaultsProduceValidConfig(t *testing.T) {
	v, err := InitConfig()
	if err != nil {
		t.Fatalf("init config failed: %v", err)
	}

	cfg, err := GetApplicationConfig(v)
	if err != nil {
		t.Fatalf("defaults must pass validation: %v", err)
	}

	if cfg.Port != 3001 {
		t.Fatalf("expected default port 3001, got %d", cfg.Port)
	}
	if cfg.SignedUrlTTL != 3600 {
		t.Fatalf("expected default signed url ttl 3600, got %d", cfg.SignedUrlTTL)
	}
	if cfg.MaxUploadBytes != 100*1024*1024 {
		t.Fatalf("expected default upload limit 100MiB, got %d", cfg.MaxUploadBytes)
	}
	if cfg.PostgresConfig.Host != "localhost" {
		t.Fatalf("expected default postgres host, got %q", cfg.PostgresConfig.Host)
	}
	if cfg.AssetStoreConfig.Bucket != "recordings" {
		t.Fatalf("expected default bucket, got %q", cfg.AssetStoreConfig.Bucket)
	}
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("POSTGRES__HOST", "db.internal")

	v, err := InitConfig()
	if err != nil {
		t.Fatalf("init config failed: %v", err)
	}
	cfg, err := GetApplicationConfig(v)
	if err != nil {
		t.Fatalf("config failed validation: %v", err)
	}

	if cfg.Port != 9090 {
		t.Fatalf("expected env port 9090, got %d", cfg.Port)
	}
	if cfg.PostgresConfig.Host != "db.internal" {
		t.Fatalf("expected env postgres host, got %q", cfg.PostgresConfig.Host)
	}
}
