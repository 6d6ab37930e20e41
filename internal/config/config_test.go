package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "JWT_SECRET_KEY", "TOKEN_TTL_SECONDS", "BCRYPT_COST", "STORAGE", "MINIO_USE_SSL"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	if cfg.Addr != ":3000" {
		t.Errorf("Addr = %q, want :3000", cfg.Addr)
	}
	if cfg.JWTSecret != "default_secret_key" {
		t.Errorf("JWTSecret = %q", cfg.JWTSecret)
	}
	if cfg.TokenTTL != time.Hour {
		t.Errorf("TokenTTL = %v, want 1h", cfg.TokenTTL)
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.Storage != StorageSQLite {
		t.Errorf("Storage = %q, want sqlite", cfg.Storage)
	}
	if cfg.MinIOUseSSL {
		t.Error("MinIOUseSSL should default to false")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("TOKEN_TTL_SECONDS", "60")
	t.Setenv("BCRYPT_COST", "not-a-number")
	t.Setenv("STORAGE", "Postgres")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("APP_ENV", "development")

	cfg := FromEnv()

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.TokenTTL != time.Minute {
		t.Errorf("TokenTTL = %v, want 1m", cfg.TokenTTL)
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("invalid BCRYPT_COST should fall back, got %d", cfg.BcryptCost)
	}
	if cfg.Storage != StoragePostgres {
		t.Errorf("Storage = %q, want postgres", cfg.Storage)
	}
	if !cfg.MinIOUseSSL {
		t.Error("MinIOUseSSL should be true")
	}
	if !cfg.Development() {
		t.Error("expected development mode")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FILLOG_CONFIG_PROBE=from-file\nJWT_SECRET_KEY=file-secret\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv("FILLOG_CONFIG_PROBE")
	})
	t.Setenv("JWT_SECRET_KEY", "env-secret")

	cfg := Load()

	if got := os.Getenv("FILLOG_CONFIG_PROBE"); got != "from-file" {
		t.Errorf("expected .env value to be loaded, got %q", got)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Errorf("environment should win over .env, got %q", cfg.JWTSecret)
	}
}
