package kernelconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	if cfg.Store.Backend != "memory" {
		t.Fatalf("expected default store backend memory, got %s", cfg.Store.Backend)
	}
	if cfg.Verifier.CacheSize != 10000 {
		t.Fatalf("expected default verifier cache size 10000, got %d", cfg.Verifier.CacheSize)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"store":{"backend":"sqlite","sqlite_path":"/tmp/x.db"}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.SQLitePath != "/tmp/x.db" {
		t.Fatalf("unexpected store config: %+v", cfg.Store)
	}
	// untouched fields keep their defaults
	if cfg.Policy.DefaultMaxNodes != 50 {
		t.Fatalf("expected untouched policy defaults preserved, got %d", cfg.Policy.DefaultMaxNodes)
	}
}

func TestLoadFromEnvOverridesFile(t *testing.T) {
	t.Setenv("KERNEL_STORE_BACKEND", "sqlite")
	t.Setenv("KERNEL_VERIFIER_CACHE_SIZE", "500")
	t.Setenv("KERNEL_ATLAS_MIN_JACCARD", "0.25")
	t.Setenv("KERNEL_METRICS_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Fatalf("expected env override for store backend, got %s", cfg.Store.Backend)
	}
	if cfg.Verifier.CacheSize != 500 {
		t.Fatalf("expected env override for cache size, got %d", cfg.Verifier.CacheSize)
	}
	if cfg.Atlas.MinJaccard != 0.25 {
		t.Fatalf("expected env override for min jaccard, got %f", cfg.Atlas.MinJaccard)
	}
	if cfg.Telemetry.MetricsEnabled {
		t.Fatal("expected metrics_enabled overridden to false")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	cfg := Default()
	cfg.Store.Backend = "sqlite"

	if err := Save(cfg, path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Store.Backend != "sqlite" {
		t.Fatalf("expected round-tripped backend sqlite, got %s", loaded.Store.Backend)
	}
}

func TestLoadSecretFromEnv(t *testing.T) {
	t.Setenv("KERNEL_HMAC_SECRET", "a-raw-secret-value")
	t.Setenv("KERNEL_HMAC_SECRET_PATH", "")

	secret, err := LoadSecret()
	if err != nil {
		t.Fatal(err)
	}
	if string(secret) != "a-raw-secret-value" {
		t.Fatalf("unexpected secret: %s", secret)
	}
}

func TestLoadSecretFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret.bin")
	if err := os.WriteFile(path, []byte("file-backed-secret"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KERNEL_HMAC_SECRET_PATH", path)

	secret, err := LoadSecret()
	if err != nil {
		t.Fatal(err)
	}
	if string(secret) != "file-backed-secret" {
		t.Fatalf("unexpected secret: %s", secret)
	}
}

func TestLoadSecretMissingErrors(t *testing.T) {
	t.Setenv("KERNEL_HMAC_SECRET_PATH", "")
	t.Setenv("KERNEL_HMAC_SECRET", "")

	if _, err := LoadSecret(); err == nil {
		t.Fatal("expected an error when no secret source is configured")
	}
}
