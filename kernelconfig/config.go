// Package kernelconfig loads the kernel's own configuration: store
// backend selection, default slice policy, verifier cache sizing, and
// telemetry switches. Resolution order (highest priority last):
// defaults, then config file, then environment variables — the same
// order and reflection-driven env loader the teacher's own config
// package uses.
//
// The HMAC secret is deliberately never a field on KernelConfig: it is
// loaded by a separate function so it can never be marshaled into a
// log line or a saved config file by accident.
package kernelconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
)

// KernelConfig is the kernel's top-level configuration.
type KernelConfig struct {
	Store     StoreConfig     `json:"store"`
	Policy    PolicyConfig    `json:"policy"`
	Verifier  VerifierConfig  `json:"verifier"`
	Atlas     AtlasConfig     `json:"atlas"`
	Telemetry TelemetryConfig `json:"telemetry"`
}

// StoreConfig selects and configures the graph store backend.
type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	Backend    string `json:"backend" env:"KERNEL_STORE_BACKEND"`
	SQLitePath string `json:"sqlite_path" env:"KERNEL_SQLITE_PATH"`
}

// PolicyConfig holds the default slice policy applied when a caller
// does not supply an explicit policy reference.
type PolicyConfig struct {
	DefaultMaxNodes        int  `json:"default_max_nodes" env:"KERNEL_POLICY_MAX_NODES"`
	DefaultMaxRadius       int  `json:"default_max_radius" env:"KERNEL_POLICY_MAX_RADIUS"`
	DefaultIncludeSiblings bool `json:"default_include_siblings" env:"KERNEL_POLICY_INCLUDE_SIBLINGS"`
}

// VerifierConfig sizes the token verifier's LRU cache.
type VerifierConfig struct {
	CacheSize int `json:"cache_size" env:"KERNEL_VERIFIER_CACHE_SIZE"`
}

// AtlasConfig holds the default parameters for the Atlas batch
// pipeline's overlap and topology passes.
type AtlasConfig struct {
	MinJaccard           float64 `json:"min_jaccard" env:"KERNEL_ATLAS_MIN_JACCARD"`
	MaxCentroidsPerPhase int     `json:"max_centroids_per_phase" env:"KERNEL_ATLAS_MAX_CENTROIDS_PER_PHASE"`
}

// TelemetryConfig controls logging and metrics emission.
type TelemetryConfig struct {
	LogLevel       string `json:"log_level" env:"KERNEL_LOG_LEVEL"`
	MetricsEnabled bool   `json:"metrics_enabled" env:"KERNEL_METRICS_ENABLED"`
}

// Default returns the kernel's built-in configuration defaults.
func Default() *KernelConfig {
	return &KernelConfig{
		Store: StoreConfig{
			Backend:    "memory",
			SQLitePath: "kernel.db",
		},
		Policy: PolicyConfig{
			DefaultMaxNodes:        50,
			DefaultMaxRadius:       3,
			DefaultIncludeSiblings: false,
		},
		Verifier: VerifierConfig{
			CacheSize: 10000,
		},
		Atlas: AtlasConfig{
			MinJaccard:           0.1,
			MaxCentroidsPerPhase: 5,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			MetricsEnabled: true,
		},
	}
}

// Load resolves configuration from defaults, an optional config file
// named by KERNEL_CONFIG_PATH, and environment variables, in that
// priority order.
func Load() (*KernelConfig, error) {
	cfg := Default()

	if path := os.Getenv("KERNEL_CONFIG_PATH"); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific JSON file, layered
// over the defaults.
func LoadFromFile(path string) (*KernelConfig, error) {
	cfg := Default()
	if err := loadFromFile(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(cfg *KernelConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

func loadFromEnv(cfg *KernelConfig) error {
	return loadStructFromEnv(reflect.ValueOf(cfg).Elem())
}

// loadStructFromEnv walks a struct's fields, applying any `env`-tagged
// value found in the process environment. Nested structs are walked
// recursively so one call covers the whole KernelConfig tree.
func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !field.CanSet() {
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			if field.Kind() == reflect.Struct {
				if err := loadStructFromEnv(field); err != nil {
					return err
				}
			}
			continue
		}

		if value, ok := os.LookupEnv(envTag); ok {
			if err := setField(field, value); err != nil {
				return fmt.Errorf("setting %s: %w", envTag, err)
			}
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing int: %w", err)
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parsing bool: %w", err)
		}
		field.SetBool(b)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("parsing float64: %w", err)
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field kind: %s", field.Kind())
	}
	return nil
}

// Save writes cfg as indented JSON to path. The HMAC secret is never
// a KernelConfig field, so there is nothing secret-shaped for this to
// accidentally leak.
func Save(cfg *KernelConfig, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadSecret resolves the kernel's HMAC secret: from the file named
// by KERNEL_HMAC_SECRET_PATH if set, otherwise from the raw
// KERNEL_HMAC_SECRET environment variable. It is read once at process
// start, per spec.md's process-wide-secret design note — there is no
// live-rotation path.
func LoadSecret() ([]byte, error) {
	if path := os.Getenv("KERNEL_HMAC_SECRET_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading hmac secret file: %w", err)
		}
		return data, nil
	}
	if raw := os.Getenv("KERNEL_HMAC_SECRET"); raw != "" {
		return []byte(raw), nil
	}
	return nil, fmt.Errorf("no hmac secret configured: set KERNEL_HMAC_SECRET_PATH or KERNEL_HMAC_SECRET")
}
