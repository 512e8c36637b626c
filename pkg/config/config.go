package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/simgym/pkg/adapters/process"
	"github.com/aretw0/simgym/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables overriding file values.
const EnvPrefix = "SIMGYM_"

// Config is the full configuration of an environment and its recorder.
type Config struct {
	ControlPlaneURL string `yaml:"control_plane_url" json:"control_plane_url" mapstructure:"control_plane_url"`

	Simulator   process.Invocation `yaml:"simulator" json:"simulator" mapstructure:"simulator"`
	ResultsRoot string             `yaml:"results_root" json:"results_root" mapstructure:"results_root"`

	GracePeriod time.Duration `yaml:"grace_period" json:"grace_period" mapstructure:"grace_period"`
	StepTimeout time.Duration `yaml:"step_timeout" json:"step_timeout" mapstructure:"step_timeout"`

	Recorder RecorderConfig `yaml:"recorder" json:"recorder" mapstructure:"recorder"`
}

// RecorderConfig configures the experience recorder server and its store.
type RecorderConfig struct {
	URL   string      `yaml:"url" json:"url" mapstructure:"url"`
	Addr  string      `yaml:"addr" json:"addr" mapstructure:"addr"`
	Store string      `yaml:"store" json:"store" mapstructure:"store"`
	Dir   string      `yaml:"dir" json:"dir" mapstructure:"dir"`
	Redis RedisConfig `yaml:"redis" json:"redis" mapstructure:"redis"`

	// EncryptionKey (base64, 32 bytes decoded) enables encrypted episode files.
	EncryptionKey string   `yaml:"encryption_key" json:"encryption_key" mapstructure:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys" json:"fallback_keys" mapstructure:"fallback_keys"`
}

// RedisConfig configures the redis experience store.
type RedisConfig struct {
	Addr     string        `yaml:"addr" json:"addr" mapstructure:"addr"`
	Password string        `yaml:"password" json:"password" mapstructure:"password"`
	DB       int           `yaml:"db" json:"db" mapstructure:"db"`
	Prefix   string        `yaml:"prefix" json:"prefix" mapstructure:"prefix"`
	TTL      time.Duration `yaml:"ttl" json:"ttl" mapstructure:"ttl"`
}

// Recorder store kinds.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Default returns a Config populated with defaults only.
func Default() Config {
	return Config{
		ResultsRoot: "results",
		GracePeriod: process.DefaultGracePeriod,
		StepTimeout: 5 * time.Second,
		Recorder: RecorderConfig{
			Addr:  ":8090",
			Store: StoreFile,
			Dir:   filepath.Join("results", "dmms_experience"),
		},
	}
}

// Load reads a configuration file (YAML or JSON) on top of the defaults.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	raw := map[string]any{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	if err := decode(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// decode maps a generic document onto cfg. Durations accept strings like "15s"
// or plain numbers of seconds.
func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// ApplyEnv overrides fields from SIMGYM_* environment variables.
func (c *Config) ApplyEnv() error {
	set := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	setDuration := func(name string, dst *time.Duration) error {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %v", domain.ErrInvalidConfig, EnvPrefix, name, err)
		}
		*dst = d
		return nil
	}

	set("CONTROL_PLANE_URL", &c.ControlPlaneURL)
	set("EXECUTABLE", &c.Simulator.Executable)
	set("CONFIG_PATH", &c.Simulator.ConfigPath)
	set("LOG_PATH", &c.Simulator.LogPath)
	set("RESULTS_ROOT", &c.ResultsRoot)
	set("RECORDER_URL", &c.Recorder.URL)
	set("RECORDER_ADDR", &c.Recorder.Addr)
	set("RECORDER_STORE", &c.Recorder.Store)
	set("RECORDER_DIR", &c.Recorder.Dir)
	set("RECORDER_ENCRYPTION_KEY", &c.Recorder.EncryptionKey)
	set("REDIS_ADDR", &c.Recorder.Redis.Addr)
	set("REDIS_PASSWORD", &c.Recorder.Redis.Password)
	set("REDIS_PREFIX", &c.Recorder.Redis.Prefix)

	if v, ok := os.LookupEnv(EnvPrefix + "REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sREDIS_DB: %v", domain.ErrInvalidConfig, EnvPrefix, err)
		}
		c.Recorder.Redis.DB = db
	}
	if err := setDuration("GRACE_PERIOD", &c.GracePeriod); err != nil {
		return err
	}
	if err := setDuration("STEP_TIMEOUT", &c.StepTimeout); err != nil {
		return err
	}
	return setDuration("REDIS_TTL", &c.Recorder.Redis.TTL)
}

// Validate checks what an environment needs to run.
func (c Config) Validate() error {
	if c.ControlPlaneURL == "" {
		return fmt.Errorf("%w: control_plane_url is required", domain.ErrInvalidConfig)
	}
	if err := c.Simulator.Validate(); err != nil {
		return err
	}
	if c.ResultsRoot == "" {
		return fmt.Errorf("%w: results_root is required", domain.ErrInvalidConfig)
	}
	if c.GracePeriod <= 0 || c.StepTimeout <= 0 {
		return fmt.Errorf("%w: grace_period and step_timeout must be positive", domain.ErrInvalidConfig)
	}
	return nil
}

// ValidateRecorder checks what the recorder server needs to run.
func (c Config) ValidateRecorder() error {
	switch c.Recorder.Store {
	case StoreFile, StoreMemory:
	case StoreRedis:
		if c.Recorder.Redis.Addr == "" {
			return fmt.Errorf("%w: recorder.redis.addr is required for the redis store", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown recorder store %q", domain.ErrInvalidConfig, c.Recorder.Store)
	}
	if c.Recorder.Addr == "" {
		return fmt.Errorf("%w: recorder.addr is required", domain.ErrInvalidConfig)
	}
	_, _, err := c.Recorder.Keys()
	return err
}

// Keys decodes the encryption keys. A nil active key means encryption is off.
func (r RecorderConfig) Keys() ([]byte, [][]byte, error) {
	if r.EncryptionKey == "" {
		if len(r.FallbackKeys) > 0 {
			return nil, nil, fmt.Errorf("%w: recorder.fallback_keys set without encryption_key", domain.ErrInvalidConfig)
		}
		return nil, nil, nil
	}

	active, err := decodeKey(r.EncryptionKey)
	if err != nil {
		return nil, nil, err
	}
	fallback := make([][]byte, 0, len(r.FallbackKeys))
	for _, k := range r.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: encryption key is not valid base64: %v", domain.ErrInvalidConfig, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: encryption key must decode to 32 bytes, got %d", domain.ErrInvalidConfig, len(key))
	}
	return key, nil
}
