package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/simgym/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.GracePeriod)
	assert.Equal(t, 5*time.Second, cfg.StepTimeout)
	assert.Equal(t, ":8090", cfg.Recorder.Addr)
	assert.Equal(t, StoreFile, cfg.Recorder.Store)
	assert.Equal(t, filepath.Join("results", "dmms_experience"), cfg.Recorder.Dir)

	missing, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, cfg, missing)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "sim.yaml", `
control_plane_url: http://localhost:8000/
simulator:
  executable: /opt/sim/bin/sim
  config_path: /opt/sim/scenario.cfg
  log_path: /tmp/sim.log
results_root: /tmp/results
grace_period: 2s
step_timeout: 3
recorder:
  store: redis
  redis:
    addr: localhost:6379
    ttl: 1h
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/", cfg.ControlPlaneURL)
	assert.Equal(t, "/opt/sim/bin/sim", cfg.Simulator.Executable)
	assert.Equal(t, "/opt/sim/scenario.cfg", cfg.Simulator.ConfigPath)
	assert.Equal(t, "/tmp/sim.log", cfg.Simulator.LogPath)
	assert.Equal(t, "/tmp/results", cfg.ResultsRoot)
	assert.Equal(t, 2*time.Second, cfg.GracePeriod)
	assert.Equal(t, 3*time.Second, cfg.StepTimeout)
	assert.Equal(t, StoreRedis, cfg.Recorder.Store)
	assert.Equal(t, "localhost:6379", cfg.Recorder.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Recorder.Redis.TTL)
	// untouched defaults survive
	assert.Equal(t, ":8090", cfg.Recorder.Addr)

	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.ValidateRecorder())
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "sim.json", `{
		"control_plane_url": "http://cp:9000",
		"simulator": {"executable": "sim", "config_path": "a.cfg", "log_path": "a.log"},
		"grace_period": "500ms"
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://cp:9000", cfg.ControlPlaneURL)
	assert.Equal(t, 500*time.Millisecond, cfg.GracePeriod)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "control_plane_url: [unterminated"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "typo.yaml", "control_plane_ur: http://x\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = Load(writeFile(t, "dur.yaml", "grace_period: soon\n"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ControlPlaneURL = "http://from-file"

	t.Setenv("SIMGYM_CONTROL_PLANE_URL", "http://from-env")
	t.Setenv("SIMGYM_EXECUTABLE", "/bin/sim")
	t.Setenv("SIMGYM_GRACE_PERIOD", "1s")
	t.Setenv("SIMGYM_RECORDER_STORE", "memory")
	t.Setenv("SIMGYM_REDIS_DB", "2")

	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "http://from-env", cfg.ControlPlaneURL)
	assert.Equal(t, "/bin/sim", cfg.Simulator.Executable)
	assert.Equal(t, time.Second, cfg.GracePeriod)
	assert.Equal(t, StoreMemory, cfg.Recorder.Store)
	assert.Equal(t, 2, cfg.Recorder.Redis.DB)
	assert.Equal(t, 5*time.Second, cfg.StepTimeout)
}

func TestApplyEnv_Invalid(t *testing.T) {
	cfg := Default()
	t.Setenv("SIMGYM_STEP_TIMEOUT", "forever")
	err := cfg.ApplyEnv()
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.ControlPlaneURL = "http://localhost:8000"
	valid.Simulator.Executable = "sim"
	valid.Simulator.ConfigPath = "sim.cfg"
	valid.Simulator.LogPath = "sim.log"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing url", func(c *Config) { c.ControlPlaneURL = "" }},
		{"missing executable", func(c *Config) { c.Simulator.Executable = "" }},
		{"missing results root", func(c *Config) { c.ResultsRoot = "" }},
		{"zero grace", func(c *Config) { c.GracePeriod = 0 }},
		{"negative timeout", func(c *Config) { c.StepTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidConfig)
		})
	}
}

func TestValidateRecorder(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ValidateRecorder())

	cfg.Recorder.Store = "postgres"
	assert.ErrorIs(t, cfg.ValidateRecorder(), domain.ErrInvalidConfig)

	cfg.Recorder.Store = StoreRedis
	assert.ErrorIs(t, cfg.ValidateRecorder(), domain.ErrInvalidConfig)

	cfg.Recorder.Redis.Addr = "localhost:6379"
	assert.NoError(t, cfg.ValidateRecorder())
}

func TestRecorderKeys(t *testing.T) {
	rc := Default().Recorder
	active, fallback, err := rc.Keys()
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Nil(t, fallback)

	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	rc.EncryptionKey = key
	rc.FallbackKeys = []string{key}
	active, fallback, err = rc.Keys()
	require.NoError(t, err)
	assert.Len(t, active, 32)
	assert.Len(t, fallback, 1)

	rc.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("too short"))
	_, _, err = rc.Keys()
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	rc.EncryptionKey = "!!not base64!!"
	_, _, err = rc.Keys()
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	rc.EncryptionKey = ""
	_, _, err = rc.Keys()
	assert.ErrorIs(t, err, domain.ErrInvalidConfig, "fallback keys need an active key")
}
