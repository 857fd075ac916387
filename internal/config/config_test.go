package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	Init()
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Dispatch.Threshold)
	assert.Equal(t, 15*time.Second, cfg.Dispatch.ConfirmTimeoutDuration())
	assert.Equal(t, 30*time.Second, cfg.Dispatch.SkillTimeoutDuration())
	assert.Equal(t, 1, cfg.Dispatch.QueueSize)
	assert.True(t, cfg.Dispatch.SerialSpeech)
	assert.Equal(t, []string{"yes", "y", "confirm"}, cfg.Dispatch.Affirmative)
	assert.Equal(t, []string{"no", "n", "cancel"}, cfg.Dispatch.Negative)
	assert.Equal(t, []string{"exit", "quit", "goodbye"}, cfg.Dispatch.Exit)
	assert.Equal(t, "Goodbye!", cfg.Dispatch.Messages.Farewell)
	assert.Equal(t, "./data/skillrt.db", cfg.Store.Path)
	assert.True(t, cfg.Skills.Builtin)
	assert.Equal(t, ListenerConsole, cfg.Listener.Type)
	assert.False(t, cfg.LLM.Enabled)
	assert.Equal(t, "standard", cfg.Tracing.Level)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dispatch:
  threshold: 0.75
  confirm_timeout: 2.5
  serial_speech: false
  affirmative: [ja, oui]
  messages:
    fallback: "Hm?"
skills:
  builtin: false
listener:
  type: bus
  bus_url: ws://localhost:9000/bus
`), 0o644))

	Init()
	Viper().SetConfigFile(path)
	require.NoError(t, Viper().ReadInConfig())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.75, cfg.Dispatch.Threshold)
	assert.Equal(t, 2500*time.Millisecond, cfg.Dispatch.ConfirmTimeoutDuration())
	assert.False(t, cfg.Dispatch.SerialSpeech)
	assert.Equal(t, []string{"ja", "oui"}, cfg.Dispatch.Affirmative)
	assert.Equal(t, "Hm?", cfg.Dispatch.Messages.Fallback)
	assert.Equal(t, "Okay, cancelled.", cfg.Dispatch.Messages.Cancelled)
	assert.False(t, cfg.Skills.Builtin)
	assert.Equal(t, ListenerBus, cfg.Listener.Type)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("SKILLRT_DISPATCH_THRESHOLD", "0.9")
	t.Setenv("SKILLRT_STORE_PATH", ":memory:")

	Init()
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Dispatch.Threshold)
	assert.Equal(t, ":memory:", cfg.Store.Path)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value any
	}{
		{"dispatch.threshold", 1.5},
		{"dispatch.confirm_timeout", 0},
		{"dispatch.queue_size", 0},
		{"listener.type", "carrier-pigeon"},
		{"listener.type", ListenerBus},
		{"tracing.level", "verbose"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			Init()
			Viper().Set(tt.key, tt.value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SKILLRT_TEST_DOTENV=loaded\n"), 0o644))
	t.Setenv("SKILLRT_TEST_DOTENV", "")
	os.Unsetenv("SKILLRT_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("SKILLRT_TEST_DOTENV"))

	assert.Error(t, LoadDotEnv(filepath.Join(dir, "missing.env")))

	t.Chdir(dir)
	assert.NoError(t, LoadDotEnv(""), "missing default .env is fine")
}
