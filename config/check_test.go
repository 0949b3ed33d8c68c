package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-redub/internal/appdirs"
)

func TestCheckAcceptsDefaults(t *testing.T) {
	c := defaultConfig()
	require.NoError(t, c.Check())
	assert.Nil(t, c.App.ParsedProxy)
}

func TestCheckParsesProxy(t *testing.T) {
	c := defaultConfig()
	c.App.Proxy = "http://127.0.0.1:7890"

	require.NoError(t, c.Check())
	require.NotNil(t, c.App.ParsedProxy)
	assert.Equal(t, "127.0.0.1:7890", c.App.ParsedProxy.Host)
}

func TestCheckRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown transcribe provider", func(c *Config) { c.Transcribe.Provider = "sphinx" }},
		{"openai transcribe without key", func(c *Config) { c.Transcribe.Provider = TranscribeProviderOpenai }},
		{"unknown translate provider", func(c *Config) { c.Translate.Provider = "babelfish" }},
		{"openai translate without key", func(c *Config) { c.Translate.Provider = TranslateProviderOpenai }},
		{"doubao without credentials", func(c *Config) { c.Tts.Provider = TtsProviderDoubao }},
		{"minimax without key", func(c *Config) { c.Tts.Provider = TtsProviderMinimax }},
		{"speed too slow", func(c *Config) { c.Tts.SpeedRate = 0.2 }},
		{"speed too fast", func(c *Config) { c.Tts.SpeedRate = 3.5 }},
		{"zero attempts", func(c *Config) { c.Tts.Attempts = 0 }},
		{"negative delay", func(c *Config) { c.Tts.RetryDelaySeconds = -1 }},
		{"volume above one", func(c *Config) { c.Compose.OriginalVolume = 1.5 }},
		{"negative volume", func(c *Config) { c.Compose.OriginalVolume = -0.1 }},
		{"three channels", func(c *Config) { c.Compose.Channels = 3 }},
		{"unknown accelerator", func(c *Config) { c.Compose.Accelerator = "tpu" }},
		{"redis without addr", func(c *Config) { c.Queue.Backend = QueueBackendRedis; c.Queue.RedisAddr = "" }},
		{"unknown queue backend", func(c *Config) { c.Queue.Backend = "kafka" }},
		{"bad log level", func(c *Config) { c.App.LogLevel = "chatty" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaultConfig()
			tt.mutate(&c)
			assert.Error(t, c.Check())
		})
	}
}

func TestCheckNormalizesCounts(t *testing.T) {
	c := defaultConfig()
	c.Translate.Attempts = 0
	c.Queue.Concurrency = 0

	require.NoError(t, c.Check())
	assert.Equal(t, 1, c.Translate.Attempts)
	assert.Equal(t, 1, c.Queue.Concurrency)
}

func TestCheckRejectsWorkDirThatIsAFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "work")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	c := defaultConfig()
	c.App.WorkDir = file
	err := c.Check()
	require.Error(t, err)
	assert.ErrorIs(t, err, appdirs.ErrWorkDirNotDir)

	c.App.WorkDir = filepath.Dir(file)
	assert.NoError(t, c.Check())
}
