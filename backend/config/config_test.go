package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load([]string{"--env-file="})
	require.NoError(t, err)
	assert.Equal(t, &Config{
		APIListenAddr:    ":3000",
		WSListenAddr:     ":8888",
		LogLevel:         "info",
		GracePeriod:      10 * time.Second,
		CORSOrigins:      []string{"*"},
		ChannelBuffer:    64,
		MaxMessageLength: 500,
	}, cfg)
}

func TestLoad_Precedence(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"SYNCWATCH_LOG_LEVEL=debug\nSYNCWATCH_WS_LISTEN_ADDR=:7000\nOTHER_VAR=1\n"), 0o600))

	t.Setenv("SYNCWATCH_WS_LISTEN_ADDR", ":9999")
	t.Setenv("SYNCWATCH_CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("SYNCWATCH_GRACE_PERIOD", "30s")

	cfg, err := Load([]string{"-a", ":4000", "--grace-period=5s", "--env-file", envFile})
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.APIListenAddr)
	assert.Equal(t, ":9999", cfg.WSListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.GracePeriod)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown flag", args: []string{"--nope"}},
		{name: "zero grace", args: []string{"--grace-period=0s"}},
		{name: "negative buffer", args: []string{"--channel-buffer=-1"}},
		{name: "zero message length", args: []string{"--max-message-length=0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(append(tt.args, "--env-file="))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
