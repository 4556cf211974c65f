package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 1500, c.MTU)
	assert.Equal(t, 1420, c.MSS)
	assert.Equal(t, uint8(8), c.WindowScale)
	assert.Equal(t, 1460, c.MaxMSS())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
mss: 1200
window_scale: 4
fast_timer_interval: 100ms
reset_unmatched: false
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1200, c.MSS)
	assert.Equal(t, uint8(4), c.WindowScale)
	assert.Equal(t, 100*time.Millisecond, c.FastTimerInterval)
	assert.Equal(t, 500*time.Millisecond, c.SlowTimerInterval)
	assert.False(t, c.ResetUnmatched)
	assert.Equal(t, 1500, c.MTU)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mss: 1500\n"), 0o600))
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{name: "window scale", modify: func(c *Config) { c.WindowScale = 15 }},
		{name: "mss", modify: func(c *Config) { c.MSS = 0 }},
		{name: "mtu", modify: func(c *Config) { c.MTU = 30 }},
		{name: "receive window", modify: func(c *Config) { c.WindowScale = 0; c.ReceiveWindow = 0x10000 }},
		{name: "ttl", modify: func(c *Config) { c.TTL = 0 }},
		{name: "fast timer", modify: func(c *Config) { c.FastTimerInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}
