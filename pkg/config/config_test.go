package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 100*time.Microsecond, cfg.SampleInterval)
	assert.Equal(t, 60*time.Second, cfg.ExecTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("SAMPLE_INTERVAL", "1ms")
	t.Setenv("RATE_PER_SECOND", "3")
	t.Setenv("RATE_BURST", "not-a-number")

	cfg := Load()
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, time.Millisecond, cfg.SampleInterval)
	assert.Equal(t, 3, cfg.RatePerSecond)
	// Unparseable values fall back to the default.
	assert.Equal(t, 20, cfg.RateBurst)
}
