package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("TG_API_ID", "123456")
	t.Setenv("TG_API_HASH", "abcdef0123456789")
	t.Setenv("TG_PHONE", "+15551234567")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 123456, cfg.TGAPIID)
	assert.Equal(t, "abcdef0123456789", cfg.TGAPIHash)
	assert.Equal(t, "+15551234567", cfg.TGPhone)
	assert.Equal(t, "./tg-downloader.session", cfg.TGSessionPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1, cfg.RateLimitRPS)
}

func TestLoadMissingCredentials(t *testing.T) {
	t.Setenv("TG_API_ID", "123456")
	t.Setenv("TG_API_HASH", "abcdef0123456789")
	t.Setenv("TG_PHONE", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TG_PHONE")
}
