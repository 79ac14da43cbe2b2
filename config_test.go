package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("BOT_TOKEN", "test-token")
	t.Setenv("ADMIN_USERS", "alice, bob")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("DISPLAY_TIMEZONE", "UTC")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.BotToken)
	assert.Equal(t, []string{"alice", "bob"}, cfg.AdminUsers)
	assert.Equal(t, BackendSQLite, cfg.StorageBackend)
	assert.True(t, cfg.IsAdmin("alice"))
	assert.True(t, cfg.IsAdmin("bob"))
	assert.False(t, cfg.IsAdmin("mallory"))
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "test-token")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, BackendJSON, cfg.StorageBackend)
	assert.Equal(t, "events.json", cfg.EventsFile)
	assert.Equal(t, "responses.json", cfg.ResponsesFile)
	assert.Equal(t, "Asia/Tokyo", cfg.DisplayTimezone)
	assert.NotNil(t, cfg.Location())
}

func TestLoadConfigInvalidBackend(t *testing.T) {
	t.Setenv("BOT_TOKEN", "test-token")
	t.Setenv("STORAGE_BACKEND", "postgres")

	_, err := LoadConfig()
	assert.Error(t, err)
}
