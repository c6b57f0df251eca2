package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustLoadPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: "dev"
http:
  address: ":9090"
room:
  ttl: 5m
  default_max_users: 3
storage:
  driver: "memory"
`), 0o600))

	cfg := MustLoadPath(path)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":9090", cfg.HTTP.Address)
	assert.Equal(t, 5*time.Minute, cfg.Room.TTL)
	assert.Equal(t, 3, cfg.Room.DefaultMaxUsers)
	assert.Equal(t, 2, cfg.Room.MinUsers)
	assert.Equal(t, 10, cfg.Room.MaxUsers)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, DriverRedis, cfg.Realtime.Driver)
}

func TestMustLoadPath_MissingFile(t *testing.T) {
	assert.Panics(t, func() {
		MustLoadPath(filepath.Join(t.TempDir(), "missing.yaml"))
	})
}

func TestSetDefaults_OutOfRangeDefaultMaxUsers(t *testing.T) {
	cfg := Config{Room: RoomConfig{DefaultMaxUsers: 42}}
	cfg.setDefaults()

	assert.Equal(t, 5, cfg.Room.DefaultMaxUsers)
	assert.Equal(t, 20*time.Minute, cfg.Room.TTL)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Empty(t, cfg.HTTP.AllowedOrigins)
}
