package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: memory
jwt:
  secret: test-secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 1.0, cfg.Search.DefaultRadiusKm)
	assert.Equal(t, 1000, cfg.Search.MaxCandidates)
	assert.Equal(t, 5*time.Second, cfg.Search.QueryTimeout)
	assert.Equal(t, time.Hour, cfg.AWS.URLTTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ParsesValues(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9000
  read_timeout: 3s
database:
  host: db
  port: 5432
  user: spots
  password: secret
  dbname: studyspots
storage:
  backend: postgres
aws:
  region: eu-west-1
  s3_bucket: photos
  url_ttl: 10m
jwt:
  secret: abc
  ttl: 2h
search:
  default_radius_km: 2.5
  max_radius_km: 50
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Minute, cfg.AWS.URLTTL)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 2.5, cfg.Search.DefaultRadiusKm)
	assert.Equal(t, "host=db port=5432 user=spots password=secret dbname=studyspots sslmode=disable", cfg.Database.DSN())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing jwt secret", body: "storage:\n  backend: memory\n"},
		{name: "unknown backend", body: "storage:\n  backend: mongo\njwt:\n  secret: x\n"},
		{name: "postgres without host", body: "storage:\n  backend: postgres\njwt:\n  secret: x\n"},
		{name: "port out of range", body: "server:\n  port: 70000\nstorage:\n  backend: memory\njwt:\n  secret: x\n"},
		{name: "default radius above max", body: "storage:\n  backend: memory\njwt:\n  secret: x\nsearch:\n  default_radius_km: 10\n  max_radius_km: 5\n"},
		{name: "not yaml", body: "server: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv("STUDYSPOT_CONFIG", "")
	assert.Equal(t, "config.yaml", Path())

	t.Setenv("STUDYSPOT_CONFIG", "/etc/studyspot.yaml")
	assert.Equal(t, "/etc/studyspot.yaml", Path())
}
