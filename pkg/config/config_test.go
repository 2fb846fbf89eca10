package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 2, cfg.Database.MinIdleConns)
	assert.Equal(t, "overpass", cfg.Search.Provider)
	assert.Equal(t, DefaultOverpassEndpoints, cfg.Search.OverpassEndpoints)
	assert.True(t, cfg.Search.LatitudeFilter)
	assert.InDelta(t, DefaultMaxLatitude, cfg.Search.MaxLatitude, 1e-9)
	assert.InDelta(t, 30.0, cfg.Search.DedupRadiusMeters, 1e-9)
	assert.Equal(t, 3, cfg.Search.MaxPages)
	assert.Equal(t, 3, cfg.Search.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Search.PageTokenDelay)
	assert.Equal(t, 30*time.Second, cfg.Search.RequestTimeout)
}

func TestLoad_SearchOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SEARCH_PROVIDER", "Google")
	t.Setenv("GOOGLE_MAPS_API_KEY", "test-key")
	t.Setenv("SEARCH_MAX_LATITUDE", "36.05")
	t.Setenv("SEARCH_PAGE_TOKEN_DELAY", "1500ms")
	t.Setenv("OVERPASS_ENDPOINTS", " https://a.example/api , ,https://b.example/api")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "google", cfg.Search.Provider)
	assert.Equal(t, "test-key", cfg.Search.GoogleAPIKey)
	assert.InDelta(t, 36.05, cfg.Search.MaxLatitude, 1e-9)
	assert.Equal(t, 1500*time.Millisecond, cfg.Search.PageTokenDelay)
	assert.Equal(t, []string{"https://a.example/api", "https://b.example/api"}, cfg.Search.OverpassEndpoints)
}

func TestLoad_GoogleRequiresKey(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SEARCH_PROVIDER", "google")
	t.Setenv("GOOGLE_MAPS_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_MAPS_API_KEY")
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SEARCH_PROVIDER", "bing")

	_, err := Load()
	require.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "app", Password: "secret", Database: "hospital_map", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=app password=secret dbname=hospital_map sslmode=require", cfg.DatabaseDSN())

	cfg.URL = "postgres://app:secret@db:5433/hospital_map?sslmode=require"
	assert.Equal(t, cfg.URL, cfg.DatabaseDSN())
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.RedisAddr())
}
