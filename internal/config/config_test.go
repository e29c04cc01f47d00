package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(values map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg, err := FromViper(newViper(map[string]any{
		"jwt_secret": "s3cret",
		"db_user":    "deals",
	}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 1.8, cfg.Ranking.Gravity)
	assert.Equal(t, 10*time.Minute, cfg.Ranking.RescoreInterval)
	assert.Equal(t, 20, cfg.Feed.PageSize)
	assert.Equal(t, 100, cfg.Feed.MaxLimit)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Contains(t, cfg.Database.DSN(), "user=deals")
	assert.Contains(t, cfg.Database.DSN(), "dbname=postgres")
}

func TestFromViperOverrides(t *testing.T) {
	cfg, err := FromViper(newViper(map[string]any{
		"jwt_secret":       "s3cret",
		"database_url":     "postgres://u:p@db:5432/deals?sslmode=disable",
		"allowed_origins":  "https://a.example, https://b.example",
		"hot_gravity":      1.5,
		"rescore_interval": "0s",
		"feed_page_size":   10,
		"log_level":        "DEBUG",
	}))
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/deals?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 1.5, cfg.Ranking.Gravity)
	assert.Zero(t, cfg.Ranking.RescoreInterval)
	assert.Equal(t, 10, cfg.Feed.PageSize)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestFromViperValidation(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		errMsg string
	}{
		{"missing jwt secret", map[string]any{"db_user": "u"}, "JWT_SECRET"},
		{"missing db user", map[string]any{"jwt_secret": "s"}, "DB_USER"},
		{"bad gravity", map[string]any{"jwt_secret": "s", "db_user": "u", "hot_gravity": 0}, "HOT_GRAVITY"},
		{"page size above max", map[string]any{"jwt_secret": "s", "db_user": "u", "feed_page_size": 500}, "feed limits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromViper(newViper(tt.values))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
