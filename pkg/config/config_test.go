package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Engine.ProviderTimeout)
	assert.Equal(t, 30, cfg.Engine.BaselineWindowDays)
	assert.Equal(t, 20, cfg.Engine.WindowSize)
	assert.Equal(t, 100.0, cfg.Engine.HarborRadiusKm)
	assert.Equal(t, "vessel", cfg.NATS.SubjectPrefix)
	assert.Equal(t, 2160*time.Hour, cfg.Sweeper.Retention)
	assert.Equal(t, map[string]string{"Service": "vessel-guard"}, cfg.CloudWatch.MetricsDimensions)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("ENGINE_PROVIDER_TIMEOUT", "750ms")
	t.Setenv("ENGINE_HARBOR_RADIUS_KM", "55.5")
	t.Setenv("ALLOWED_ORIGINS", "https://bridge.example, https://crew.example")
	t.Setenv("CLOUDWATCH_METRICS_DIMENSIONS", "Service=api,Env=prod,broken")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("SWEEPER_RETENTION", "0s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.Engine.ProviderTimeout)
	assert.Equal(t, 55.5, cfg.Engine.HarborRadiusKm)
	assert.Equal(t, []string{"https://bridge.example", "https://crew.example"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, map[string]string{"Service": "api", "Env": "prod"}, cfg.CloudWatch.MetricsDimensions)
	assert.True(t, cfg.Redis.Enabled)
	assert.Zero(t, cfg.Sweeper.Retention)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "bad duration", env: map[string]string{"ENGINE_PROVIDER_TIMEOUT": "soon"}, want: "ENGINE_PROVIDER_TIMEOUT"},
		{name: "zero window", env: map[string]string{"ENGINE_WINDOW_SIZE": "0"}, want: "ENGINE_WINDOW_SIZE"},
		{name: "s3 without bucket", env: map[string]string{"S3_ENABLED": "true"}, want: "S3_BUCKET"},
		{name: "negative retention", env: map[string]string{"SWEEPER_RETENTION": "-1h"}, want: "SWEEPER_RETENTION"},
		{name: "zero burst", env: map[string]string{"RATE_LIMIT_BURST": "0"}, want: "RATE_LIMIT_BURST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5433", User: "guard", Password: "secret", Database: "vessel_guard"}
	assert.Equal(t, "host=db port=5433 user=guard password=secret dbname=vessel_guard sslmode=disable", db.DSN())
}
