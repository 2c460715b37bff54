package database

import (
	"testing"
	"time"

	"github.com/BradenHooton/riskgate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:              "db.internal",
		Port:              5433,
		User:              "riskgate",
		Password:          "secret",
		Name:              "history",
		SSLMode:           "disable",
		MaxConns:          12,
		MinConns:          3,
		MaxConnLifetime:   30 * time.Minute,
		MaxConnIdleTime:   5 * time.Minute,
		HealthCheckPeriod: time.Minute,
	}

	poolConfig, err := PoolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(12), poolConfig.MaxConns)
	assert.Equal(t, int32(3), poolConfig.MinConns)
	assert.Equal(t, 30*time.Minute, poolConfig.MaxConnLifetime)
	assert.Equal(t, 5*time.Minute, poolConfig.MaxConnIdleTime)
	assert.Equal(t, time.Minute, poolConfig.HealthCheckPeriod)
	assert.Equal(t, "db.internal", poolConfig.ConnConfig.Host)
	assert.Equal(t, uint16(5433), poolConfig.ConnConfig.Port)
	assert.Equal(t, "history", poolConfig.ConnConfig.Database)
	assert.Equal(t, "riskgate", poolConfig.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, "UTC", poolConfig.ConnConfig.RuntimeParams["timezone"])
}

func TestPoolConfig_InvalidSSLMode(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "localhost", Port: 5432, User: "u", Name: "d", SSLMode: "sometimes"}

	_, err := PoolConfig(cfg)
	assert.Error(t, err)
}

func TestWrap_NilLogger(t *testing.T) {
	db := Wrap(nil, nil)
	assert.NotNil(t, db.logger)
	assert.Nil(t, db.Pool)
}
