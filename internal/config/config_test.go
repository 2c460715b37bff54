package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-32-characters-long!!"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.History.Backend)
	assert.Equal(t, BackendMemory, cfg.Credentials.Backend)
	assert.Equal(t, time.Duration(0), cfg.History.Retention)
	assert.Equal(t, ChallengeModeStatic, cfg.Auth.ChallengeMode)
	assert.Equal(t, "123456", cfg.Auth.StaticCode)
	assert.Equal(t, AnomalyModeForest, cfg.Anomaly.Mode)
	assert.Equal(t, 30, cfg.Server.RateLimitPerMinute)
	assert.False(t, cfg.Notify.Enabled())
	assert.False(t, cfg.UsesPostgres())

	// Risk block defaults come from struct tags
	assert.Equal(t, 5*time.Minute, cfg.Risk.VelocityWindow)
	assert.Equal(t, 5, cfg.Risk.VelocityThreshold)
	assert.Equal(t, 40, cfg.Risk.VelocityPoints)
	assert.Equal(t, 30, cfg.Risk.NewDevicePoints)
	assert.Equal(t, []string{"1.2.3.4"}, cfg.Risk.Blocklist)
	assert.Equal(t, 80, cfg.Risk.BadIPPoints)
	assert.Equal(t, 35, cfg.Risk.AnomalyPoints)
	assert.Equal(t, 70, cfg.Risk.Policy.BlockAbove)
	assert.Equal(t, 20, cfg.Risk.Policy.ChallengeAbove)

	assert.Equal(t, int64(42), cfg.Anomaly.Temporal.Seed)
	assert.Equal(t, 8, cfg.Anomaly.Temporal.BandStart)
	assert.Equal(t, 18, cfg.Anomaly.Temporal.BandEnd)
}

func TestLoad_RiskOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("RISK_BLOCKLIST", "1.2.3.4,5.6.7.8")
	t.Setenv("RISK_VELOCITY_WINDOW", "10m")
	t.Setenv("RISK_BLOCK_ABOVE", "80")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"1.2.3.4", "5.6.7.8"}, cfg.Risk.Blocklist)
	assert.Equal(t, 10*time.Minute, cfg.Risk.VelocityWindow)
	assert.Equal(t, 80, cfg.Risk.Policy.BlockAbove)
}

func TestLoad_AnomalyOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("ENV", "staging")
	t.Setenv("ANOMALY_SEED", "7")
	t.Setenv("ANOMALY_BAND_START", "6")
	t.Setenv("ANOMALY_BAND_END", "20")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Server.Env)
	assert.Equal(t, int64(7), cfg.Anomaly.Temporal.Seed)
	assert.Equal(t, 6, cfg.Anomaly.Temporal.BandStart)
	assert.Equal(t, 20, cfg.Anomaly.Temporal.BandEnd)
	assert.Equal(t, 0.1, cfg.Anomaly.Temporal.Contamination)
}

func TestLoad_InvalidRiskEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("RISK_VELOCITY_WINDOW", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing jwt secret", map[string]string{"JWT_SECRET": ""}},
		{"short jwt secret", map[string]string{"JWT_SECRET": "short"}},
		{"short production secret", map[string]string{"ENV": "production", "JWT_SECRET": "sixteen-chars-ok", "CHALLENGE_MODE": "totp", "CHALLENGE_TOTP_SECRET": "JBSWY3DPEHPK3PXP"}},
		{"unknown history backend", map[string]string{"HISTORY_BACKEND": "cassandra"}},
		{"unknown credential backend", map[string]string{"CREDENTIAL_BACKEND": "redis"}},
		{"postgres without password", map[string]string{"HISTORY_BACKEND": "postgres"}},
		{"retention shorter than velocity window", map[string]string{"HISTORY_RETENTION": "1m"}},
		{"challenge above block", map[string]string{"RISK_CHALLENGE_ABOVE": "80"}},
		{"negative points", map[string]string{"RISK_VELOCITY_POINTS": "-5"}},
		{"empty anomaly band", map[string]string{"ANOMALY_BAND_START": "20", "ANOMALY_BAND_END": "4"}},
		{"unknown anomaly mode", map[string]string{"ANOMALY_MODE": "neural"}},
		{"totp without secret", map[string]string{"CHALLENGE_MODE": "totp"}},
		{"static code in production", map[string]string{"ENV": "production"}},
		{"unparseable risk value", map[string]string{"RISK_BAD_IP_POINTS": "lots"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", testSecret)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_RetentionAtLeastVelocityWindow(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HISTORY_RETENTION", "24h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.History.Retention)
	assert.Equal(t, time.Hour, cfg.History.SweepInterval)
}

func TestServerConfig_Timeouts(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SERVER_READ_TIMEOUT", "25s")
	t.Setenv("SERVER_IDLE_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
}

func TestLoad_TrustedProxiesAndOrigins(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.0.0/16 ,")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.0/8", "192.168.0.0/16"}, cfg.Server.TrustedProxies)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
}

func TestNotifyConfig_Enabled(t *testing.T) {
	assert.False(t, NotifyConfig{SESRegion: "us-east-1"}.Enabled())
	assert.True(t, NotifyConfig{SESRegion: "us-east-1", SESFromAddress: "alerts@example.com"}.Enabled())
}

func TestLoadDatabase(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("DB_MAX_CONNS", "10")

	db := LoadDatabase()
	assert.Equal(t, "db.internal", db.Host)
	assert.Equal(t, int32(10), db.MaxConns)
	assert.Equal(t, "host=db.internal port=5432 user=postgres password=s3cret dbname=riskgate sslmode=disable", db.DSN())
}
