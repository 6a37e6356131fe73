package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GO_ENV", "test")
	t.Setenv("DATABASE_URL", "sqlite::memory:")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "GHS", cfg.PaymentCurrency)
	assert.Equal(t, "https://api.paystack.co", cfg.PaystackBaseURL)
	assert.Equal(t, "bitecraft.com", cfg.PaymentFallbackEmailDomain)
	assert.Equal(t, "log", cfg.NotifyDriver)
	assert.Empty(t, cfg.NotifySecret)
	assert.Equal(t, 15*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 3, cfg.GatewayMaxAttempts)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.IsTest())
	assert.False(t, cfg.UsesS3())
	assert.Same(t, cfg, GetConfig(), "Load should publish the config")
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PAYMENT_CURRENCY", "NGN")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("GATEWAY_MAX_ATTEMPTS", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example.com, https://admin.example.com")
	t.Setenv("RECONCILE_AFTER", "1h")
	t.Setenv("AWS_S3_BUCKET", "menu-images")
	t.Setenv("NOTIFY_SECRET", "dispatch-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "NGN", cfg.PaymentCurrency)
	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 5, cfg.GatewayMaxAttempts)
	assert.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, time.Hour, cfg.ReconcileAfter)
	assert.True(t, cfg.UsesS3())
	assert.Equal(t, "dispatch-secret", cfg.NotifySecret)
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NOTIFY_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.NotifyTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing database url",
			cfg:     Config{NotifyDriver: "log", GatewayMaxAttempts: 1},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "production without paystack key",
			cfg:     Config{DatabaseURL: "x", GoEnv: "production", NotifyDriver: "log", GatewayMaxAttempts: 1},
			wantErr: "PAYSTACK_SECRET_KEY",
		},
		{
			name:    "unknown notify driver",
			cfg:     Config{DatabaseURL: "x", NotifyDriver: "pigeon", GatewayMaxAttempts: 1},
			wantErr: "NOTIFY_DRIVER",
		},
		{
			name:    "http driver without url",
			cfg:     Config{DatabaseURL: "x", NotifyDriver: "http", GatewayMaxAttempts: 1},
			wantErr: "NOTIFY_WEBHOOK_URL",
		},
		{
			name:    "amqp driver without url",
			cfg:     Config{DatabaseURL: "x", NotifyDriver: "amqp", GatewayMaxAttempts: 1},
			wantErr: "AMQP_URL",
		},
		{
			name:    "zero gateway attempts",
			cfg:     Config{DatabaseURL: "x", NotifyDriver: "log"},
			wantErr: "GATEWAY_MAX_ATTEMPTS",
		},
		{
			name: "valid",
			cfg:  Config{DatabaseURL: "x", NotifyDriver: "log", GatewayMaxAttempts: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvironmentHelpers(t *testing.T) {
	tests := []struct {
		env         string
		production  bool
		development bool
		test        bool
	}{
		{env: "production", production: true},
		{env: "development", development: true},
		{env: "test", test: true},
		{env: "staging"},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := &Config{GoEnv: tt.env}
			assert.Equal(t, tt.production, cfg.IsProduction())
			assert.Equal(t, tt.development, cfg.IsDevelopment())
			assert.Equal(t, tt.test, cfg.IsTest())
		})
	}
}

func TestSetConfig(t *testing.T) {
	previous := GetConfig()
	t.Cleanup(func() { SetConfig(previous) })

	cfg := &Config{Port: "9090"}
	SetConfig(cfg)
	assert.Same(t, cfg, GetConfig())
}
