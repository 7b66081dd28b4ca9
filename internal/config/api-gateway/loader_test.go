package api_gateway_config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresSecret(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("SERVER_HTTP_ADDR", ":18080")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":18080", cfg.Server.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, int32(20), cfg.DB.MaxConns)
	assert.Equal(t, "api-gateway", cfg.App.Name)
	assert.Equal(t, "BRL", cfg.Alerts.QuoteCurrency)
}
