package api_gateway_config

import (
	common "github.com/NordCoder/Ratewatch/internal/config/common"
)

func Load(path string) (*Config, error) {
	v := common.NewViper(path)
	common.SetSharedDefaults(v, "api-gateway")

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.grpc_addr", ":9090")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "5s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_timeout", "15s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.auth_rate_limit", "10-M")

	v.SetDefault("db.max_conns", 20)
	v.SetDefault("db.min_conns", 5)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_ttl", "15m")
	v.SetDefault("auth.refresh_ttl", "720h")
	v.SetDefault("auth.cookie_name", "refresh_token")
	v.SetDefault("auth.cookie_path", "/v1/auth")
	v.SetDefault("auth.cookie_secure", false)

	v.SetDefault("alerts.quote_currency", "BRL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.DB.DSN == "" {
		return nil, common.ErrConfig("db.dsn is empty")
	}
	if len(cfg.Auth.JWTSecret) < 16 {
		return nil, common.ErrConfig("auth.jwt_secret must be at least 16 bytes")
	}
	return &cfg, nil
}
