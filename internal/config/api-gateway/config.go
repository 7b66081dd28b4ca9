package api_gateway_config

import (
	"time"

	common "github.com/NordCoder/Ratewatch/internal/config/common"
	pg "github.com/NordCoder/Ratewatch/internal/repository/postgres"
)

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	AuthRateLimit   string        `mapstructure:"auth_rate_limit"`
}

type Auth struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	AccessTTL    time.Duration `mapstructure:"access_ttl"`
	RefreshTTL   time.Duration `mapstructure:"refresh_ttl"`
	CookieName   string        `mapstructure:"cookie_name"`
	CookieDomain string        `mapstructure:"cookie_domain"`
	CookiePath   string        `mapstructure:"cookie_path"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
}

type Alerts struct {
	QuoteCurrency string `mapstructure:"quote_currency"`
}

type Config struct {
	App    common.App  `mapstructure:"app"`
	Server Server      `mapstructure:"server"`
	DB     pg.Config   `mapstructure:"db"`
	OTEL   common.OTEL `mapstructure:"otel"`
	Log    common.Log  `mapstructure:"log"`
	Auth   Auth        `mapstructure:"auth"`
	Alerts Alerts      `mapstructure:"alerts"`
}
