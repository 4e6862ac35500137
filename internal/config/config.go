package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// ClientConfig agrupa la configuración del cliente de sincronización.
type ClientConfig struct {
	APIBaseURL              string `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	IdentityBaseURL         string `env:"IDENTITY_BASE_URL"`
	IdentityPoolID          string `env:"IDENTITY_POOL_ID"`
	IdentityClientID        string `env:"IDENTITY_CLIENT_ID"`
	HTTPTimeoutSeconds      int    `env:"HTTP_TIMEOUT_SECONDS" envDefault:"10"`
	TransactionsPageSize    int    `env:"TRANSACTIONS_PAGE_SIZE" envDefault:"9"`
	TokenRefreshSkewSeconds int    `env:"TOKEN_REFRESH_SKEW_SECONDS" envDefault:"60"`
	LinkApplicationID       string `env:"LINK_APPLICATION_ID"`
	RedisAddr               string `env:"REDIS_ADDR"`
	RedisPassword           string `env:"REDIS_PASSWORD"`
	RedisDB                 int    `env:"REDIS_DB" envDefault:"0"`
}

// HTTPTimeout devuelve el timeout fijo de las llamadas HTTP.
func (c ClientConfig) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// RefreshSkew devuelve el margen antes de la expiración en que se renueva el token.
func (c ClientConfig) RefreshSkew() time.Duration {
	if c.TokenRefreshSkewSeconds < 0 {
		return 0
	}
	return time.Duration(c.TokenRefreshSkewSeconds) * time.Second
}

// IdentityURL devuelve la URL del proveedor de identidad; por defecto la misma API.
func (c ClientConfig) IdentityURL() string {
	if c.IdentityBaseURL != "" {
		return c.IdentityBaseURL
	}
	return c.APIBaseURL
}

// ServerConfig centraliza la configuración de la API de desarrollo.
type ServerConfig struct {
	HTTPPort             string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL          string `env:"DATABASE_URL"`
	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`
	IdentityClientID     string `env:"IDENTITY_CLIENT_ID"`
	LoginRateLimitMax    int    `env:"LOGIN_RATE_LIMIT_MAX" envDefault:"5"`
	LoginRateLimitWindow int    `env:"LOGIN_RATE_LIMIT_WINDOW_MINUTES" envDefault:"10"`
	RedisAddr            string `env:"REDIS_ADDR"`
	RedisPassword        string `env:"REDIS_PASSWORD"`
	RedisDB              int    `env:"REDIS_DB" envDefault:"0"`
	DemoUserEmail        string `env:"DEMO_USER_EMAIL"`
	DemoUserPassword     string `env:"DEMO_USER_PASSWORD"`
}

// InMemory indica si la API corre sin base de datos.
func (c ServerConfig) InMemory() bool {
	return c.DatabaseURL == ""
}

// LoginRateLimit devuelve la ventana y el máximo de intentos de login.
func (c ServerConfig) LoginRateLimit() (time.Duration, int) {
	window := time.Duration(c.LoginRateLimitWindow) * time.Minute
	if window <= 0 {
		window = 10 * time.Minute
	}
	return window, c.LoginRateLimitMax
}

// LoadClientConfig carga la configuración del cliente desde variables de entorno.
func LoadClientConfig() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadServerConfig carga la configuración del servidor desde variables de entorno.
func LoadServerConfig() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
