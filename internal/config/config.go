// config предоставляет структуру конфигурации шлюза и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация шлюза.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Auth      AuthConfig      `yaml:"auth"`
	Google    GoogleConfig    `yaml:"google"`
	DB        DBConfig        `yaml:"db"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// TimeoutConfig — таймауты обработки запроса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// HTTPConfig — публичный REST-сервер.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"3000"`
	// TrustProxy — брать адрес клиента из X-Forwarded-For/X-Real-IP
	// (только за доверенным балансировщиком).
	TrustProxy bool `yaml:"trust_proxy" env:"HTTP_TRUST_PROXY"`
}

// GRPCConfig — внутренний gRPC-сервер интроспекции токенов.
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50051"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string { return net.JoinHostPort(g.Host, g.Port) }

// AuthConfig содержит параметры выпуска и валидации токенов.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Issuer          string        `yaml:"issuer" env:"JWT_TOKEN_ISSUER" env-default:"api-tourisme"`
	Audience        []string      `yaml:"audience" env:"JWT_TOKEN_AUDIENCE" env-default:"api-tourisme"`
	Leeway          time.Duration `yaml:"leeway" env:"JWT_LEEWAY" env-default:"5s"`
	BcryptCost      int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
	// SignInAccessOnly — при входе по паролю выдаётся только access-токен.
	SignInAccessOnly bool `yaml:"sign_in_access_only" env:"SIGN_IN_ACCESS_ONLY"`
}

// GoogleConfig — параметры проверки Google ID Token.
// ClientSecret не нужен для проверки ID-токена, но входит в поверхность
// конфигурации OAuth-клиента и хранится вместе с ClientID.
type GoogleConfig struct {
	ClientID             string   `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret         string   `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	JWKSURL              string   `yaml:"jwks_url" env:"GOOGLE_JWKS_URL" env-default:"https://www.googleapis.com/oauth2/v3/certs"`
	Issuers              []string `yaml:"issuers" env:"GOOGLE_ISSUERS" env-default:"accounts.google.com,https://accounts.google.com"`
	AllowUnverifiedEmail bool     `yaml:"allow_unverified_email" env:"GOOGLE_ALLOW_UNVERIFIED_EMAIL"`
}

// Enabled — федеративный вход сконфигурирован.
func (g GoogleConfig) Enabled() bool { return strings.TrimSpace(g.ClientID) != "" }

// DBConfig — настройки подключения к базе данных.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
}

// RedisConfig — опциональный Redis для общего лимитера входа.
// Пустой URL — используется лимитер в памяти процесса.
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
}

// RateLimitConfig — ограничение частоты попыток входа/регистрации на IP.
type RateLimitConfig struct {
	Limit  int           `yaml:"limit" env:"RATE_LIMIT" env-default:"10"`
	Window time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"1m"`
	Prefix string        `yaml:"prefix" env:"RATE_LIMIT_PREFIX" env-default:"auth:rl:"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML,
// затем конфигурация проходит Validate.
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func load(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}

// Validate отклоняет конфигурации, с которыми нельзя безопасно выпускать токены.
func (c *Config) Validate() error {
	const op = "config.Validate"

	var errs []error

	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth.jwt_secret is empty"))
	}

	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	} else if c.Auth.AccessTokenTTL >= c.Auth.RefreshTokenTTL {
		errs = append(errs, errors.New("access_token_ttl must be shorter than refresh_token_ttl"))
	}

	if c.Auth.Leeway < 0 || c.Auth.Leeway > 2*time.Minute {
		errs = append(errs, errors.New("auth.leeway must be within [0, 2m]"))
	}

	if strings.TrimSpace(c.Auth.Issuer) == "" || len(c.Auth.Audience) == 0 {
		errs = append(errs, errors.New("auth.issuer and auth.audience are required"))
	}

	if c.RateLimit.Limit < 0 {
		errs = append(errs, errors.New("rate_limit.limit must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s: %w", op, errors.Join(errs...))
	}

	return nil
}
