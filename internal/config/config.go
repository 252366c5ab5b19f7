package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	DevSecret = "dev-secret"
)

type Config struct {
	Env         string `yaml:"env" env:"APP_ENV" env-default:"local"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL" env-required:"true"`
	AutoMigrate bool   `yaml:"auto_migrate" env:"AUTO_MIGRATE" env-default:"true"`
	FrontendURL string `yaml:"frontend_url" env:"FRONTEND_URL" env-default:"http://localhost:5173"`

	JWT        `yaml:"jwt"`
	HTTPServer `yaml:"http_server"`
	GRPCAddr   string `yaml:"grpc_addr" env:"GRPC_ADDR" env-default:":50051"`
	Redis      `yaml:"redis"`
	SMTP       `yaml:"smtp"`
	Log        `yaml:"log"`
	RateLimit  `yaml:"rate_limit"`

	CORSOrigins        []string `yaml:"cors_origins" env:"CORS_ORIGINS" env-default:"*"`
	ChatbotIntentsPath string   `yaml:"chatbot_intents_path" env:"CHATBOT_INTENTS_PATH" env-default:"data/chatbot/intents.json"`
}

type JWT struct {
	Secret            string `yaml:"secret" env:"JWT_SECRET" env-default:"dev-secret"`
	ExpiresMinutes    int    `yaml:"expires_minutes" env:"JWT_EXPIRES_MINUTES" env-default:"480"`
	ResetTokenMinutes int    `yaml:"reset_token_minutes" env:"RESET_TOKEN_MINUTES" env-default:"30"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDR" env-default:":8080"`
	Timeout         time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

// empty Addr means appointment locks stay in process
type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Pass     string `yaml:"pass" env:"SMTP_PASS"`
	FromName string `yaml:"from_name" env:"EMAIL_FROM_NAME" env-default:"Fisioterapia RH"`
}

type Log struct {
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_FILE_MAX_SIZE_MB" env-default:"50"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_FILE_MAX_BACKUPS" env-default:"5"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_FILE_MAX_AGE_DAYS" env-default:"28"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"5"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"10"`
}

func (j JWT) TokenTTL() time.Duration      { return time.Duration(j.ExpiresMinutes) * time.Minute }
func (j JWT) ResetTokenTTL() time.Duration { return time.Duration(j.ResetTokenMinutes) * time.Minute }

// Load reads .env (if present), then CONFIG_PATH (if set) and the process
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown APP_ENV %q", c.Env)
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Env == EnvProd && c.JWT.Secret == DevSecret {
		return errors.New("JWT_SECRET must be set in prod")
	}
	if c.JWT.ExpiresMinutes <= 0 || c.JWT.ResetTokenMinutes <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	return nil
}

// IsDevelopment reports whether internal error details may be echoed to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvLocal || c.Env == EnvDev
}
