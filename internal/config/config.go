package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds Telegram credentials and runtime settings. Credentials are
// required; everything else has a usable default.
type Config struct {
	TGAPIID       int    `env:"TG_API_ID,required,notEmpty"`
	TGAPIHash     string `env:"TG_API_HASH,required,notEmpty"`
	TGPhone       string `env:"TG_PHONE,required,notEmpty"`
	TG2FAPassword string `env:"TG_2FA_PASSWORD"`
	TGSessionPath string `env:"TG_SESSION_PATH" envDefault:"./tg-downloader.session"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	RateLimitRPS  int    `env:"RATE_LIMIT_RPS" envDefault:"1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("missing or invalid Telegram API credentials (set TG_API_ID, TG_API_HASH and TG_PHONE): %w", err)
	}

	return cfg, nil
}
