// Package config содержит логику чтения конфигурации сервиса.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации магазина игровых аккаунтов.
// MinTopupAmount задаётся в основных денежных единицах.
type Config struct {
	RunAddress     string  `env:"RUN_ADDRESS"`
	DatabaseURI    string  `env:"DATABASE_URI"`
	JWTSecret      string  `env:"JWT_SECRET"`
	MinTopupAmount float64 `env:"MIN_TOPUP_AMOUNT"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значение из окружения имеет приоритет над флагом.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envJWTSecret := cfg.JWTSecret
	envMinTopup := cfg.MinTopupAmount

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.JWTSecret, "s", "", "secret key for signing JWT tokens")
	flag.Float64Var(&cfg.MinTopupAmount, "m", 10000, "minimum top-up amount")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envJWTSecret != "" {
		cfg.JWTSecret = envJWTSecret
	}
	if envMinTopup != 0 {
		cfg.MinTopupAmount = envMinTopup
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "gameshop-secret"
	}
	if cfg.MinTopupAmount <= 0 {
		cfg.MinTopupAmount = 10000
	}

	return cfg, nil
}
