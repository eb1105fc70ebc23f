package config

import (
	"fmt"
	"strings"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL    string `env:"DATABASE_URL,required"`
	JWTSecret      string `env:"JWT_SECRET,required"`
	JWTExpiryHours int    `env:"JWT_EXPIRY_HOURS" envDefault:"24"`
	Port           int    `env:"PORT" envDefault:"8080"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv         string `env:"APP_ENV" envDefault:"production"`

	// Bookkeeping platform access.
	BoekhoudenURL   string `env:"BOEKHOUDEN_URL" envDefault:"http://mock-boekhouden:8081"`
	BoekhoudenToken string `env:"BOEKHOUDEN_TOKEN,required"`
	SyncIntervalS   int    `env:"SYNC_INTERVAL_S" envDefault:"300"`

	// Account resolution defaults, by chart-of-accounts code.
	DefaultBankAccount       string `env:"DEFAULT_BANK_ACCOUNT" envDefault:"10440"`
	DefaultCashAccount       string `env:"DEFAULT_CASH_ACCOUNT" envDefault:"10000"`
	DefaultReceivableAccount string `env:"DEFAULT_RECEIVABLE_ACCOUNT" envDefault:"13900"`
	DefaultPayableAccount    string `env:"DEFAULT_PAYABLE_ACCOUNT" envDefault:"44000"`

	// Description substring -> account code, "triodos=10440,paypal=10470".
	BankDescPatterns string `env:"BANK_DESC_PATTERNS" envDefault:"triodos=10440,paypal=10470,asn=10620,kas=10000,cash=10000"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// DescPatterns parses BankDescPatterns into an ordered pattern list.
// Malformed segments are skipped.
func (c *Config) DescPatterns() [][2]string {
	var out [][2]string
	for _, seg := range strings.Split(c.BankDescPatterns, ",") {
		pattern, account, ok := strings.Cut(strings.TrimSpace(seg), "=")
		if !ok || pattern == "" || account == "" {
			continue
		}
		out = append(out, [2]string{strings.ToLower(pattern), account})
	}
	return out
}
