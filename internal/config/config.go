package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CounterScope selects how pool identifiers are allocated.
type CounterScope string

const (
	// CounterScopeGlobal shares one identifier sequence across all admins.
	CounterScopeGlobal CounterScope = "global"
	// CounterScopeAdmin gives each admin an independent sequence.
	CounterScopeAdmin CounterScope = "admin"
)

// Config holds the runtime configuration loaded from the environment.
type Config struct {
	ListenAddr   string
	GinMode      string
	DatabaseURL  string
	DBDriver     string // "postgres" or "sqlite"
	RedisAddr    string
	CounterScope CounterScope
	// DeployFeeBps is the protocol fee taken at deploy, in basis points of
	// the pooled amount. Default 500 (5%).
	DeployFeeBps int64
	// VenuePrice configures the built-in fixed-price venue used when no
	// external venue is wired.
	VenuePrice decimal.Decimal
	// RateLimitPerMinute caps authenticated requests per address.
	RateLimitPerMinute int
}

// Load reads configuration from the environment, honouring a .env file if
// one is present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("Could not load .env file")
	}

	cfg := &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		GinMode:            getEnv("GIN_MODE", "release"),
		DatabaseURL:        getEnv("DATABASE_URL", "file:surgefund.db?cache=shared"),
		DBDriver:           getEnv("DB_DRIVER", "sqlite"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		CounterScope:       CounterScopeGlobal,
		DeployFeeBps:       500,
		VenuePrice:         decimal.NewFromFloat(0.000001),
		RateLimitPerMinute: 120,
	}

	switch scope := getEnv("COUNTER_SCOPE", string(CounterScopeGlobal)); CounterScope(scope) {
	case CounterScopeGlobal, CounterScopeAdmin:
		cfg.CounterScope = CounterScope(scope)
	default:
		return nil, fmt.Errorf("invalid COUNTER_SCOPE %q", scope)
	}

	if v := os.Getenv("DEPLOY_FEE_BPS"); v != "" {
		bps, err := strconv.ParseInt(v, 10, 64)
		if err != nil || bps < 0 || bps > 10000 {
			return nil, fmt.Errorf("invalid DEPLOY_FEE_BPS %q", v)
		}
		cfg.DeployFeeBps = bps
	}

	if v := os.Getenv("VENUE_PRICE"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil || !price.IsPositive() {
			return nil, fmt.Errorf("invalid VENUE_PRICE %q", v)
		}
		cfg.VenuePrice = price
	}

	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE %q", v)
		}
		cfg.RateLimitPerMinute = n
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
