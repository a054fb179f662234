package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultSymbol          = "BTCUSDT"
	DefaultInterval        = "1d"
	DefaultLimit           = 300
	DefaultInitialBalance  = 10000.0
	DefaultTradePercentage = 1.0
	DefaultTakeProfit      = 0.20
	DefaultStopLoss        = 0.05
	DefaultLiveStopLoss    = 0.04
)

// Load reads the given dotenv files, or .env when none are given, then the
// process environment. Only the default .env may be missing.
func Load(files ...string) (*Config, error) {
	err := godotenv.Load(files...)
	if err != nil && (len(files) > 0 || !errors.Is(err, fs.ErrNotExist)) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	return &Config{
		Exchange: ExchangeConfig{
			APIKey:    os.Getenv("BINANCE_API_KEY"),
			SecretKey: os.Getenv("BINANCE_SECRET_KEY"),
		},
		Database: DatabaseConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     EnvtoInt(os.Getenv("DB_PORT")),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
		},
		Trading: TradingConfig{
			Symbol:          envOr("TRADING_SYMBOL", DefaultSymbol),
			Interval:        envOr("TRADING_INTERVAL", DefaultInterval),
			Limit:           EnvToIntOr("TRADING_LIMIT", DefaultLimit),
			InitialBalance:  EnvToFloat("INITIAL_BALANCE", DefaultInitialBalance),
			TradePercentage: EnvToFloat("TRADE_PERCENTAGE", DefaultTradePercentage),
			TakeProfit:      EnvToFloat("TAKE_PROFIT_PERCENTAGE", DefaultTakeProfit),
			StopLoss:        EnvToFloat("STOP_LOSS_PERCENTAGE", DefaultStopLoss),
		},
		Bands: BandsConfig{
			Window:       EnvToIntOr("BB_WINDOW", 20),
			Deviations:   EnvToFloat("BB_DEVIATIONS", 2),
			ModelHorizon: EnvToIntOr("MODEL_HORIZON", 3),
		},
		Live: LiveConfig{
			StopLoss:          EnvToFloat("LIVE_STOP_LOSS_PERCENTAGE", DefaultLiveStopLoss),
			PollInterval:      EnvToDuration("LIVE_POLL_INTERVAL", 24*time.Hour),
			RetryDelay:        EnvToDuration("LIVE_RETRY_DELAY", time.Minute),
			HistoryLimit:      EnvToIntOr("LIVE_HISTORY_LIMIT", 100),
			QuantityPrecision: int32(EnvToIntOr("LIVE_QUANTITY_PRECISION", 5)),
		},
		LogLevel: envOr("LOG_LEVEL", "info"),
	}, nil
}

// helper env(string) to int
func EnvtoInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// EnvToIntOr returns the integer value of key, or def when unset or malformed
func EnvToIntOr(key string, def int) int {
	i, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return i
}

func EnvToFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return f
}

func EnvToDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return d
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
