package config

import "time"

type Config struct {
	Exchange ExchangeConfig
	Database DatabaseConfig
	Trading  TradingConfig
	Bands    BandsConfig
	Live     LiveConfig
	LogLevel string
}

type ExchangeConfig struct {
	APIKey    string
	SecretKey string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// Enabled reports whether a database was configured at all
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// TradingConfig holds the backtest parameters and the market to replay
type TradingConfig struct {
	Symbol          string
	Interval        string
	Limit           int
	InitialBalance  float64
	TradePercentage float64
	TakeProfit      float64
	StopLoss        float64
}

type BandsConfig struct {
	Window       int
	Deviations   float64
	ModelHorizon int
}

// LiveConfig drives the polling bot
type LiveConfig struct {
	StopLoss          float64
	PollInterval      time.Duration
	RetryDelay        time.Duration
	HistoryLimit      int
	QuantityPrecision int32
}
