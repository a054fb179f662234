package models

import "time"

// BacktestRun stores the parameters and outcome of one engine run
type BacktestRun struct {
	ID        uint   `gorm:"primaryKey"`
	Symbol    string `gorm:"index;not null"`
	TimeFrame string `gorm:"not null"`
	Strategy  string `gorm:"not null"`

	InitialBalance  float64 `gorm:"type:decimal(20,8);not null"`
	TradePercentage float64 `gorm:"type:decimal(20,8);not null"`
	TakeProfit      float64 `gorm:"type:decimal(20,8);not null"`
	StopLoss        float64 `gorm:"type:decimal(20,8);not null"`

	FinalBalance float64 `gorm:"type:decimal(20,8);index"`
	RoundTrips   int
	WinRate      float64 `gorm:"type:decimal(20,8)"`
	MaxDrawdown  float64 `gorm:"type:decimal(20,8)"`
	SharpeRatio  float64 `gorm:"type:decimal(20,8)"`
	OpenPosition bool

	FirstBar time.Time
	LastBar  time.Time

	Trades []TradeRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

const (
	StrategyBollinger = "bollinger"
	StrategyModel     = "model"
)
