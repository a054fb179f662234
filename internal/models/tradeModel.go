package models

import (
	"time"
)

// TradeRecord is one row of a run's trade ledger
type TradeRecord struct {
	ID    uint   `gorm:"primaryKey"`
	RunID uint   `gorm:"index;not null"`
	Seq   int    `gorm:"not null"`
	Type  string `gorm:"not null"`

	Price         float64 `gorm:"type:decimal(20,8);not null"`
	Quantity      float64 `gorm:"type:decimal(20,8);not null"`
	CashBalance   float64 `gorm:"type:decimal(20,8);not null"`
	AssetQuantity float64 `gorm:"type:decimal(20,8);not null"`

	BarIndex int
	BarTime  time.Time
	Reason   string
}

const (
	TradeTypeBuy  = "BUY"
	TradeTypeSell = "SELL"
)
