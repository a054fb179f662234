package models

import (
	"time"
)

// Price is one OHLCV bar. The backtest engine reads Close and OpenTime only;
// the rest is kept for storage and reporting.
type Price struct {
	ID         uint      `gorm:"primaryKey"`
	Symbol     string    `gorm:"uniqueIndex:idx_price_bar;not null"`
	TimeFrame  string    `gorm:"uniqueIndex:idx_price_bar;not null"`
	OpenTime   time.Time `gorm:"uniqueIndex:idx_price_bar;not null"`
	CloseTime  time.Time `gorm:"index"`
	Open       float64   `gorm:"type:decimal(20,8)"`
	Close      float64   `gorm:"type:decimal(20,8)"`
	High       float64   `gorm:"type:decimal(20,8)"`
	Low        float64   `gorm:"type:decimal(20,8)"`
	Volume     float64   `gorm:"type:decimal(20,8)"`
	TradeCount int64
}

const (
	PriceTimeFrame1h = "1h"
	PriceTimeFrame1d = "1d"
)

// TableName sets the table name for Price model
func (Price) TableName() string {
	return "prices"
}

// Closes extracts the closing prices in order
func Closes(prices []Price) []float64 {
	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
	}
	return closes
}
