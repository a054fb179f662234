package repositories

import (
	"errors"

	"BollingerBot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const saveBatchSize = 500

type PriceRepository struct {
	db *gorm.DB
}

// NewPriceRepository creates a new instance of PriceRepository
func NewPriceRepository(db *gorm.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// SaveBatch inserts bars, skipping any already stored for the same symbol,
// timeframe and open time
func (r *PriceRepository) SaveBatch(prices []models.Price) error {
	if len(prices) == 0 {
		return nil
	}

	rows := append([]models.Price(nil), prices...)
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "time_frame"}, {Name: "open_time"}},
		DoNothing: true,
	}).CreateInBatches(&rows, saveBatchSize).Error
}

// GetLatestPrices returns the newest limit bars, oldest first
func (r *PriceRepository) GetLatestPrices(symbol, timeFrame string, limit int) ([]models.Price, error) {
	if symbol == "" || timeFrame == "" {
		return nil, errors.New("invalid symbol or timeframe")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	var prices []models.Price
	err := r.db.Where("symbol = ? AND time_frame = ?", symbol, timeFrame).
		Order("open_time DESC").
		Limit(limit).
		Find(&prices).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(prices)-1; i < j; i, j = i+1, j-1 {
		prices[i], prices[j] = prices[j], prices[i]
	}
	return prices, nil
}
