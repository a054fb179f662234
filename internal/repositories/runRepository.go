package repositories

import (
	"errors"

	"BollingerBot/internal/models"

	"gorm.io/gorm"
)

type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new instance of RunRepository
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create stores a run together with its trade ledger. gorm saves the Trades
// association inside the same transaction as the run row.
func (r *RunRepository) Create(run *models.BacktestRun) error {
	if run == nil {
		return errors.New("run cannot be nil")
	}
	for i := range run.Trades {
		run.Trades[i].Seq = i
	}
	return r.db.Create(run).Error
}

// FindByID retrieves a run with its trades in ledger order
func (r *RunRepository) FindByID(id uint) (*models.BacktestRun, error) {
	if id == 0 {
		return nil, errors.New("invalid id")
	}

	var run models.BacktestRun
	err := r.db.Preload("Trades", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	}).First(&run, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &run, err
}

// FindBest returns the runs for symbol with the highest final balance
func (r *RunRepository) FindBest(symbol string, limit int) ([]models.BacktestRun, error) {
	if symbol == "" {
		return nil, errors.New("invalid symbol")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	var runs []models.BacktestRun
	err := r.db.Where("symbol = ?", symbol).
		Order("final_balance DESC").
		Order("id ASC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
