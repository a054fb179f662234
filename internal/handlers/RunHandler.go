package handlers

import (
	"errors"
	"fmt"

	"BollingerBot/internal/logging"
	"BollingerBot/internal/models"

	"go.uber.org/zap"
)

const DefaultRunListLimit = 10

var ErrRunNotFound = errors.New("run not found")

// RunReader reads back stored runs. Satisfied by repositories.RunRepository.
type RunReader interface {
	FindByID(id uint) (*models.BacktestRun, error)
	FindBest(symbol string, limit int) ([]models.BacktestRun, error)
}

type RunHandler struct {
	runs   RunReader
	logger *zap.Logger
}

func NewRunHandler(runs RunReader, logger *zap.Logger) *RunHandler {
	return &RunHandler{runs: runs, logger: logging.OrNop(logger)}
}

// Best lists the stored runs for symbol by final balance, best first
func (h *RunHandler) Best(symbol string, limit int) ([]models.BacktestRun, error) {
	if limit <= 0 {
		limit = DefaultRunListLimit
	}
	runs, err := h.runs.FindBest(symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for %s: %w", symbol, err)
	}
	h.logger.Debug("Listed runs", zap.String("symbol", symbol), zap.Int("count", len(runs)))
	return runs, nil
}

// Show returns one run with its trade ledger
func (h *RunHandler) Show(id uint) (*models.BacktestRun, error) {
	run, err := h.runs.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %d: %w", id, err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return run, nil
}
