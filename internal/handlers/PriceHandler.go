package handlers

import (
	"context"
	"fmt"

	"BollingerBot/internal/logging"
	"BollingerBot/internal/models"

	"go.uber.org/zap"
)

// BarLoader is satisfied by price.Loader
type BarLoader interface {
	Load(ctx context.Context, symbol, interval string, limit int) ([]models.Price, error)
}

type PriceHandler struct {
	loader BarLoader
	logger *zap.Logger
}

func NewPriceHandler(loader BarLoader, logger *zap.Logger) *PriceHandler {
	return &PriceHandler{loader: loader, logger: logging.OrNop(logger)}
}

// Bars loads the newest limit bars for symbol, oldest first
func (h *PriceHandler) Bars(ctx context.Context, symbol, interval string, limit int) ([]models.Price, error) {
	if symbol == "" || interval == "" {
		return nil, fmt.Errorf("invalid symbol %q or interval %q", symbol, interval)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("bar limit must be positive, got %d", limit)
	}

	prices, err := h.loader.Load(ctx, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s bars: %w", symbol, interval, err)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("no %s %s bars available", symbol, interval)
	}

	h.logger.Info("Loaded bars",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("count", len(prices)),
		zap.Time("from", prices[0].OpenTime),
		zap.Time("to", prices[len(prices)-1].OpenTime))

	return prices, nil
}
