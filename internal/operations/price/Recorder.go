package price

import (
	"context"
	"errors"
	"fmt"

	"BollingerBot/internal/logging"
	"BollingerBot/internal/models"

	"go.uber.org/zap"
)

// Store persists bars between runs
type Store interface {
	SaveBatch(prices []models.Price) error
	GetLatestPrices(symbol, timeFrame string, limit int) ([]models.Price, error)
}

// Loader fetches bars from the exchange and records them. When the exchange
// is unreachable it falls back to the recorded bars.
type Loader struct {
	market MarketData
	store  Store
	logger *zap.Logger
}

type Option func(*Loader)

func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) {
		ld.logger = logging.OrNop(l)
	}
}

// WithStore enables recording; without it the loader only fetches
func WithStore(s Store) Option {
	return func(ld *Loader) {
		ld.store = s
	}
}

func NewLoader(market MarketData, opts ...Option) *Loader {
	l := &Loader{market: market, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) Load(ctx context.Context, symbol, interval string, limit int) ([]models.Price, error) {
	prices, err := l.market.GetKlines(ctx, symbol, interval, limit)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil, fmt.Errorf("failed to load %s %s bars: %w", symbol, interval, err)
		}
		if cached, ok := l.fromStore(symbol, interval, limit); ok {
			l.logger.Warn("Exchange unavailable, using recorded bars",
				zap.String("symbol", symbol),
				zap.String("interval", interval),
				zap.Int("count", len(cached)),
				zap.Error(err))
			return cached, nil
		}
		return nil, fmt.Errorf("failed to load %s %s bars: %w", symbol, interval, err)
	}

	l.logger.Info("Loaded bars",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("count", len(prices)))

	if l.store != nil && len(prices) > 0 {
		if err := l.store.SaveBatch(prices); err != nil {
			l.logger.Warn("Error recording bars", zap.Error(err))
		}
	}
	return prices, nil
}

// GetKlines lets a Loader stand in for the exchange wherever MarketData is
// expected, recording every fetch.
func (l *Loader) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Price, error) {
	return l.Load(ctx, symbol, interval, limit)
}

func (l *Loader) fromStore(symbol, interval string, limit int) ([]models.Price, bool) {
	if l.store == nil {
		return nil, false
	}
	cached, err := l.store.GetLatestPrices(symbol, interval, limit)
	if err != nil {
		l.logger.Warn("Error reading recorded bars", zap.Error(err))
		return nil, false
	}
	return cached, len(cached) > 0
}
