package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BollingerBot/internal/logging"
	"BollingerBot/internal/operations/backtest"
	"BollingerBot/internal/operations/position"
	"BollingerBot/internal/operations/price"
	"BollingerBot/internal/services/strategy"

	"go.uber.org/zap"
)

const (
	DefaultHistoryLimit = 100
	DefaultPollInterval = 24 * time.Hour
	DefaultRetryDelay   = time.Minute
)

var (
	ErrNoBars      = errors.New("exchange returned no bars")
	ErrOrderFailed = errors.New("order failed")
)

// OrderExecutor places the order for a simulated trade
type OrderExecutor interface {
	Execute(ctx context.Context, trade *backtest.Trade) (*position.OrderConfirmation, error)
}

type Config struct {
	Symbol       string
	Interval     string
	HistoryLimit int
	PollInterval time.Duration
	// RetryDelay is the wait after a cycle that could not fetch bars or step
	// the simulator. A failed order is not resent: the simulator already
	// stepped that bar, so the bot waits PollInterval for the next one.
	RetryDelay time.Duration
}

// Bot runs the backtest step against live bars. The simulator is the source
// of truth for the position; orders mirror its decisions on the exchange.
type Bot struct {
	config   Config
	market   price.MarketData
	source   strategy.SignalSource
	sim      *backtest.Simulator
	executor OrderExecutor
	logger   *zap.Logger
}

type Option func(*Bot)

func WithLogger(l *zap.Logger) Option {
	return func(b *Bot) {
		b.logger = logging.OrNop(l)
	}
}

func NewBot(config Config, market price.MarketData, source strategy.SignalSource, sim *backtest.Simulator, executor OrderExecutor, opts ...Option) (*Bot, error) {
	if market == nil || source == nil || sim == nil || executor == nil {
		return nil, errors.New("bot needs market data, a signal source, a simulator and an executor")
	}
	if config.Symbol == "" || config.Interval == "" {
		return nil, errors.New("bot needs a symbol and an interval")
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = DefaultHistoryLimit
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}

	b := &Bot{
		config:   config,
		market:   market,
		source:   source,
		sim:      sim,
		executor: executor,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Run cycles until ctx is cancelled: once at start, then every PollInterval,
// or after RetryDelay when fetching or stepping failed.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot",
		zap.String("symbol", b.config.Symbol),
		zap.String("interval", b.config.Interval),
		zap.Duration("poll_interval", b.config.PollInterval),
		zap.String("strategy", b.source.Name()))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Stopping bot")
			return nil
		case <-timer.C:
			err := b.Cycle(ctx)
			if err != nil && ctx.Err() != nil {
				continue
			}
			next := b.nextDelay(err)
			switch {
			case errors.Is(err, ErrOrderFailed):
				b.logger.Error("Order not placed, waiting for the next bar", zap.Error(err), zap.Duration("next_cycle_in", next))
			case err != nil:
				b.logger.Error("Cycle failed", zap.Error(err), zap.Duration("retry_in", next))
			}
			timer.Reset(next)
		}
	}
}

// nextDelay is how long to wait after a cycle that returned err. Only a
// failure before the simulator stepped is worth retrying early.
func (b *Bot) nextDelay(err error) time.Duration {
	if err == nil || errors.Is(err, ErrOrderFailed) {
		return b.config.PollInterval
	}
	return b.config.RetryDelay
}

// Cycle fetches the latest bars, steps the simulator on the newest one and
// sends the resulting order, if any. A bar that was already processed is
// skipped.
func (b *Bot) Cycle(ctx context.Context) error {
	bars, err := b.market.GetKlines(ctx, b.config.Symbol, b.config.Interval, b.config.HistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch bars: %w", err)
	}
	if len(bars) == 0 {
		return ErrNoBars
	}

	last := bars[len(bars)-1]
	if seen := b.sim.LastBarTime(); !seen.IsZero() && !last.OpenTime.After(seen) {
		b.logger.Debug("No new bar", zap.Time("last", seen))
		return nil
	}

	sig := b.source.Signal(bars)
	trade, err := b.sim.Step(last, sig)
	if err != nil {
		return fmt.Errorf("failed to step simulator: %w", err)
	}

	if trade != nil {
		b.logger.Info("Trade signal",
			zap.Stringer("action", trade.Action),
			zap.String("reason", trade.Reason),
			zap.Float64("price", trade.Price),
			zap.Float64("quantity", trade.Quantity))

		if _, err := b.executor.Execute(ctx, trade); err != nil {
			return fmt.Errorf("%w: %s at %v: %w", ErrOrderFailed, trade.Action, trade.Price, err)
		}
	}

	account := b.sim.Account()
	b.logger.Info("Balance",
		zap.Time("bar", last.OpenTime),
		zap.Stringer("signal", sig),
		zap.Float64("close", last.Close),
		zap.Float64("total", account.Equity(last.Close)),
		zap.Float64("cash", account.Cash),
		zap.Float64("asset", account.Asset))

	return nil
}
