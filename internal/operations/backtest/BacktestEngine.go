// backtest/engine.go

package backtest

import (
	"fmt"
	"math"

	"BollingerBot/internal/logging"

	"go.uber.org/zap"
)

// Engine replays bars and their signals through the single-position state
// machine. It holds configuration only, so one Engine may serve any number of
// runs, including concurrent ones.
type Engine struct {
	config Config
	logger *zap.Logger
}

type Option func(*Engine)

// WithLogger makes the engine log each trade at debug level
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.OrNop(l)
	}
}

func NewEngine(config Config, opts ...Option) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		config: config,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Config() Config {
	return e.config
}

// Run folds every bar, in order, into a fresh account and returns the final
// balance, the trade ledger and the equity curve. A position still open after
// the last bar is marked to market, not closed.
func (e *Engine) Run(bars []SignalBar) (*BacktestResults, error) {
	if err := validateBars(bars); err != nil {
		return nil, err
	}

	e.logger.Debug("Running backtest",
		zap.Time("from", bars[0].Bar.OpenTime),
		zap.Time("to", bars[len(bars)-1].Bar.OpenTime),
		zap.Int("bars", len(bars)))

	s := newState(e.config.InitialBalance)
	trades := make([]Trade, 0)
	equityCurve := make([]float64, 0, len(bars)+1)
	equityCurve = append(equityCurve, e.config.InitialBalance)

	for i, sb := range bars {
		price := sb.Bar.Close

		var trade *Trade
		s, trade = step(s, e.config, i, sb.Bar.OpenTime, price, sb.Signal)
		if trade != nil {
			trades = append(trades, *trade)
			e.logger.Debug("Trade executed",
				zap.Stringer("action", trade.Action),
				zap.String("reason", trade.Reason),
				zap.Int("bar", i),
				zap.Float64("price", trade.Price),
				zap.Float64("cash", trade.CashBalance),
				zap.Float64("asset", trade.AssetQuantity))
		}

		equityCurve = append(equityCurve, s.account.Equity(price))
	}

	lastClose := bars[len(bars)-1].Bar.Close
	_, open := s.position.(Long)

	results := &BacktestResults{
		InitialBalance: e.config.InitialBalance,
		FinalBalance:   s.account.Equity(lastClose),
		OpenPosition:   open,
		Trades:         trades,
		EquityCurve:    equityCurve,
	}
	calculateStats(results)

	return results, nil
}

func validateBars(bars []SignalBar) error {
	if len(bars) == 0 {
		return ErrNoBars
	}

	for i, sb := range bars {
		price := sb.Bar.Close
		if !(price > 0) || math.IsInf(price, 0) {
			return fmt.Errorf("%w: bar %d close %v", ErrInvalidPrice, i, price)
		}
		if i > 0 && !sb.Bar.OpenTime.After(bars[i-1].Bar.OpenTime) {
			return fmt.Errorf("%w: bar %d at %s", ErrUnorderedBars, i,
				sb.Bar.OpenTime.Format("2006-01-02 15:04:05"))
		}
		if err := validateSignal(sb.Signal); err != nil {
			return fmt.Errorf("bar %d: %w", i, err)
		}
	}
	return nil
}

func validateSignal(sig Signal) error {
	if sig.HasCoefficient && !(sig.Coefficient >= 0 && sig.Coefficient <= 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidSignal, sig.Coefficient)
	}
	return nil
}
