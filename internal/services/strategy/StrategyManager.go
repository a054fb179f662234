package strategy

import (
	"fmt"

	"BollingerBot/internal/models"
	"BollingerBot/internal/operations/backtest"
)

// Names lists the strategies NewSignalSource can build
func Names() []string {
	return []string{models.StrategyBollinger, models.StrategyModel}
}

// NewSignalSource builds the named strategy. predictor is only used, and then
// required, by the model strategy.
func NewSignalSource(name string, cfg Config, predictor Predictor, opts ...Option) (SignalSource, error) {
	switch name {
	case models.StrategyBollinger:
		s, err := NewBandStrategy(cfg.Window, cfg.Deviations, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case models.StrategyModel:
		s, err := NewModelStrategy(cfg.Window, cfg.Deviations, cfg.Horizon, predictor, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Annotate pairs every bar with the signal src computes from the bars up to
// and including it.
func Annotate(src SignalSource, bars []models.Price) ([]backtest.SignalBar, error) {
	if len(bars) == 0 {
		return nil, backtest.ErrNoBars
	}

	horizon := 0
	if h, ok := src.(Horizoned); ok {
		horizon = h.Horizon()
	}

	out := make([]backtest.SignalBar, len(bars))
	for i, bar := range bars {
		sig := backtest.HoldSignal()
		if i < len(bars)-horizon {
			sig = src.Signal(bars[:i+1])
		}
		out[i] = backtest.SignalBar{Bar: bar, Signal: sig}
	}
	return out, nil
}
