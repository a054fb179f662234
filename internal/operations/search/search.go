package search

import (
	"context"
	"fmt"
	"runtime"

	"BollingerBot/internal/logging"
	"BollingerBot/internal/operations/backtest"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result is one grid point and its backtest
type Result struct {
	Config  backtest.Config
	Results *backtest.BacktestResults
}

type Outcome struct {
	Results []Result // grid order
	Best    Result
}

type options struct {
	logger *zap.Logger
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = logging.OrNop(l)
	}
}

// Run backtests every grid combination over the same bars, at most workers
// at a time (GOMAXPROCS when workers < 1). The best result has the highest
// final balance; ties go to the combination that comes first in the grid.
func Run(ctx context.Context, bars []backtest.SignalBar, base backtest.Config, grid Grid, workers int, opts ...Option) (*Outcome, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, backtest.ErrNoBars
	}
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	configs := grid.Configs(base)
	engines := make([]*backtest.Engine, len(configs))
	for i, cfg := range configs {
		e, err := backtest.NewEngine(cfg)
		if err != nil {
			return nil, fmt.Errorf("combination %d: %w", i, err)
		}
		engines[i] = e
	}

	o.logger.Info("Starting parameter search",
		zap.Int("combinations", len(configs)),
		zap.Int("workers", workers),
		zap.Int("bars", len(bars)))

	results := make([]Result, len(configs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, e := range engines {
		if gctx.Err() != nil {
			break
		}
		i, e := i, e
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := e.Run(bars)
			if err != nil {
				return fmt.Errorf("combination %d: %w", i, err)
			}
			results[i] = Result{Config: e.Config(), Results: r}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.Results.FinalBalance > best.Results.FinalBalance {
			best = r
		}
	}

	o.logger.Info("Parameter search complete",
		zap.Float64("trade_percentage", best.Config.TradePercentage),
		zap.Float64("take_profit", best.Config.TakeProfit),
		zap.Float64("stop_loss", best.Config.StopLoss),
		zap.Float64("final_balance", best.Results.FinalBalance))

	return &Outcome{Results: results, Best: best}, nil
}
