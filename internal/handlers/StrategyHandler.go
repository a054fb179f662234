package handlers

import (
	"context"
	"fmt"

	"BollingerBot/internal/logging"
	"BollingerBot/internal/models"
	"BollingerBot/internal/operations/backtest"
	"BollingerBot/internal/operations/report"
	"BollingerBot/internal/operations/search"
	"BollingerBot/internal/services/model"
	"BollingerBot/internal/services/strategy"

	"go.uber.org/zap"
)

// RunStore persists finished runs. Satisfied by repositories.RunRepository.
type RunStore interface {
	Create(run *models.BacktestRun) error
}

// Request describes the market and parameters of a backtest
type Request struct {
	Symbol   string
	Interval string
	Limit    int
	Strategy string
	Bands    strategy.Config
	Backtest backtest.Config

	// model strategy only
	TestFraction float64
	Lambda       float64
}

type Report struct {
	Bars    []backtest.SignalBar
	Config  backtest.Config
	Results *backtest.BacktestResults
	Model   *model.TrainReport
	RunID   uint // zero when not persisted
}

type GridReport struct {
	Bars    []backtest.SignalBar
	Outcome *search.Outcome
	Model   *model.TrainReport
	RunID   uint
}

type StrategyHandler struct {
	prices *PriceHandler
	runs   RunStore
	logger *zap.Logger
}

// NewStrategyHandler builds the handler. runs may be nil, in which case
// nothing is persisted.
func NewStrategyHandler(prices *PriceHandler, runs RunStore, logger *zap.Logger) *StrategyHandler {
	return &StrategyHandler{
		prices: prices,
		runs:   runs,
		logger: logging.OrNop(logger),
	}
}

// Backtest loads bars, computes signals and replays them through the engine
func (h *StrategyHandler) Backtest(ctx context.Context, req Request) (*Report, error) {
	bars, trained, err := h.signals(ctx, req)
	if err != nil {
		return nil, err
	}

	engine, err := backtest.NewEngine(req.Backtest, backtest.WithLogger(h.logger))
	if err != nil {
		return nil, err
	}
	results, err := engine.Run(bars)
	if err != nil {
		return nil, err
	}

	h.logger.Info("Backtest complete",
		zap.String("symbol", req.Symbol),
		zap.String("strategy", req.Strategy),
		zap.Float64("final_balance", results.FinalBalance),
		zap.Int("trades", len(results.Trades)))

	rep := &Report{Bars: bars, Config: req.Backtest, Results: results, Model: trained}
	rep.RunID, err = h.persist(req, req.Backtest, bars, results)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// Grid runs the parameter search over one set of signals and persists the
// best combination
func (h *StrategyHandler) Grid(ctx context.Context, req Request, grid search.Grid, workers int) (*GridReport, error) {
	bars, trained, err := h.signals(ctx, req)
	if err != nil {
		return nil, err
	}

	outcome, err := search.Run(ctx, bars, req.Backtest, grid, workers, search.WithLogger(h.logger))
	if err != nil {
		return nil, err
	}

	rep := &GridReport{Bars: bars, Outcome: outcome, Model: trained}
	rep.RunID, err = h.persist(req, outcome.Best.Config, bars, outcome.Best.Results)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// Train fits the regression model on the loaded bars
func (h *StrategyHandler) Train(ctx context.Context, req Request) (*model.RidgeRegressor, model.TrainReport, error) {
	prices, err := h.prices.Bars(ctx, req.Symbol, req.Interval, req.Limit)
	if err != nil {
		return nil, model.TrainReport{}, err
	}
	return h.train(req, prices)
}

func (h *StrategyHandler) train(req Request, prices []models.Price) (*model.RidgeRegressor, model.TrainReport, error) {
	dataset, err := model.BuildDataset(prices, req.Bands.Window, req.Bands.Deviations, req.Bands.Horizon)
	if err != nil {
		return nil, model.TrainReport{}, err
	}

	fraction := req.TestFraction
	if fraction <= 0 {
		fraction = model.DefaultTestFraction
	}
	lambda := req.Lambda
	if lambda <= 0 {
		lambda = model.DefaultLambda
	}

	regressor, rep, err := model.Train(dataset, fraction, lambda)
	if err != nil {
		return nil, model.TrainReport{}, err
	}

	h.logger.Info("Model trained",
		zap.Int("train_samples", rep.TrainSamples),
		zap.Int("test_samples", rep.TestSamples),
		zap.Float64("mse", rep.MSE))

	return regressor, rep, nil
}

func (h *StrategyHandler) signals(ctx context.Context, req Request) ([]backtest.SignalBar, *model.TrainReport, error) {
	prices, err := h.prices.Bars(ctx, req.Symbol, req.Interval, req.Limit)
	if err != nil {
		return nil, nil, err
	}

	var (
		predictor strategy.Predictor
		trained   *model.TrainReport
	)
	if req.Strategy == models.StrategyModel {
		regressor, rep, err := h.train(req, prices)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to train model: %w", err)
		}
		predictor = regressor
		trained = &rep
	}

	src, err := strategy.NewSignalSource(req.Strategy, req.Bands, predictor, strategy.WithLogger(h.logger))
	if err != nil {
		return nil, nil, err
	}

	bars, err := strategy.Annotate(src, prices)
	if err != nil {
		return nil, nil, err
	}
	return bars, trained, nil
}

func (h *StrategyHandler) persist(req Request, cfg backtest.Config, bars []backtest.SignalBar, results *backtest.BacktestResults) (uint, error) {
	if h.runs == nil {
		return 0, nil
	}

	run := report.RunRecord(req.Symbol, req.Interval, req.Strategy, cfg, bars, results)
	if err := h.runs.Create(run); err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	h.logger.Info("Run saved", zap.Uint("run_id", run.ID), zap.Int("trades", len(run.Trades)))
	return run.ID, nil
}
