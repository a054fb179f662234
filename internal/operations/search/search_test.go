package search

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"BollingerBot/internal/models"
	"BollingerBot/internal/operations/backtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signalBars(closes []float64, buys ...int) []backtest.SignalBar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	isBuy := make(map[int]bool)
	for _, i := range buys {
		isBuy[i] = true
	}

	out := make([]backtest.SignalBar, len(closes))
	for i, c := range closes {
		sig := backtest.HoldSignal()
		if isBuy[i] {
			sig = backtest.ActionSignal(backtest.Buy)
		}
		out[i] = backtest.SignalBar{
			Bar:    models.Price{OpenTime: start.AddDate(0, 0, i), Close: c},
			Signal: sig,
		}
	}
	return out
}

func baseConfig() backtest.Config {
	return backtest.Config{InitialBalance: 1000, TradePercentage: 1, TakeProfit: 0.2, StopLoss: 0.05}
}

func TestDefaultGrid(t *testing.T) {
	t.Parallel()
	g := DefaultGrid()
	require.NoError(t, g.Validate())
	assert.Equal(t, 9*6*7, g.Size())

	configs := g.Configs(baseConfig())
	require.Len(t, configs, g.Size())
	assert.Equal(t, backtest.Config{InitialBalance: 1000, TradePercentage: 0.1, TakeProfit: 0.05, StopLoss: 0.01}, configs[0])
	assert.Equal(t, backtest.Config{InitialBalance: 1000, TradePercentage: 0.1, TakeProfit: 0.05, StopLoss: 0.02}, configs[1])
	assert.Equal(t, backtest.Config{InitialBalance: 1000, TradePercentage: 1, TakeProfit: 0.5, StopLoss: 0.07}, configs[len(configs)-1])
}

func TestGridValidate(t *testing.T) {
	t.Parallel()

	g := DefaultGrid()
	g.TakeProfits = nil
	assert.ErrorIs(t, g.Validate(), ErrEmptyGrid)

	g = DefaultGrid()
	g.StopLosses = []float64{}
	assert.ErrorIs(t, g.Validate(), ErrEmptyGrid)
}

func TestLoadGrid(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path := filepath.Join(dir, "grid.yaml")
	content := "trade_percentages: [0.5, 1]\ntake_profits: [0.1]\nstop_losses: [0.02, 0.04]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	g, err := LoadGrid(path)
	require.NoError(t, err)
	assert.Equal(t, Grid{
		TradePercentages: []float64{0.5, 1},
		TakeProfits:      []float64{0.1},
		StopLosses:       []float64{0.02, 0.04},
	}, g)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("trade_percentages: [1]\n"), 0o600))
	_, err = LoadGrid(empty)
	assert.ErrorIs(t, err, ErrEmptyGrid)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("trade_percentages: [1\n"), 0o600))
	_, err = LoadGrid(broken)
	assert.Error(t, err)

	_, err = LoadGrid(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunPicksHighestFinalBalance(t *testing.T) {
	t.Parallel()
	bars := signalBars([]float64{100, 121}, 0)
	grid := Grid{
		TradePercentages: []float64{0.5, 1},
		TakeProfits:      []float64{0.1, 0.2, 0.5},
		StopLosses:       []float64{0.05},
	}

	outcome, err := Run(context.Background(), bars, baseConfig(), grid, 2)
	require.NoError(t, err)
	require.Len(t, outcome.Results, grid.Size())

	// every take profit ends on the same balance, so the first one wins
	assert.Equal(t, backtest.Config{InitialBalance: 1000, TradePercentage: 1, TakeProfit: 0.1, StopLoss: 0.05}, outcome.Best.Config)
	assert.Equal(t, 1210.0, outcome.Best.Results.FinalBalance)
}

func TestRunMatchesSequentialRuns(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 150)
	var buys []int
	for i := range closes {
		closes[i] = 100 + 20*math.Sin(float64(i)/9) + 4*math.Cos(float64(i)/1.7)
		if i%6 == 0 {
			buys = append(buys, i)
		}
	}
	bars := signalBars(closes, buys...)
	grid := DefaultGrid()

	outcome, err := Run(context.Background(), bars, baseConfig(), grid, 8)
	require.NoError(t, err)

	configs := grid.Configs(baseConfig())
	require.Len(t, outcome.Results, len(configs))

	bestBalance := math.Inf(-1)
	bestIndex := -1
	for i, cfg := range configs {
		e, err := backtest.NewEngine(cfg)
		require.NoError(t, err)
		want, err := e.Run(bars)
		require.NoError(t, err)

		assert.Equal(t, cfg, outcome.Results[i].Config)
		assert.Equal(t, want, outcome.Results[i].Results)

		if want.FinalBalance > bestBalance {
			bestBalance, bestIndex = want.FinalBalance, i
		}
	}
	assert.Equal(t, configs[bestIndex], outcome.Best.Config)
}

func TestRunErrors(t *testing.T) {
	t.Parallel()
	bars := signalBars([]float64{100, 110}, 0)

	_, err := Run(context.Background(), nil, baseConfig(), DefaultGrid(), 1)
	assert.ErrorIs(t, err, backtest.ErrNoBars)

	_, err = Run(context.Background(), bars, baseConfig(), Grid{}, 1)
	assert.ErrorIs(t, err, ErrEmptyGrid)

	invalid := Grid{TradePercentages: []float64{0.5, 2}, TakeProfits: []float64{0.1}, StopLosses: []float64{0.05}}
	_, err = Run(context.Background(), bars, baseConfig(), invalid, 1)
	assert.ErrorIs(t, err, backtest.ErrInvalidConfig)

	unordered := signalBars([]float64{100, 110}, 0)
	unordered[1].Bar.OpenTime = unordered[0].Bar.OpenTime
	_, err = Run(context.Background(), unordered, baseConfig(), DefaultGrid(), 4)
	assert.ErrorIs(t, err, backtest.ErrUnorderedBars)
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, signalBars([]float64{100, 110}, 0), baseConfig(), DefaultGrid(), 0)
	assert.ErrorIs(t, err, context.Canceled)
}
