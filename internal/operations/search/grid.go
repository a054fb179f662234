package search

import (
	"errors"
	"fmt"
	"os"

	"BollingerBot/internal/operations/backtest"

	"gopkg.in/yaml.v3"
)

var ErrEmptyGrid = errors.New("grid axis has no values")

// Grid is the parameter space to sweep. Every combination of the three axes
// is backtested.
type Grid struct {
	TradePercentages []float64 `yaml:"trade_percentages"`
	TakeProfits      []float64 `yaml:"take_profits"`
	StopLosses       []float64 `yaml:"stop_losses"`
}

func DefaultGrid() Grid {
	return Grid{
		TradePercentages: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.7, 0.8, 0.9, 1},
		TakeProfits:      []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5},
		StopLosses:       []float64{0.01, 0.02, 0.03, 0.04, 0.05, 0.06, 0.07},
	}
}

// LoadGrid reads a grid from a YAML file
func LoadGrid(path string) (Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Grid{}, fmt.Errorf("failed to read grid file: %w", err)
	}

	var g Grid
	if err := yaml.Unmarshal(data, &g); err != nil {
		return Grid{}, fmt.Errorf("failed to parse grid file %s: %w", path, err)
	}
	if err := g.Validate(); err != nil {
		return Grid{}, fmt.Errorf("grid file %s: %w", path, err)
	}
	return g, nil
}

func (g Grid) Validate() error {
	switch {
	case len(g.TradePercentages) == 0:
		return fmt.Errorf("%w: trade_percentages", ErrEmptyGrid)
	case len(g.TakeProfits) == 0:
		return fmt.Errorf("%w: take_profits", ErrEmptyGrid)
	case len(g.StopLosses) == 0:
		return fmt.Errorf("%w: stop_losses", ErrEmptyGrid)
	}
	return nil
}

func (g Grid) Size() int {
	return len(g.TradePercentages) * len(g.TakeProfits) * len(g.StopLosses)
}

// Configs expands the grid over base, trade percentage outermost and stop
// loss innermost.
func (g Grid) Configs(base backtest.Config) []backtest.Config {
	configs := make([]backtest.Config, 0, g.Size())
	for _, tp := range g.TradePercentages {
		for _, takeProfit := range g.TakeProfits {
			for _, stopLoss := range g.StopLosses {
				cfg := base
				cfg.TradePercentage = tp
				cfg.TakeProfit = takeProfit
				cfg.StopLoss = stopLoss
				configs = append(configs, cfg)
			}
		}
	}
	return configs
}
