package strategy

import (
	"BollingerBot/internal/models"
	"BollingerBot/internal/operations/backtest"
	"BollingerBot/internal/services/indicators"
)

// BandStrategy trades the Bollinger envelope: buy near the lower band, sell
// near the upper band, hold in between.
type BandStrategy struct {
	bbands  *indicators.BBandsService
	buyOnly bool
}

func NewBandStrategy(window int, deviations float64, opts ...Option) (*BandStrategy, error) {
	bbands, err := indicators.NewBBandsService(window, deviations)
	if err != nil {
		return nil, err
	}
	o := newOptions(opts)
	return &BandStrategy{bbands: bbands, buyOnly: o.buyOnly}, nil
}

func (s *BandStrategy) Name() string {
	return models.StrategyBollinger
}

func (s *BandStrategy) Signal(history []models.Price) backtest.Signal {
	band, ok := s.bbands.CalculateOne(tailCloses(history, s.bbands.Period()))
	if !ok {
		return backtest.HoldSignal()
	}

	price := history[len(history)-1].Close
	switch {
	case price <= band.Lower*BuyThreshold:
		return backtest.ActionSignal(backtest.Buy)
	case price >= band.Upper*SellThreshold && !s.buyOnly:
		return backtest.ActionSignal(backtest.Sell)
	}
	return backtest.HoldSignal()
}

// tailCloses returns the closes of at most the last n bars
func tailCloses(history []models.Price, n int) []float64 {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	return models.Closes(history)
}
