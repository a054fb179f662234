package strategy

import (
	"fmt"
	"math"

	"BollingerBot/internal/models"
	"BollingerBot/internal/operations/backtest"
	"BollingerBot/internal/services/indicators"
	"BollingerBot/internal/services/model"

	"go.uber.org/zap"
)

// ModelStrategy sizes entries with a predicted coefficient instead of a
// categorical signal.
type ModelStrategy struct {
	bbands    *indicators.BBandsService
	predictor Predictor
	horizon   int
	logger    *zap.Logger
}

func NewModelStrategy(window int, deviations float64, horizon int, predictor Predictor, opts ...Option) (*ModelStrategy, error) {
	if predictor == nil {
		return nil, ErrNoPredictor
	}
	if horizon < 0 {
		return nil, fmt.Errorf("horizon must not be negative, got %d", horizon)
	}
	bbands, err := indicators.NewBBandsService(window, deviations)
	if err != nil {
		return nil, err
	}

	o := newOptions(opts)
	return &ModelStrategy{
		bbands:    bbands,
		predictor: predictor,
		horizon:   horizon,
		logger:    o.logger,
	}, nil
}

func (s *ModelStrategy) Name() string {
	return models.StrategyModel
}

func (s *ModelStrategy) Horizon() int {
	return s.horizon
}

// Signal returns a coefficient in [0,1]. Bars without a full band window and
// failed predictions get 0, which never opens a position.
func (s *ModelStrategy) Signal(history []models.Price) backtest.Signal {
	band, ok := s.bbands.CalculateOne(tailCloses(history, s.bbands.Period()))
	if !ok {
		return backtest.CoefficientSignal(0)
	}

	last := history[len(history)-1]
	coefficient, err := s.predictor.Predict(model.Features(last.Close, band))
	if err != nil {
		s.logger.Warn("Prediction failed",
			zap.Time("bar", last.OpenTime),
			zap.Error(err))
		return backtest.CoefficientSignal(0)
	}
	if math.IsNaN(coefficient) {
		coefficient = 0
	}

	return backtest.CoefficientSignal(math.Max(0, math.Min(1, coefficient)))
}
