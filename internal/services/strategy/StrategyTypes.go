package strategy

import (
	"errors"

	"BollingerBot/internal/logging"
	"BollingerBot/internal/models"
	"BollingerBot/internal/operations/backtest"
	"BollingerBot/internal/services/indicators"
	"BollingerBot/internal/services/model"

	"go.uber.org/zap"
)

var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrNoPredictor     = errors.New("model strategy needs a predictor")
)

// SignalSource produces the signal for the last bar of history. Earlier
// bars are context only; a source must not look past the end of history.
type SignalSource interface {
	Name() string
	Signal(history []models.Price) backtest.Signal
}

// Horizoned is implemented by sources whose signals are only meaningful when
// the next Horizon bars exist. Annotate holds on the final Horizon bars.
type Horizoned interface {
	Horizon() int
}

// Predictor maps a feature vector to an investment coefficient
type Predictor interface {
	Predict(features []float64) (float64, error)
}

// Band thresholds: buy within 5% above the lower band, sell within 5% below
// the upper band.
const (
	BuyThreshold  = 1.05
	SellThreshold = 0.95
)

type Config struct {
	Window     int
	Deviations float64
	Horizon    int
}

func DefaultConfig() Config {
	return Config{
		Window:     indicators.DefaultBBandsPeriod,
		Deviations: indicators.DefaultBBandsDeviations,
		Horizon:    model.DefaultHorizon,
	}
}

type options struct {
	buyOnly bool
	logger  *zap.Logger
}

type Option func(*options)

// BuyOnly suppresses SELL signals, as the live bot never sells on the band
func BuyOnly() Option {
	return func(o *options) {
		o.buyOnly = true
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = logging.OrNop(l)
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
