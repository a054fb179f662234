package model

import (
	"errors"
	"fmt"
	"math"
	"time"

	"BollingerBot/internal/models"
	"BollingerBot/internal/services/indicators"

	"gonum.org/v1/gonum/floats"
)

const (
	DefaultHorizon      = 3
	DefaultTestFraction = 0.2
)

var (
	ErrNotEnoughSamples = errors.New("not enough samples")
	ErrFeatureMismatch  = errors.New("feature vector length mismatch")
	ErrNotFitted        = errors.New("model is not fitted")
)

// FeatureNames lists the columns produced by Features, in order
var FeatureNames = []string{"close", "bb_upper", "bb_middle", "bb_lower"}

// Features is the model input for one bar
func Features(price float64, band indicators.Band) []float64 {
	return []float64{price, band.Upper, band.Middle, band.Lower}
}

// Target maps the forward return over the horizon onto [0,1]: a flat market
// scores 0.5, a doubling scores 1.
func Target(price, future float64) float64 {
	return ((future/price - 1) + 1) / 2
}

// Dataset holds one row per usable bar: bands defined and a forward close
// available.
type Dataset struct {
	Features [][]float64
	Targets  []float64
	Times    []time.Time
}

func (d *Dataset) Len() int {
	return len(d.Targets)
}

func BuildDataset(bars []models.Price, window int, deviations float64, horizon int) (*Dataset, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	bbands, err := indicators.NewBBandsService(window, deviations)
	if err != nil {
		return nil, err
	}

	bands := bbands.Calculate(models.Closes(bars))
	d := &Dataset{}
	for i := 0; i+horizon < len(bars); i++ {
		band, ok := bands.At(i)
		if !ok {
			continue
		}
		price := bars[i].Close
		if price <= 0 {
			return nil, fmt.Errorf("bar %d: close %v must be positive", i, price)
		}
		d.Features = append(d.Features, Features(price, band))
		d.Targets = append(d.Targets, Target(price, bars[i+horizon].Close))
		d.Times = append(d.Times, bars[i].OpenTime)
	}

	if d.Len() == 0 {
		return nil, fmt.Errorf("%w: %d bars, window %d, horizon %d", ErrNotEnoughSamples, len(bars), window, horizon)
	}
	return d, nil
}

// Split keeps the order of the rows: the first part trains, the last
// testFraction of rows evaluates.
func (d *Dataset) Split(testFraction float64) (train, test *Dataset, err error) {
	if !(testFraction > 0 && testFraction < 1) {
		return nil, nil, fmt.Errorf("test fraction %v must be in (0,1)", testFraction)
	}

	n := d.Len()
	testSize := int(math.Ceil(float64(n) * testFraction))
	cut := n - testSize
	if cut < 2 || testSize < 1 {
		return nil, nil, fmt.Errorf("%w: %d rows cannot be split %v", ErrNotEnoughSamples, n, testFraction)
	}

	train = &Dataset{Features: d.Features[:cut], Targets: d.Targets[:cut], Times: d.Times[:cut]}
	test = &Dataset{Features: d.Features[cut:], Targets: d.Targets[cut:], Times: d.Times[cut:]}
	return train, test, nil
}

// MSE is the mean squared error between predictions and targets
func MSE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("%d predictions for %d targets", len(predicted), len(actual))
	}
	if len(actual) == 0 {
		return 0, ErrNotEnoughSamples
	}

	diff := make([]float64, len(actual))
	floats.SubTo(diff, predicted, actual)
	return floats.Dot(diff, diff) / float64(len(actual)), nil
}
