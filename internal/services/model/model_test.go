package model

import (
	"math"
	"testing"
	"time"

	"BollingerBot/internal/models"
	"BollingerBot/internal/services/indicators"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBars(n int) []models.Price {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Price, n)
	for i := range bars {
		bars[i] = models.Price{
			Symbol:    "BTCUSDT",
			TimeFrame: models.PriceTimeFrame1d,
			OpenTime:  start.AddDate(0, 0, i),
			Close:     100 + 10*math.Sin(float64(i)/4) + float64(i)/2,
		}
	}
	return bars
}

func TestTarget(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.5, Target(100, 100))
	assert.Equal(t, 1.0, Target(100, 200))
	assert.InDelta(t, 0.55, Target(100, 110), 1e-12)
}

func TestBuildDataset(t *testing.T) {
	t.Parallel()
	bars := testBars(30)

	d, err := BuildDataset(bars, 5, 2, 3)
	require.NoError(t, err)

	// rows exist for bars 4..26
	require.Equal(t, 23, d.Len())
	require.Len(t, d.Features, 23)
	assert.Equal(t, bars[4].OpenTime, d.Times[0])
	assert.Equal(t, bars[26].OpenTime, d.Times[22])

	bbands, err := indicators.NewBBandsService(5, 2)
	require.NoError(t, err)
	band, ok := bbands.CalculateOne(models.Closes(bars[:5]))
	require.True(t, ok)
	assert.Equal(t, Features(bars[4].Close, band), d.Features[0])
	assert.Equal(t, Target(bars[4].Close, bars[7].Close), d.Targets[0])
	assert.Len(t, d.Features[0], len(FeatureNames))
}

func TestBuildDatasetErrors(t *testing.T) {
	t.Parallel()

	_, err := BuildDataset(testBars(6), 5, 2, 3)
	assert.ErrorIs(t, err, ErrNotEnoughSamples)

	_, err = BuildDataset(testBars(30), 0, 2, 3)
	assert.ErrorIs(t, err, indicators.ErrInvalidPeriod)

	_, err = BuildDataset(testBars(30), 5, 2, 0)
	assert.Error(t, err)
}

func TestSplitIsChronological(t *testing.T) {
	t.Parallel()
	d, err := BuildDataset(testBars(30), 5, 2, 3)
	require.NoError(t, err)

	train, test, err := d.Split(0.2)
	require.NoError(t, err)
	assert.Equal(t, 18, train.Len())
	assert.Equal(t, 5, test.Len())
	assert.True(t, train.Times[train.Len()-1].Before(test.Times[0]))

	_, _, err = d.Split(0)
	assert.Error(t, err)
	_, _, err = d.Split(1)
	assert.Error(t, err)
}

func TestMSE(t *testing.T) {
	t.Parallel()

	mse, err := MSE([]float64{1, 2, 3}, []float64{1, 2, 5})
	require.NoError(t, err)
	assert.InDelta(t, 4.0/3.0, mse, 1e-12)

	_, err = MSE([]float64{1}, []float64{1, 2})
	assert.Error(t, err)

	_, err = MSE(nil, nil)
	assert.ErrorIs(t, err, ErrNotEnoughSamples)
}

func TestRidgeRecoversLinearRelation(t *testing.T) {
	t.Parallel()

	features := make([][]float64, 100)
	targets := make([]float64, 100)
	for i := range features {
		x := float64(i)
		features[i] = []float64{x}
		targets[i] = 0.3 + 0.004*x
	}

	r, err := NewRidgeRegressor(1e-6)
	require.NoError(t, err)
	require.NoError(t, r.Fit(features, targets))

	for _, x := range []float64{0, 25, 50, 99} {
		p, err := r.Predict([]float64{x})
		require.NoError(t, err)
		assert.InDelta(t, 0.3+0.004*x, p, 1e-4, "x=%v", x)
	}

	// outputs are clamped to [0,1]
	p, err := r.Predict([]float64{1000})
	require.NoError(t, err)
	assert.Equal(t, 1.0, p)
	p, err = r.Predict([]float64{-1000})
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
}

func TestRidgeHandlesCollinearBands(t *testing.T) {
	t.Parallel()
	d, err := BuildDataset(testBars(120), 20, 2, 3)
	require.NoError(t, err)

	r, report, err := Train(d, DefaultTestFraction, DefaultLambda)
	require.NoError(t, err)
	assert.Equal(t, d.Len(), report.TrainSamples+report.TestSamples)
	assert.False(t, math.IsNaN(report.MSE))
	assert.GreaterOrEqual(t, report.MSE, 0.0)

	for _, row := range d.Features {
		p, err := r.Predict(row)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestRidgeErrors(t *testing.T) {
	t.Parallel()

	_, err := NewRidgeRegressor(0)
	assert.Error(t, err)

	r, err := NewRidgeRegressor(DefaultLambda)
	require.NoError(t, err)

	_, err = r.Predict([]float64{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrNotFitted)

	err = r.Fit([][]float64{{1, 2}}, []float64{1})
	assert.ErrorIs(t, err, ErrNotEnoughSamples)

	err = r.Fit([][]float64{{1, 2}, {1}}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrFeatureMismatch)

	err = r.Fit([][]float64{{1, 2}, {3, 4}}, []float64{1})
	assert.Error(t, err)

	require.NoError(t, r.Fit([][]float64{{1, 2}, {3, 5}, {4, 4}}, []float64{0.2, 0.6, 0.5}))
	_, err = r.Predict([]float64{1})
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}
