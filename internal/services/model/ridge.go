package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const DefaultLambda = 1.0

// RidgeRegressor is a linear model fitted on standardised features with an
// L2 penalty. The band columns are collinear (upper+lower = 2*middle) so the
// penalty is what keeps the normal equations solvable.
type RidgeRegressor struct {
	lambda float64

	means     []float64
	scales    []float64
	weights   []float64
	intercept float64
}

func NewRidgeRegressor(lambda float64) (*RidgeRegressor, error) {
	if !(lambda > 0) || math.IsInf(lambda, 0) {
		return nil, fmt.Errorf("ridge lambda %v must be positive", lambda)
	}
	return &RidgeRegressor{lambda: lambda}, nil
}

func (r *RidgeRegressor) Fit(features [][]float64, targets []float64) error {
	n := len(features)
	if n != len(targets) {
		return fmt.Errorf("%d feature rows for %d targets", n, len(targets))
	}
	if n < 2 {
		return fmt.Errorf("%w: need at least 2 rows, got %d", ErrNotEnoughSamples, n)
	}
	d := len(features[0])
	if d == 0 {
		return fmt.Errorf("%w: empty feature vector", ErrFeatureMismatch)
	}

	x := mat.NewDense(n, d, nil)
	for i, row := range features {
		if len(row) != d {
			return fmt.Errorf("%w: row %d has %d features, want %d", ErrFeatureMismatch, i, len(row), d)
		}
		x.SetRow(i, row)
	}

	means := make([]float64, d)
	scales := make([]float64, d)
	column := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(column, j, x)
		means[j], scales[j] = stat.PopMeanStdDev(column, nil)
		if scales[j] == 0 {
			scales[j] = 1
		}
	}
	intercept := stat.Mean(targets, nil)

	z := mat.NewDense(n, d, nil)
	z.Apply(func(_, j int, v float64) float64 {
		return (v - means[j]) / scales[j]
	}, x)
	y := mat.NewVecDense(n, nil)
	for i, t := range targets {
		y.SetVec(i, t-intercept)
	}

	// (ZᵀZ + λI) w = Zᵀy
	var gram mat.Dense
	gram.Mul(z.T(), z)
	a := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			v := gram.At(i, j)
			if i == j {
				v += r.lambda
			}
			a.SetSym(i, j, v)
		}
	}
	var b mat.VecDense
	b.MulVec(z.T(), y)

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return errors.New("ridge system is not positive definite")
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &b); err != nil {
		return fmt.Errorf("failed to solve ridge system: %w", err)
	}

	r.means = means
	r.scales = scales
	r.intercept = intercept
	r.weights = make([]float64, d)
	for j := range r.weights {
		r.weights[j] = w.AtVec(j)
	}
	return nil
}

// Predict returns the model output for one feature vector, clamped to [0,1]
func (r *RidgeRegressor) Predict(features []float64) (float64, error) {
	if r.weights == nil {
		return 0, ErrNotFitted
	}
	if len(features) != len(r.weights) {
		return 0, fmt.Errorf("%w: got %d features, want %d", ErrFeatureMismatch, len(features), len(r.weights))
	}

	y := r.intercept
	for j, v := range features {
		y += r.weights[j] * (v - r.means[j]) / r.scales[j]
	}
	if math.IsNaN(y) {
		return 0, nil
	}
	return math.Max(0, math.Min(1, y)), nil
}

// Evaluate returns the mean squared error of the model over d
func (r *RidgeRegressor) Evaluate(d *Dataset) (float64, error) {
	predicted := make([]float64, d.Len())
	for i, row := range d.Features {
		p, err := r.Predict(row)
		if err != nil {
			return 0, err
		}
		predicted[i] = p
	}
	return MSE(predicted, d.Targets)
}

type TrainReport struct {
	TrainSamples int
	TestSamples  int
	MSE          float64
}

// Train splits d chronologically, fits on the head and scores on the tail
func Train(d *Dataset, testFraction, lambda float64) (*RidgeRegressor, TrainReport, error) {
	train, test, err := d.Split(testFraction)
	if err != nil {
		return nil, TrainReport{}, err
	}

	r, err := NewRidgeRegressor(lambda)
	if err != nil {
		return nil, TrainReport{}, err
	}
	if err := r.Fit(train.Features, train.Targets); err != nil {
		return nil, TrainReport{}, fmt.Errorf("failed to fit model: %w", err)
	}

	mse, err := r.Evaluate(test)
	if err != nil {
		return nil, TrainReport{}, fmt.Errorf("failed to evaluate model: %w", err)
	}

	return r, TrainReport{TrainSamples: train.Len(), TestSamples: test.Len(), MSE: mse}, nil
}
