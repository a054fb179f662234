package indicators

import (
	"errors"
	"math"
)

const (
	DefaultBBandsPeriod     = 20
	DefaultBBandsDeviations = 2.0
)

var ErrInvalidPeriod = errors.New("bollinger period must be positive")

type BBandsService struct {
	period     int
	deviations float64
}

// BBandsResult holds one value per input price. Indexes below Period-1 have
// no band and are left at zero; use Defined to tell them apart.
type BBandsResult struct {
	Period int
	Upper  []float64
	Middle []float64
	Lower  []float64
	Width  []float64 // Volatility indicator
}

// Band is the Bollinger envelope at a single bar
type Band struct {
	Upper  float64
	Middle float64
	Lower  float64
	Width  float64
}

func NewBBandsService(period int, deviations float64) (*BBandsService, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	return &BBandsService{period: period, deviations: deviations}, nil
}

func (s *BBandsService) Period() int {
	return s.period
}

// Calculate computes SMA +/- deviations * population standard deviation over
// a rolling window, matching pandas ta's BollingerBands(window, window_dev).
func (s *BBandsService) Calculate(prices []float64) *BBandsResult {
	result := &BBandsResult{
		Period: s.period,
		Upper:  make([]float64, len(prices)),
		Middle: make([]float64, len(prices)),
		Lower:  make([]float64, len(prices)),
		Width:  make([]float64, len(prices)),
	}

	for i := s.period - 1; i < len(prices); i++ {
		band := s.band(prices[i-s.period+1 : i+1])
		result.Upper[i] = band.Upper
		result.Middle[i] = band.Middle
		result.Lower[i] = band.Lower
		result.Width[i] = band.Width
	}

	return result
}

// CalculateOne calculates the band for the most recent price. ok is false
// when fewer than period prices are available.
func (s *BBandsService) CalculateOne(prices []float64) (band Band, ok bool) {
	if len(prices) < s.period {
		return Band{}, false
	}
	return s.band(prices[len(prices)-s.period:]), true
}

// Defined reports whether index i has a full window behind it
func (r *BBandsResult) Defined(i int) bool {
	return i >= r.Period-1 && i < len(r.Middle)
}

// At returns the band at index i
func (r *BBandsResult) At(i int) (Band, bool) {
	if !r.Defined(i) {
		return Band{}, false
	}
	return Band{Upper: r.Upper[i], Middle: r.Middle[i], Lower: r.Lower[i], Width: r.Width[i]}, true
}

func (s *BBandsService) band(window []float64) Band {
	// Calculate SMA
	sum := 0.0
	for _, price := range window {
		sum += price
	}
	middle := sum / float64(len(window))

	// Calculate standard deviation
	squareSum := 0.0
	for _, price := range window {
		diff := price - middle
		squareSum += diff * diff
	}
	stdDev := math.Sqrt(squareSum / float64(len(window)))

	band := Band{
		Upper:  middle + (s.deviations * stdDev),
		Middle: middle,
		Lower:  middle - (s.deviations * stdDev),
	}
	if middle != 0 {
		band.Width = (band.Upper - band.Lower) / middle
	}
	return band
}
