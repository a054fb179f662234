package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Crypto markets trade every day of the year
const periodsPerYear = 365

func calculateStats(r *BacktestResults) {
	r.TotalReturn = r.FinalBalance/r.InitialBalance - 1

	// Calculate trade metrics over closed round trips
	var entry *Trade
	totalPnL := 0.0
	for i := range r.Trades {
		t := &r.Trades[i]
		switch t.Action {
		case Buy:
			entry = t
		case Sell:
			if entry == nil {
				continue
			}
			pnl := t.Quantity*t.Price - entry.Quantity*entry.Price
			if pnl > 0 {
				r.WinningTrades++
			} else {
				r.LosingTrades++
			}
			totalPnL += pnl
			r.RoundTrips++
			entry = nil
		}
	}

	if r.RoundTrips > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.RoundTrips)
		r.AveragePnL = totalPnL / float64(r.RoundTrips)
	}

	r.MaxDrawdown = maxDrawdown(r.EquityCurve)
	r.SharpeRatio = sharpeRatio(r.EquityCurve)
}

// maxDrawdown is the largest peak-to-trough fall of the curve, as a fraction
// of the peak.
func maxDrawdown(curve []float64) float64 {
	if len(curve) == 0 {
		return 0
	}

	maxDrawdown := 0.0
	peak := curve[0]
	for _, v := range curve {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		drawdown := (peak - v) / peak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

func sharpeRatio(curve []float64) float64 {
	if len(curve) < 3 {
		return 0
	}

	// Calculate returns
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1] == 0 {
			continue
		}
		returns = append(returns, (curve[i]-curve[i-1])/curve[i-1])
	}
	if len(returns) < 2 {
		return 0
	}

	avgReturn, stdDev := stat.MeanStdDev(returns, nil)
	if stdDev == 0 || math.IsNaN(stdDev) {
		return 0
	}

	return (avgReturn * math.Sqrt(periodsPerYear)) / stdDev
}
