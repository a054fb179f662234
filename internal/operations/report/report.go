package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"BollingerBot/internal/models"
	"BollingerBot/internal/operations/backtest"

	"github.com/shopspring/decimal"
)

const timeLayout = time.RFC3339

// WriteTradesCSV writes the trade ledger to path
func WriteTradesCSV(path string, trades []backtest.Trade) error {
	return writeFile(path, func(w io.Writer) error {
		return TradesCSV(w, trades)
	})
}

func TradesCSV(out io.Writer, trades []backtest.Trade) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"bar", "time", "action", "reason", "price", "quantity", "cash", "asset"}); err != nil {
		return err
	}
	for _, t := range trades {
		err := w.Write([]string{
			strconv.Itoa(t.BarIndex),
			t.Time.UTC().Format(timeLayout),
			t.Action.String(),
			t.Reason,
			ftoa(t.Price),
			ftoa(t.Quantity),
			ftoa(t.CashBalance),
			ftoa(t.AssetQuantity),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteEquityCSV writes the equity curve to path. Row 0 is the initial
// balance; row i+1 is the equity after bar i.
func WriteEquityCSV(path string, bars []backtest.SignalBar, curve []float64) error {
	return writeFile(path, func(w io.Writer) error {
		return EquityCSV(w, bars, curve)
	})
}

func EquityCSV(out io.Writer, bars []backtest.SignalBar, curve []float64) error {
	if len(curve) != len(bars)+1 {
		return fmt.Errorf("equity curve has %d points for %d bars", len(curve), len(bars))
	}

	w := csv.NewWriter(out)
	if err := w.Write([]string{"point", "time", "close", "equity"}); err != nil {
		return err
	}
	if err := w.Write([]string{"0", "", "", ftoa(curve[0])}); err != nil {
		return err
	}
	for i, sb := range bars {
		err := w.Write([]string{
			strconv.Itoa(i + 1),
			sb.Bar.OpenTime.UTC().Format(timeLayout),
			ftoa(sb.Bar.Close),
			ftoa(curve[i+1]),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Summary renders the results of one run for the terminal
func Summary(cfg backtest.Config, r *backtest.BacktestResults) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Parameters: trade %s%%, take profit %s%%, stop loss %s%%\n",
		pct(cfg.TradePercentage), pct(cfg.TakeProfit), pct(cfg.StopLoss))
	fmt.Fprintf(&b, "Initial balance: %s\n", money(r.InitialBalance))
	fmt.Fprintf(&b, "Final balance:   %s (%s%%)\n", money(r.FinalBalance), pct(r.TotalReturn))
	if r.OpenPosition {
		b.WriteString("Position still open, marked at the last close\n")
	}
	fmt.Fprintf(&b, "Trades: %d, round trips: %d, won %d, lost %d, win rate %s%%\n",
		len(r.Trades), r.RoundTrips, r.WinningTrades, r.LosingTrades, pct(r.WinRate))
	fmt.Fprintf(&b, "Average PnL: %s\n", money(r.AveragePnL))
	fmt.Fprintf(&b, "Max drawdown: %s%%, Sharpe: %s\n", pct(r.MaxDrawdown), decimal.NewFromFloat(r.SharpeRatio).StringFixed(2))
	return b.String()
}

// RunRecord maps a run onto its storage model
func RunRecord(symbol, timeFrame, strategy string, cfg backtest.Config, bars []backtest.SignalBar, r *backtest.BacktestResults) *models.BacktestRun {
	run := &models.BacktestRun{
		Symbol:          symbol,
		TimeFrame:       timeFrame,
		Strategy:        strategy,
		InitialBalance:  cfg.InitialBalance,
		TradePercentage: cfg.TradePercentage,
		TakeProfit:      cfg.TakeProfit,
		StopLoss:        cfg.StopLoss,
		FinalBalance:    r.FinalBalance,
		RoundTrips:      r.RoundTrips,
		WinRate:         r.WinRate,
		MaxDrawdown:     r.MaxDrawdown,
		SharpeRatio:     r.SharpeRatio,
		OpenPosition:    r.OpenPosition,
		Trades:          make([]models.TradeRecord, len(r.Trades)),
	}
	if len(bars) > 0 {
		run.FirstBar = bars[0].Bar.OpenTime
		run.LastBar = bars[len(bars)-1].Bar.OpenTime
	}
	for i, t := range r.Trades {
		run.Trades[i] = models.TradeRecord{
			Seq:           i,
			Type:          t.Action.String(),
			Price:         t.Price,
			Quantity:      t.Quantity,
			CashBalance:   t.CashBalance,
			AssetQuantity: t.AssetQuantity,
			BarIndex:      t.BarIndex,
			BarTime:       t.Time,
			Reason:        t.Reason,
		}
	}
	return run
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func ftoa(x float64) string { return strconv.FormatFloat(x, 'f', 8, 64) }

func money(x float64) string { return decimal.NewFromFloat(x).StringFixed(2) }

func pct(x float64) string { return decimal.NewFromFloat(x * 100).StringFixed(2) }

// RunTable lists stored runs one per line
func RunTable(runs []models.BacktestRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-6s %-10s %-4s %-10s %8s %8s %8s %14s %7s %9s\n",
		"ID", "SYMBOL", "TF", "STRATEGY", "TRADE%", "TP%", "SL%", "FINAL", "TRIPS", "WIN%")
	for _, r := range runs {
		fmt.Fprintf(&b, "%-6d %-10s %-4s %-10s %8s %8s %8s %14s %7d %9s\n",
			r.ID, r.Symbol, r.TimeFrame, r.Strategy,
			pct(r.TradePercentage), pct(r.TakeProfit), pct(r.StopLoss),
			money(r.FinalBalance), r.RoundTrips, pct(r.WinRate))
	}
	return b.String()
}

// RunDetail renders a stored run and its trade ledger
func RunDetail(run *models.BacktestRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %d: %s %s, %s strategy, bars %s to %s\n",
		run.ID, run.Symbol, run.TimeFrame, run.Strategy,
		run.FirstBar.UTC().Format(timeLayout), run.LastBar.UTC().Format(timeLayout))
	fmt.Fprintf(&b, "Parameters: trade %s%%, take profit %s%%, stop loss %s%%\n",
		pct(run.TradePercentage), pct(run.TakeProfit), pct(run.StopLoss))
	fmt.Fprintf(&b, "Balance: %s -> %s\n", money(run.InitialBalance), money(run.FinalBalance))
	if run.OpenPosition {
		b.WriteString("Position still open, marked at the last close\n")
	}
	fmt.Fprintf(&b, "Round trips: %d, win rate %s%%, max drawdown %s%%, Sharpe %s\n",
		run.RoundTrips, pct(run.WinRate), pct(run.MaxDrawdown), decimal.NewFromFloat(run.SharpeRatio).StringFixed(2))

	for _, t := range run.Trades {
		fmt.Fprintf(&b, "  %3d  %s  %-4s  %-11s  price %s  qty %s  cash %s\n",
			t.Seq, t.BarTime.UTC().Format(timeLayout), t.Type, t.Reason,
			ftoa(t.Price), ftoa(t.Quantity), money(t.CashBalance))
	}
	return b.String()
}
