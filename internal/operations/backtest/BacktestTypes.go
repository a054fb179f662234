// backtest/types.go

package backtest

import (
	"errors"
	"fmt"
	"math"
	"time"

	"BollingerBot/internal/models"
)

var (
	ErrInvalidConfig = errors.New("invalid backtest config")
	ErrNoBars        = errors.New("no bars to backtest")
	ErrInvalidPrice  = errors.New("bar close price must be positive")
	ErrUnorderedBars = errors.New("bars must be strictly increasing in time")
	ErrInvalidSignal = errors.New("signal coefficient must be within [0,1]")
)

// Action is the categorical instruction attached to a bar
type Action int

const (
	Hold Action = iota
	Buy
	Sell
)

func (a Action) String() string {
	switch a {
	case Buy:
		return models.TradeTypeBuy
	case Sell:
		return models.TradeTypeSell
	default:
		return "HOLD"
	}
}

// Signal is either an Action or a sizing coefficient in [0,1], never both.
type Signal struct {
	Action         Action
	Coefficient    float64
	HasCoefficient bool
}

func ActionSignal(a Action) Signal {
	return Signal{Action: a}
}

func CoefficientSignal(c float64) Signal {
	return Signal{Coefficient: c, HasCoefficient: true}
}

func HoldSignal() Signal {
	return Signal{Action: Hold}
}

// fraction is the share of current cash to commit when flat
func (s Signal) fraction(tradePercentage float64) float64 {
	if s.HasCoefficient {
		return tradePercentage * s.Coefficient
	}
	if s.Action == Buy {
		return tradePercentage
	}
	return 0
}

func (s Signal) String() string {
	if s.HasCoefficient {
		return fmt.Sprintf("COEF(%.4f)", s.Coefficient)
	}
	return s.Action.String()
}

// SignalBar pairs a bar with the signal computed for it
type SignalBar struct {
	Bar    models.Price
	Signal Signal
}

const (
	ReasonSignal     = "signal"
	ReasonTakeProfit = "take_profit"
	ReasonStopLoss   = "stop_loss"
)

// Core trade record
type Trade struct {
	Action        Action
	Price         float64
	Quantity      float64 // units bought or sold by this trade
	CashBalance   float64 // cash after the trade
	AssetQuantity float64 // asset held after the trade
	BarIndex      int
	Time          time.Time
	Reason        string
}

// Final backtest results
type BacktestResults struct {
	InitialBalance float64
	FinalBalance   float64
	OpenPosition   bool

	// Trade metrics
	RoundTrips    int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	AveragePnL    float64

	// Performance metrics
	TotalReturn float64
	MaxDrawdown float64
	SharpeRatio float64

	// Detailed records
	Trades      []Trade
	EquityCurve []float64 // len(bars)+1, first element is the initial balance
}

const (
	DefaultInitialBalance  = 10000.0
	DefaultTradePercentage = 1.0
	DefaultTakeProfit      = 0.20
	DefaultStopLoss        = 0.05
)

// Simulation config
type Config struct {
	InitialBalance  float64
	TradePercentage float64 // share of cash per entry, (0,1]
	TakeProfit      float64 // exit when change >= TakeProfit
	StopLoss        float64 // exit when change <= -StopLoss
}

// NewConfig creates default config
func NewConfig() Config {
	return Config{
		InitialBalance:  DefaultInitialBalance,
		TradePercentage: DefaultTradePercentage,
		TakeProfit:      DefaultTakeProfit,
		StopLoss:        DefaultStopLoss,
	}
}

func (c Config) Validate() error {
	switch {
	case !(c.InitialBalance > 0) || math.IsInf(c.InitialBalance, 0):
		return fmt.Errorf("%w: initial balance %v must be positive", ErrInvalidConfig, c.InitialBalance)
	case !(c.TradePercentage > 0 && c.TradePercentage <= 1):
		return fmt.Errorf("%w: trade percentage %v must be in (0,1]", ErrInvalidConfig, c.TradePercentage)
	case !(c.TakeProfit > 0):
		return fmt.Errorf("%w: take profit %v must be positive", ErrInvalidConfig, c.TakeProfit)
	case !(c.StopLoss > 0):
		return fmt.Errorf("%w: stop loss %v must be positive", ErrInvalidConfig, c.StopLoss)
	}
	return nil
}
