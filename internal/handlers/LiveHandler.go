package handlers

import (
	"context"
	"errors"
	"time"

	"BollingerBot/internal/logging"
	"BollingerBot/internal/operations/backtest"
	"BollingerBot/internal/operations/position"
	"BollingerBot/internal/operations/price"
	"BollingerBot/internal/services/strategy"
	"BollingerBot/internal/services/trading"

	"go.uber.org/zap"
)

type LiveRequest struct {
	Symbol       string
	Interval     string
	Bands        strategy.Config
	Backtest     backtest.Config
	HistoryLimit int
	PollInterval time.Duration
	RetryDelay   time.Duration
}

// LiveHandler wires the band strategy, a simulator and an order port into
// a trading bot. The live strategy only ever buys; exits come from take
// profit and stop loss.
type LiveHandler struct {
	market price.MarketData
	orders position.OrderPort
	logger *zap.Logger
}

func NewLiveHandler(market price.MarketData, orders position.OrderPort, logger *zap.Logger) *LiveHandler {
	return &LiveHandler{market: market, orders: orders, logger: logging.OrNop(logger)}
}

func (h *LiveHandler) NewBot(req LiveRequest) (*trading.Bot, error) {
	if h.market == nil || h.orders == nil {
		return nil, errors.New("live trading needs market data and an order port")
	}

	src, err := strategy.NewBandStrategy(req.Bands.Window, req.Bands.Deviations,
		strategy.BuyOnly(), strategy.WithLogger(h.logger))
	if err != nil {
		return nil, err
	}
	sim, err := backtest.NewSimulator(req.Backtest)
	if err != nil {
		return nil, err
	}
	executor := position.NewExecutor(h.orders, req.Symbol, position.WithLogger(h.logger))

	return trading.NewBot(trading.Config{
		Symbol:       req.Symbol,
		Interval:     req.Interval,
		HistoryLimit: req.HistoryLimit,
		PollInterval: req.PollInterval,
		RetryDelay:   req.RetryDelay,
	}, h.market, src, sim, executor, trading.WithLogger(h.logger))
}

// Run trades until ctx is cancelled
func (h *LiveHandler) Run(ctx context.Context, req LiveRequest) error {
	bot, err := h.NewBot(req)
	if err != nil {
		return err
	}
	return bot.Run(ctx)
}
