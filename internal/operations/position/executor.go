package position

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"BollingerBot/internal/logging"
	"BollingerBot/internal/operations/backtest"
	"BollingerBot/internal/util"

	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Minute
)

var ErrInvalidOrder = errors.New("invalid order")

// OrderConfirmation is the exchange's acknowledgement of a filled order
type OrderConfirmation struct {
	OrderID          int64
	Symbol           string
	Action           backtest.Action
	Status           string
	ExecutedQuantity float64
	Time             time.Time
}

// OrderPort places market orders
type OrderPort interface {
	PlaceOrder(ctx context.Context, action backtest.Action, quantity float64, symbol string) (*OrderConfirmation, error)
}

// Executor turns the simulator's trade decisions into orders. Failures are
// retried with backoff and then reported to the caller; they never feed back
// into the simulated account.
type Executor struct {
	port        OrderPort
	symbol      string
	maxAttempts int
	retryDelay  time.Duration
	logger      *zap.Logger
}

type Option func(*Executor)

func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		e.logger = logging.OrNop(l)
	}
}

func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(e *Executor) {
		e.maxAttempts = maxAttempts
		e.retryDelay = delay
	}
}

func NewExecutor(port OrderPort, symbol string, opts ...Option) *Executor {
	e := &Executor{
		port:        port,
		symbol:      symbol,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute places the order for trade. A nil trade is a hold and places nothing.
func (e *Executor) Execute(ctx context.Context, trade *backtest.Trade) (*OrderConfirmation, error) {
	if trade == nil {
		return nil, nil
	}
	if trade.Action != backtest.Buy && trade.Action != backtest.Sell {
		return nil, fmt.Errorf("%w: action %s", ErrInvalidOrder, trade.Action)
	}
	if !(trade.Quantity > 0) {
		return nil, fmt.Errorf("%w: quantity %v", ErrInvalidOrder, trade.Quantity)
	}

	var conf *OrderConfirmation
	attempt := 0
	err := util.Retry(ctx, e.maxAttempts, e.retryDelay, func() error {
		attempt++
		var err error
		conf, err = e.port.PlaceOrder(ctx, trade.Action, trade.Quantity, e.symbol)
		if err != nil {
			e.logger.Warn("Order attempt failed",
				zap.Stringer("action", trade.Action),
				zap.Float64("quantity", trade.Quantity),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s of %v %s: %w", trade.Action, trade.Quantity, e.symbol, err)
	}

	e.logger.Info("Order executed",
		zap.Stringer("action", trade.Action),
		zap.String("reason", trade.Reason),
		zap.Float64("price", trade.Price),
		zap.Float64("quantity", conf.ExecutedQuantity),
		zap.Int64("order_id", conf.OrderID))

	return conf, nil
}

// PaperBroker fills every order immediately without touching an exchange
type PaperBroker struct {
	mu     sync.Mutex
	nextID int64
	orders []OrderConfirmation
	logger *zap.Logger
}

func NewPaperBroker(logger *zap.Logger) *PaperBroker {
	return &PaperBroker{logger: logging.OrNop(logger)}
}

func (b *PaperBroker) PlaceOrder(ctx context.Context, action backtest.Action, quantity float64, symbol string) (*OrderConfirmation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	conf := OrderConfirmation{
		OrderID:          b.nextID,
		Symbol:           symbol,
		Action:           action,
		Status:           "FILLED",
		ExecutedQuantity: quantity,
		Time:             time.Now(),
	}
	b.orders = append(b.orders, conf)

	b.logger.Info("Paper order filled",
		zap.String("symbol", symbol),
		zap.Stringer("side", action),
		zap.Float64("quantity", quantity),
		zap.Int64("order_id", conf.OrderID))

	return &conf, nil
}

// Orders returns the orders filled so far
func (b *PaperBroker) Orders() []OrderConfirmation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]OrderConfirmation(nil), b.orders...)
}
