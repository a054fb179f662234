package position

import (
	"context"
	"errors"
	"testing"
	"time"

	"BollingerBot/internal/operations/backtest"
	"BollingerBot/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyPort struct {
	failures int
	err      error
	calls    int
}

func (p *flakyPort) PlaceOrder(_ context.Context, action backtest.Action, quantity float64, symbol string) (*OrderConfirmation, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, p.err
	}
	return &OrderConfirmation{OrderID: int64(p.calls), Symbol: symbol, Action: action, Status: "FILLED", ExecutedQuantity: quantity}, nil
}

func buyTrade(qty float64) *backtest.Trade {
	return &backtest.Trade{Action: backtest.Buy, Price: 100, Quantity: qty, Reason: backtest.ReasonSignal}
}

func TestExecuteRetriesTransientFailures(t *testing.T) {
	t.Parallel()
	port := &flakyPort{failures: 2, err: errors.New("timeout")}
	e := NewExecutor(port, "BTCUSDT", WithRetry(3, time.Millisecond))

	conf, err := e.Execute(context.Background(), buyTrade(0.5))
	require.NoError(t, err)
	assert.Equal(t, 3, port.calls)
	assert.Equal(t, "BTCUSDT", conf.Symbol)
	assert.Equal(t, 0.5, conf.ExecutedQuantity)
}

func TestExecuteGivesUp(t *testing.T) {
	t.Parallel()
	errDown := errors.New("exchange down")
	port := &flakyPort{failures: 10, err: errDown}
	e := NewExecutor(port, "BTCUSDT", WithRetry(3, time.Millisecond))

	_, err := e.Execute(context.Background(), buyTrade(0.5))
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, 3, port.calls)
}

func TestExecuteStopsOnPermanentFailure(t *testing.T) {
	t.Parallel()
	errRejected := errors.New("insufficient balance")
	port := &flakyPort{failures: 10, err: util.Permanent(errRejected)}
	e := NewExecutor(port, "BTCUSDT", WithRetry(5, time.Millisecond))

	_, err := e.Execute(context.Background(), buyTrade(0.5))
	assert.ErrorIs(t, err, errRejected)
	assert.Equal(t, 1, port.calls)
}

func TestExecuteSkipsHoldAndRejectsBadTrades(t *testing.T) {
	t.Parallel()
	port := &flakyPort{}
	e := NewExecutor(port, "BTCUSDT")

	conf, err := e.Execute(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, conf)

	_, err = e.Execute(context.Background(), &backtest.Trade{Action: backtest.Hold, Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = e.Execute(context.Background(), buyTrade(0))
	assert.ErrorIs(t, err, ErrInvalidOrder)

	assert.Zero(t, port.calls)
}

func TestPaperBroker(t *testing.T) {
	t.Parallel()
	b := NewPaperBroker(nil)
	e := NewExecutor(b, "BTCUSDT")

	_, err := e.Execute(context.Background(), buyTrade(2))
	require.NoError(t, err)
	conf, err := e.Execute(context.Background(), &backtest.Trade{Action: backtest.Sell, Price: 110, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), conf.OrderID)

	orders := b.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, backtest.Buy, orders[0].Action)
	assert.Equal(t, backtest.Sell, orders[1].Action)
	assert.Equal(t, "FILLED", orders[1].Status)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.PlaceOrder(ctx, backtest.Buy, 1, "BTCUSDT")
	assert.ErrorIs(t, err, context.Canceled)
}
