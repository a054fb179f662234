package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatorMatchesEngine(t *testing.T) {
	t.Parallel()
	cfg := Config{InitialBalance: 5000, TradePercentage: 0.8, TakeProfit: 0.1, StopLoss: 0.04}

	closes := []float64{100, 98, 104, 111, 107, 95, 99, 101, 90, 93}
	bars := series(closes, map[int]Signal{
		0: ActionSignal(Buy),
		4: CoefficientSignal(0.6),
		6: ActionSignal(Buy),
	})

	e := newTestEngine(t, cfg)
	want, err := e.Run(bars)
	require.NoError(t, err)

	sim, err := NewSimulator(cfg)
	require.NoError(t, err)

	var got []Trade
	for _, sb := range bars {
		trade, err := sim.Step(sb.Bar, sb.Signal)
		require.NoError(t, err)
		if trade != nil {
			got = append(got, *trade)
		}
	}

	assert.Equal(t, want.Trades, got)
	assert.Equal(t, want.FinalBalance, sim.Equity(closes[len(closes)-1]))
	assert.Equal(t, bars[len(bars)-1].Bar.OpenTime, sim.LastBarTime())
}

func TestSimulatorPosition(t *testing.T) {
	t.Parallel()
	sim, err := NewSimulator(testConfig())
	require.NoError(t, err)

	assert.Equal(t, Flat{}, sim.Position())
	assert.Equal(t, Account{Cash: 1000}, sim.Account())

	trade, err := sim.Step(bar(0, 100), ActionSignal(Buy))
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Equal(t, Long{EntryPrice: 100, Quantity: 10, OpenedAt: 0}, sim.Position())

	trade, err = sim.Step(bar(1, 105), HoldSignal())
	require.NoError(t, err)
	assert.Nil(t, trade)
	assert.Equal(t, 1050.0, sim.Equity(105))

	trade, err = sim.Step(bar(2, 120), HoldSignal())
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Equal(t, ReasonTakeProfit, trade.Reason)
	assert.Equal(t, Flat{}, sim.Position())
	assert.Equal(t, Account{Cash: 1200}, sim.Account())
}

func TestSimulatorRejectsStaleBars(t *testing.T) {
	t.Parallel()
	sim, err := NewSimulator(testConfig())
	require.NoError(t, err)

	_, err = sim.Step(bar(3, 100), HoldSignal())
	require.NoError(t, err)

	_, err = sim.Step(bar(3, 100), ActionSignal(Buy))
	assert.ErrorIs(t, err, ErrUnorderedBars)

	_, err = sim.Step(bar(2, 100), ActionSignal(Buy))
	assert.ErrorIs(t, err, ErrUnorderedBars)

	// rejected bars leave the account untouched
	assert.Equal(t, Flat{}, sim.Position())
	assert.Equal(t, Account{Cash: 1000}, sim.Account())
}

func TestSimulatorRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	_, err := NewSimulator(Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	sim, err := NewSimulator(testConfig())
	require.NoError(t, err)

	_, err = sim.Step(bar(0, 0), ActionSignal(Buy))
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = sim.Step(bar(0, 100), CoefficientSignal(-0.1))
	assert.ErrorIs(t, err, ErrInvalidSignal)

	assert.True(t, sim.LastBarTime().IsZero())
}
