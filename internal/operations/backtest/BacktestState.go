package backtest

import "time"

// Account is the cash and asset held during a run
type Account struct {
	Cash  float64
	Asset float64
}

// Equity marks the account to market at price
func (a Account) Equity(price float64) float64 {
	return a.Cash + a.Asset*price
}

// Position is either Flat or Long. The interface is sealed so a type switch
// over the two variants is exhaustive.
type Position interface {
	isPosition()
}

type Flat struct{}

type Long struct {
	EntryPrice float64
	Quantity   float64
	OpenedAt   int
}

func (Flat) isPosition() {}
func (Long) isPosition() {}

// state is the accumulator threaded through the per-bar fold
type state struct {
	account  Account
	position Position
}

func newState(initialBalance float64) state {
	return state{
		account:  Account{Cash: initialBalance},
		position: Flat{},
	}
}

// step applies one bar to s and returns the new state plus the trade it
// triggered, if any. It is pure: the same inputs always give the same outputs.
func step(s state, cfg Config, index int, at time.Time, price float64, sig Signal) (state, *Trade) {
	switch pos := s.position.(type) {
	case Long:
		change := (price - pos.EntryPrice) / pos.EntryPrice
		takeProfit := change >= cfg.TakeProfit
		if !takeProfit && change > -cfg.StopLoss {
			return s, nil
		}

		quantity := s.account.Asset
		s.account.Cash += quantity * price
		s.account.Asset = 0
		s.position = Flat{}

		reason := ReasonStopLoss
		if takeProfit {
			reason = ReasonTakeProfit
		}
		return s, &Trade{
			Action:        Sell,
			Price:         price,
			Quantity:      quantity,
			CashBalance:   s.account.Cash,
			AssetQuantity: s.account.Asset,
			BarIndex:      index,
			Time:          at,
			Reason:        reason,
		}

	case Flat:
		f := sig.fraction(cfg.TradePercentage)
		if f <= 0 {
			return s, nil
		}

		quantity := f * s.account.Cash / price
		if quantity <= 0 {
			return s, nil
		}
		cost := quantity * price
		if cost > s.account.Cash {
			// float rounding on an all-in entry
			cost = s.account.Cash
		}
		s.account.Asset += quantity
		s.account.Cash -= cost
		s.position = Long{EntryPrice: price, Quantity: quantity, OpenedAt: index}

		return s, &Trade{
			Action:        Buy,
			Price:         price,
			Quantity:      quantity,
			CashBalance:   s.account.Cash,
			AssetQuantity: s.account.Asset,
			BarIndex:      index,
			Time:          at,
			Reason:        ReasonSignal,
		}
	}

	return s, nil
}
