package backtest

import (
	"fmt"
	"math"
	"sync"
	"time"

	"BollingerBot/internal/models"
)

// Simulator applies the engine's step to one bar at a time. The live bot
// drives it once per polling cycle; a backtest is the same steps folded over
// a whole series.
type Simulator struct {
	config Config

	mu       sync.RWMutex
	state    state
	index    int
	lastTime time.Time
}

func NewSimulator(config Config) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{
		config: config,
		state:  newState(config.InitialBalance),
	}, nil
}

// Step processes bar with its signal and returns the trade it produced, or
// nil for a hold. Bars must arrive strictly later than the previous one.
func (s *Simulator) Step(bar models.Price, sig Signal) (*Trade, error) {
	price := bar.Close
	if !(price > 0) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("%w: close %v", ErrInvalidPrice, price)
	}
	if err := validateSignal(sig); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index > 0 && !bar.OpenTime.After(s.lastTime) {
		return nil, fmt.Errorf("%w: %s is not after %s", ErrUnorderedBars,
			bar.OpenTime.Format("2006-01-02 15:04:05"),
			s.lastTime.Format("2006-01-02 15:04:05"))
	}

	var trade *Trade
	s.state, trade = step(s.state, s.config, s.index, bar.OpenTime, price, sig)
	s.index++
	s.lastTime = bar.OpenTime

	return trade, nil
}

func (s *Simulator) Account() Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.account
}

func (s *Simulator) Position() Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.position
}

// LastBarTime is the open time of the last processed bar; zero before the first step
func (s *Simulator) LastBarTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTime
}

func (s *Simulator) Equity(price float64) float64 {
	return s.Account().Equity(price)
}
