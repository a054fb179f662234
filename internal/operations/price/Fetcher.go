package price

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"BollingerBot/internal/models"

	gobinance "github.com/adshao/go-binance/v2"
)

// MarketData is the bar source the loader and the live bot read from
type MarketData interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Price, error)
}

// FromKline converts an exchange kline into a bar
func FromKline(symbol, interval string, k *gobinance.Kline) (models.Price, error) {
	p := models.Price{
		Symbol:     symbol,
		TimeFrame:  interval,
		OpenTime:   time.UnixMilli(k.OpenTime).UTC(),
		CloseTime:  time.UnixMilli(k.CloseTime).UTC(),
		TradeCount: k.TradeNum,
	}

	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"open", k.Open, &p.Open},
		{"high", k.High, &p.High},
		{"low", k.Low, &p.Low},
		{"close", k.Close, &p.Close},
		{"volume", k.Volume, &p.Volume},
	}
	for _, f := range fields {
		v, err := parseFloat(f.raw)
		if err != nil {
			return models.Price{}, fmt.Errorf("kline %d %s: %w", k.OpenTime, f.name, err)
		}
		*f.dst = v
	}
	return p, nil
}

func FromKlines(symbol, interval string, klines []*gobinance.Kline) ([]models.Price, error) {
	prices := make([]models.Price, 0, len(klines))
	for _, k := range klines {
		if k == nil {
			continue
		}
		p, err := FromKline(symbol, interval, k)
		if err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing float %q: %w", s, err)
	}
	return f, nil
}
