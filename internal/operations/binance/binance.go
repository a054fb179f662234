package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"BollingerBot/internal/logging"
	"BollingerBot/internal/models"
	"BollingerBot/internal/operations/backtest"
	"BollingerBot/internal/operations/position"
	"BollingerBot/internal/operations/price"
	"BollingerBot/internal/util"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// Binance caps klines per request
	MaxKlinesLimit = 1000

	DefaultQuantityPrecision = 5
	defaultMaxRetries        = 4
	defaultBackoff           = 100 * time.Millisecond
)

var (
	ErrInvalidLimit     = errors.New("klines limit out of range")
	ErrQuantityTooSmall = errors.New("order quantity rounds to zero")
	ErrUnsupportedSide  = errors.New("only BUY and SELL can be sent as orders")
)

type BinanceClient struct {
	client            *gobinance.Client
	rateLimiter       *rate.Limiter
	httpClient        *http.Client
	quantityPrecision int32
	logger            *zap.Logger
}

type Option func(*BinanceClient)

func WithLogger(l *zap.Logger) Option {
	return func(c *BinanceClient) {
		c.logger = logging.OrNop(l)
	}
}

// WithQuantityPrecision sets the number of decimals order quantities are
// truncated to, matching the symbol's LOT_SIZE step.
func WithQuantityPrecision(p int32) Option {
	return func(c *BinanceClient) {
		c.quantityPrecision = p
	}
}

func NewBinanceClient(apiKey, secretKey string, opts ...Option) *BinanceClient {
	// Create custom HTTP client with timeouts
	httpClient := &http.Client{
		Timeout: time.Second * 10,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	spotClient := gobinance.NewClient(apiKey, secretKey)
	spotClient.HTTPClient = httpClient

	// Create rate limiter: 10 requests per second with burst of 20
	limiter := rate.NewLimiter(rate.Limit(10), 20)

	c := &BinanceClient{
		client:            spotClient,
		rateLimiter:       limiter,
		httpClient:        httpClient,
		quantityPrecision: DefaultQuantityPrecision,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetKlines returns the last limit bars of symbol, oldest first
func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Price, error) {
	if limit < 1 || limit > MaxKlinesLimit {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	var klines []*gobinance.Kline
	err := util.Retry(ctx, defaultMaxRetries, defaultBackoff, func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		var err error
		klines, err = c.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(limit).
			Do(ctx)
		if err != nil {
			c.logger.Warn("Klines request failed",
				zap.String("symbol", symbol),
				zap.String("interval", interval),
				zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get klines for %s %s: %w", symbol, interval, err)
	}

	prices, err := price.FromKlines(symbol, interval, klines)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Fetched klines",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("count", len(prices)))

	return prices, nil
}

// PlaceOrder sends a MARKET order. It is not retried here; errors the
// exchange or the input make final are marked util.Permanent for the
// executor's retry loop.
func (c *BinanceClient) PlaceOrder(ctx context.Context, action backtest.Action, quantity float64, symbol string) (*position.OrderConfirmation, error) {
	var side gobinance.SideType
	switch action {
	case backtest.Buy:
		side = gobinance.SideTypeBuy
	case backtest.Sell:
		side = gobinance.SideTypeSell
	default:
		return nil, util.Permanent(fmt.Errorf("%w: %s", ErrUnsupportedSide, action))
	}

	qty, err := FormatQuantity(quantity, c.quantityPrecision)
	if err != nil {
		return nil, util.Permanent(err)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.client.NewCreateOrderService().
		Symbol(symbol).
		Side(side).
		Type(gobinance.OrderTypeMarket).
		Quantity(qty).
		Do(ctx)
	if err != nil {
		err = fmt.Errorf("failed to place %s order for %s %s: %w", action, qty, symbol, err)
		// The exchange answered and refused the order
		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			return nil, util.Permanent(err)
		}
		return nil, err
	}

	executed, err := decimal.NewFromString(resp.ExecutedQuantity)
	if err != nil {
		return nil, fmt.Errorf("invalid executed quantity %q: %w", resp.ExecutedQuantity, err)
	}

	c.logger.Info("Order placed",
		zap.String("symbol", symbol),
		zap.Stringer("side", action),
		zap.String("quantity", qty),
		zap.Int64("order_id", resp.OrderID),
		zap.String("status", string(resp.Status)))

	return &position.OrderConfirmation{
		OrderID:          resp.OrderID,
		Symbol:           resp.Symbol,
		Action:           action,
		Status:           string(resp.Status),
		ExecutedQuantity: executed.InexactFloat64(),
		Time:             time.UnixMilli(resp.TransactTime),
	}, nil
}

// FormatQuantity truncates quantity to precision decimals
func FormatQuantity(quantity float64, precision int32) (string, error) {
	q := decimal.NewFromFloat(quantity).Truncate(precision)
	if !q.IsPositive() {
		return "", fmt.Errorf("%w: %v at %d decimals", ErrQuantityTooSmall, quantity, precision)
	}
	return q.String(), nil
}
