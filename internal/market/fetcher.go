package market

import (
	"context"

	"github.com/aqdev-tech/Crypto-trading-bot/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error)
	FetchCurrentPrice(ctx context.Context, symbol string) (float64, error)
	Name() string
}
