package signal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aqdev-tech/Crypto-trading-bot/internal/market"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/model"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/store"
)

// Analyzer produces an untrusted analysis from market data.
type Analyzer interface {
	Analyze(ctx context.Context, candles []model.Candle, currentPrice float64) (*model.RawAnalysis, error)
}

// Generator composes market data fetch, LLM analysis and validation into the
// full signal pipeline. Transport errors are retried inside the market
// client; analysis and validation failures are retried here with a pause so
// each retry gets a fresh model sample over the same market snapshot.
type Generator struct {
	Market    market.Fetcher
	Analyzer  Analyzer
	Validator *Validator
	Store     *store.Store

	Timeframe   string
	CandleLimit int
	MaxRetries  int
	Backoff     time.Duration
	Sleep       market.SleepFunc
}

// NewGenerator wires a Generator with the default retry policy.
func NewGenerator(fetcher market.Fetcher, analyzer Analyzer, validator *Validator, st *store.Store) *Generator {
	return &Generator{
		Market:      fetcher,
		Analyzer:    analyzer,
		Validator:   validator,
		Store:       st,
		Timeframe:   "1h",
		CandleLimit: 50,
		MaxRetries:  3,
		Backoff:     2 * time.Second,
		Sleep:       market.SleepContext,
	}
}

// Generate produces a validated signal for symbol. Market data failures
// propagate immediately; the analyze+validate pair is retried up to
// MaxRetries times over the same candle/price snapshot, and the final
// attempt's failure is returned unchanged. Successful signals are appended
// to the bounded history.
func (g *Generator) Generate(ctx context.Context, symbol string) (*model.Signal, error) {
	candles, err := g.Market.FetchCandles(ctx, symbol, g.Timeframe, g.CandleLimit)
	if err != nil {
		return nil, err
	}
	price, err := g.Market.FetchCurrentPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= g.MaxRetries; attempt++ {
		sig, err := g.attempt(ctx, symbol, candles, price)
		if err == nil {
			if g.Store != nil {
				g.Store.AppendHistory(sig)
			}
			return sig, nil
		}
		lastErr = err
		zap.L().Warn("signal attempt rejected",
			zap.String("symbol", symbol),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", g.MaxRetries),
			zap.Error(err))
		if attempt < g.MaxRetries {
			if serr := g.Sleep(ctx, g.Backoff); serr != nil {
				return nil, serr
			}
		}
	}
	return nil, lastErr
}

func (g *Generator) attempt(ctx context.Context, symbol string, candles []model.Candle, price float64) (*model.Signal, error) {
	raw, err := g.Analyzer.Analyze(ctx, candles, price)
	if err != nil {
		return nil, err
	}
	sig, err := g.Validator.Validate(raw, price)
	if err != nil {
		return nil, err
	}
	sig.Symbol = symbol
	return sig, nil
}
