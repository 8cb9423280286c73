package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aqdev-tech/Crypto-trading-bot/internal/model"
)

// BinanceFetcher implements Fetcher using the Binance public REST API.
// Transport failures are retried up to MaxRetries times with a linearly
// growing backoff before a FetchError is returned.
type BinanceFetcher struct {
	BaseURL     string
	Client      *http.Client
	MaxRetries  int
	BackoffBase time.Duration
	Sleep       SleepFunc
}

// NewBinanceFetcher creates a Binance fetcher with optional proxy support.
func NewBinanceFetcher(baseURL, proxyURL string, maxRetries int, backoffBase time.Duration) *BinanceFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if backoffBase <= 0 {
		backoffBase = 2 * time.Second
	}
	return &BinanceFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		MaxRetries:  maxRetries,
		BackoffBase: backoffBase,
		Sleep:       SleepContext,
	}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// binanceSymbol converts "BTC/USDT" to Binance's "BTCUSDT" form.
func binanceSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

// FetchCandles returns the most recent candles for symbol, oldest first.
func (f *BinanceFetcher) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	var candles []model.Candle
	err := f.withRetry(ctx, symbol, "candles", func() error {
		var err error
		candles, err = f.fetchKlines(ctx, symbol, timeframe, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return candles, nil
}

// FetchCurrentPrice returns the latest traded price for symbol.
func (f *BinanceFetcher) FetchCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var price float64
	err := f.withRetry(ctx, symbol, "price", func() error {
		var err error
		price, err = f.fetchTickerPrice(ctx, symbol)
		return err
	})
	if err != nil {
		return 0, err
	}
	return price, nil
}

// withRetry runs call up to MaxRetries times, sleeping Backoff(base, attempt)
// between failures. The last error is wrapped in a FetchError on exhaustion.
func (f *BinanceFetcher) withRetry(ctx context.Context, symbol, what string, call func() error) error {
	var lastErr error
	for attempt := 1; attempt <= f.MaxRetries; attempt++ {
		if err := call(); err != nil {
			lastErr = err
			zap.L().Warn("binance fetch failed",
				zap.String("what", what),
				zap.String("symbol", symbol),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", f.MaxRetries),
				zap.Error(err))
			if attempt < f.MaxRetries {
				if serr := f.Sleep(ctx, Backoff(f.BackoffBase, attempt)); serr != nil {
					return &FetchError{Symbol: symbol, Attempts: attempt, Err: serr}
				}
			}
			continue
		}
		return nil
	}
	return &FetchError{Symbol: symbol, Attempts: f.MaxRetries, Err: lastErr}
}

func (f *BinanceFetcher) get(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("binance fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("binance read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("binance: status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("binance decode: %w", err)
	}
	return nil
}

func (f *BinanceFetcher) fetchKlines(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	u := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d",
		f.BaseURL, url.QueryEscape(binanceSymbol(symbol)), url.QueryEscape(timeframe), limit)

	var raw [][]interface{}
	if err := f.get(ctx, u, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("binance: no candle data for %s", symbol)
	}

	candles := make([]model.Candle, 0, len(raw))
	for _, k := range raw {
		c, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("binance kline: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// parseKline converts one Binance kline row. Binance encodes the open time
// as a number and every price/volume as a string.
func parseKline(k []interface{}) (model.Candle, error) {
	if len(k) < 6 {
		return model.Candle{}, fmt.Errorf("short row: %d fields", len(k))
	}
	ts, ok := k[0].(float64)
	if !ok {
		return model.Candle{}, fmt.Errorf("bad timestamp %v", k[0])
	}
	fields := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		s, ok := k[i].(string)
		if !ok {
			return model.Candle{}, fmt.Errorf("bad field %v", k[i])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Candle{}, fmt.Errorf("parse field %q: %w", s, err)
		}
		fields[i-1] = v
	}
	return model.Candle{
		Timestamp: int64(ts),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, nil
}

func (f *BinanceFetcher) fetchTickerPrice(ctx context.Context, symbol string) (float64, error) {
	u := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", f.BaseURL, url.QueryEscape(binanceSymbol(symbol)))

	var ticker struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := f.get(ctx, u, &ticker); err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("binance price %q: %w", ticker.Price, err)
	}
	return price, nil
}
