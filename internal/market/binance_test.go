package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func newTestFetcher(t *testing.T, handler http.Handler) (*BinanceFetcher, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	f := NewBinanceFetcher(srv.URL, "", 3, 2*time.Second)
	f.Sleep = noSleep
	return f, srv
}

const klinesBody = `[
	[1700000000000, "49800.00", "50100.00", "49700.00", "50000.00", "1234.5", 1700003599999, "0", 0, "0", "0", "0"],
	[1700003600000, "50000.00", "50200.00", "49900.00", "50150.00", "987.6", 1700007199999, "0", 0, "0", "0", "0"]
]`

func TestFetchCandles_ParsesKlines(t *testing.T) {
	f, _ := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		w.Write([]byte(klinesBody))
	}))

	candles, err := f.FetchCandles(context.Background(), "BTC/USDT", "1h", 50)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, int64(1700000000000), candles[0].Timestamp)
	assert.Equal(t, 49800.00, candles[0].Open)
	assert.Equal(t, 50100.00, candles[0].High)
	assert.Equal(t, 49700.00, candles[0].Low)
	assert.Equal(t, 50000.00, candles[0].Close)
	assert.Equal(t, 1234.5, candles[0].Volume)
	assert.Less(t, candles[0].Timestamp, candles[1].Timestamp, "chronological order")
}

func TestFetchCurrentPrice(t *testing.T) {
	f, _ := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"3050.25"}`))
	}))

	price, err := f.FetchCurrentPrice(context.Background(), "ETH/USDT")
	require.NoError(t, err)
	assert.Equal(t, 3050.25, price)
}

func TestFetchCurrentPrice_RetryThenSuccess(t *testing.T) {
	var calls int
	f, _ := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"50000.00"}`))
	}))

	price, err := f.FetchCurrentPrice(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, 50000.00, price)
	assert.Equal(t, 3, calls)
}

func TestFetchCandles_RetryExhaustion(t *testing.T) {
	var calls int
	f, _ := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))

	_, err := f.FetchCandles(context.Background(), "BTC/USDT", "1h", 50)
	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "BTC/USDT", fe.Symbol)
	assert.Equal(t, 3, fe.Attempts)
	assert.Contains(t, fe.Error(), "after 3 attempts")
}

func TestFetchCandles_SleepCancelledMidBackoff(t *testing.T) {
	f, _ := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	f.Sleep = func(_ context.Context, _ time.Duration) error { return context.Canceled }

	_, err := f.FetchCandles(context.Background(), "BTC/USDT", "1h", 50)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, fe.Attempts, "cancellation stops the retry loop")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_LinearInAttempt(t *testing.T) {
	base := 2 * time.Second
	assert.Equal(t, 2*time.Second, Backoff(base, 1))
	assert.Equal(t, 4*time.Second, Backoff(base, 2))
	assert.Equal(t, 6*time.Second, Backoff(base, 3))
}

func TestBinanceSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", binanceSymbol("BTC/USDT"))
	assert.Equal(t, "SOLUSDT", binanceSymbol("sol/usdt"))
	assert.Equal(t, "ETHUSDT", binanceSymbol("ETHUSDT"))
}
