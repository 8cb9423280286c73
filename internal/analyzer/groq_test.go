package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqdev-tech/Crypto-trading-bot/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", "test-model", srv.URL, "")
}

func completion(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(body)
}

func testCandles() []model.Candle {
	return []model.Candle{
		{Timestamp: 1700000000000, Open: 49800, High: 50100, Low: 49700, Close: 50000, Volume: 1234.5},
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(50000)
	assert.Contains(t, prompt, "$50000.00")
	assert.Contains(t, prompt, "0.5%")
	for _, field := range []string{"action", "entry", "take_profit", "stop_loss", "confidence", "reason"} {
		assert.Contains(t, prompt, field)
	}
	assert.Contains(t, prompt, "RSI, MACD, EMA")
}

func TestAnalyze_RequestShape(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, completion(`{"action":"HOLD","entry":"0","take_profit":"0","stop_loss":"0","confidence":0.5,"reason":"choppy"}`))
	}))

	_, err := c.Analyze(context.Background(), testCandles(), 50000)
	require.NoError(t, err)

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "$50000.00")
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Contains(t, got.Messages[1].Content, "Candle data: ")
	assert.Contains(t, got.Messages[1].Content, `"close":50000`)
}

func TestAnalyze_ParsesStringAndNumberFields(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completion(`{"action":"BUY","entry":"49800.50","take_profit":51000,"stop_loss":"49000","confidence":0.82,"reason":"bounce off EMA support"}`))
	}))

	raw, err := c.Analyze(context.Background(), testCandles(), 50000)
	require.NoError(t, err)

	require.NotNil(t, raw.Action)
	assert.Equal(t, "BUY", *raw.Action)
	require.NotNil(t, raw.Entry)
	assert.Equal(t, "49800.50", raw.Entry.String())
	require.NotNil(t, raw.TakeProfit)
	assert.Equal(t, "51000", raw.TakeProfit.String())
	require.NotNil(t, raw.Confidence)
	assert.Equal(t, 0.82, *raw.Confidence)
}

func TestAnalyze_MissingFieldsStayNil(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completion(`{"action":"BUY","confidence":0.9}`))
	}))

	raw, err := c.Analyze(context.Background(), testCandles(), 50000)
	require.NoError(t, err)
	assert.Nil(t, raw.Entry)
	assert.Nil(t, raw.TakeProfit)
	assert.Nil(t, raw.StopLoss)
	assert.Nil(t, raw.Reason)
}

func TestAnalyze_APIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
	}))

	_, err := c.Analyze(context.Background(), testCandles(), 50000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestAnalyze_NonJSONContent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completion("I cannot produce a signal right now."))
	}))

	_, err := c.Analyze(context.Background(), testCandles(), 50000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse analysis")
}

func TestAnalyze_MissingAPIKey(t *testing.T) {
	c := NewClient("", "test-model", "http://unused", "")
	_, err := c.Analyze(context.Background(), testCandles(), 50000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}
