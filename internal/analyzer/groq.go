package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aqdev-tech/Crypto-trading-bot/internal/model"
)

// Client requests trading analysis from the Groq chat-completions API in a
// single non-streaming call with JSON-object response mode. The response is
// parsed but never trusted; validation happens downstream.
type Client struct {
	APIKey  string
	Model   string
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a Groq analyzer client with optional proxy support.
func NewClient(apiKey, model, baseURL, proxyURL string) *Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	return &Client{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout:   60 * time.Second,
			Transport: transport,
		},
	}
}

// BuildPrompt returns the system prompt for a given live price. The price is
// embedded at fixed 2-decimal precision so the prompt is deterministic for a
// given snapshot.
func BuildPrompt(currentPrice float64) string {
	return fmt.Sprintf(
		"You are an expert crypto trading analyst. Your analysis must be sharp, actionable, and grounded in the live data provided. "+
			"The current market price for the asset is exactly $%.2f. This is the most critical piece of information. "+
			"Analyze the 1H candle data provided in this context. "+
			"Your response MUST be a JSON object with the following fields: "+
			"- action: (BUY/SELL/HOLD) The trade direction. "+
			"- entry: (string) The target entry price. If this price is not within 0.5%% of the current market price, you MUST provide a clear reason in the 'reason' field for why it is a pending/limit order (e.g., 'waiting for a breakout above resistance' or 'buying a dip at support'). "+
			"- take_profit: (string) The take profit price. "+
			"- stop_loss: (string) The stop loss price. "+
			"- confidence: (float) Your confidence in this signal, from 0.0 to 1.0. "+
			"- reason: (string) A concise explanation of the technical indicators (RSI, MACD, EMA, Support/Resistance) that justify this signal. If it's a pending order, this field MUST explain the strategy. "+
			"Generate a signal that a real trader would find useful. Do not invent prices wildly.",
		currentPrice)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze sends the candle series and live price to the LLM and returns the
// parsed (untrusted) analysis.
func (c *Client) Analyze(ctx context.Context, candles []model.Candle, currentPrice float64) (*model.RawAnalysis, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("groq api key is not configured")
	}

	candleJSON, err := json.Marshal(candles)
	if err != nil {
		return nil, fmt.Errorf("encode candles: %w", err)
	}

	req := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: BuildPrompt(currentPrice)},
			{Role: "user", Content: "Candle data: " + string(candleJSON)},
		},
	}
	req.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("groq read body: %w", err)
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, fmt.Errorf("groq decode: %w", err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("groq api error: %s", chat.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("groq: status %d, body: %s", resp.StatusCode, string(body))
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("groq: empty completion")
	}

	var raw model.RawAnalysis
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &raw); err != nil {
		return nil, fmt.Errorf("parse analysis: %w", err)
	}
	return &raw, nil
}
