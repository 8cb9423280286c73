package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// UpdateHandler receives messages and callback queries from long polling.
type UpdateHandler interface {
	HandleMessage(ctx context.Context, chatID int64, text string)
	HandleCallback(ctx context.Context, chatID int64, messageID int, data string)
}

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		MessageID int    `json:"message_id"`
		Text      string `json:"text"`
		Chat      struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
	CallbackQuery *struct {
		ID      string `json:"id"`
		Data    string `json:"data"`
		Message *struct {
			MessageID int `json:"message_id"`
			Chat      struct {
				ID int64 `json:"id"`
			} `json:"chat"`
		} `json:"message"`
	} `json:"callback_query"`
}

// StartPolling begins long-polling for Telegram updates. Blocks until ctx is
// cancelled. Messages and callback queries are dispatched to handler.
func (t *Client) StartPolling(ctx context.Context, handler UpdateHandler) {
	offset := 0
	client := &http.Client{Timeout: 35 * time.Second}

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("telegram polling stopped")
			return
		default:
		}

		apiURL := fmt.Sprintf("%s?offset=%d&timeout=30", t.methodURL("getUpdates"), offset)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			zap.L().Error("create polling request", zap.Error(err))
			time.Sleep(5 * time.Second)
			continue
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zap.L().Warn("polling request failed", zap.Error(err))
			time.Sleep(5 * time.Second)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			zap.L().Warn("read polling response", zap.Error(err))
			continue
		}

		var result struct {
			OK     bool             `json:"ok"`
			Result []telegramUpdate `json:"result"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			zap.L().Warn("decode polling response", zap.Error(err))
			continue
		}

		for _, update := range result.Result {
			offset = update.UpdateID + 1
			t.dispatch(ctx, update, handler)
		}
	}
}

func (t *Client) dispatch(ctx context.Context, update telegramUpdate, handler UpdateHandler) {
	if update.CallbackQuery != nil {
		cq := update.CallbackQuery
		if err := t.answerCallback(cq.ID); err != nil {
			zap.L().Warn("answer callback", zap.Error(err))
		}
		if cq.Message == nil || cq.Data == "" {
			return
		}
		zap.L().Info("received callback", zap.String("data", cq.Data))
		handler.HandleCallback(ctx, cq.Message.Chat.ID, cq.Message.MessageID, cq.Data)
		return
	}
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	text := strings.TrimSpace(update.Message.Text)
	zap.L().Info("received command", zap.String("text", text))
	handler.HandleMessage(ctx, update.Message.Chat.ID, text)
}

func (t *Client) answerCallback(callbackID string) error {
	return t.call("answerCallbackQuery", map[string]string{"callback_query_id": callbackID}, nil)
}
