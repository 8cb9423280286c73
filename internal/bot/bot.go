package bot

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aqdev-tech/Crypto-trading-bot/internal/model"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/notifier"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/store"
)

// Messenger is the subset of the Telegram client the bot needs.
type Messenger interface {
	SendMessage(chatID int64, text string, keyboard *notifier.InlineKeyboard) (int, error)
	EditMessage(chatID int64, messageID int, text string, keyboard *notifier.InlineKeyboard) error
	SendWithRetry(ctx context.Context, chatID int64, text string, keyboard *notifier.InlineKeyboard, maxRetries int) error
}

// Pipeline generates a validated signal for a symbol.
type Pipeline interface {
	Generate(ctx context.Context, symbol string) (*model.Signal, error)
}

// Bot routes Telegram updates to the signal pipeline and owns all
// user-facing delivery: command replies, monitor outcomes and proactive
// high-confidence alerts. A failure is always shown as a plain error
// message; a signal is either fully validated or not delivered.
type Bot struct {
	Telegram Messenger
	Pipeline Pipeline
	Store    *store.Store

	Symbols         []string
	DefaultSymbol   string
	AlertConfidence float64
	ScanDelay       time.Duration
}

// New creates a Bot with the default symbol and scan pacing.
func New(tg Messenger, pipeline Pipeline, st *store.Store, symbols []string, alertConfidence float64) *Bot {
	return &Bot{
		Telegram:        tg,
		Pipeline:        pipeline,
		Store:           st,
		Symbols:         symbols,
		DefaultSymbol:   "BTC/USDT",
		AlertConfidence: alertConfidence,
		ScanDelay:       10 * time.Second,
	}
}

// HandleMessage processes a user command.
func (b *Bot) HandleMessage(ctx context.Context, chatID int64, text string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "/start":
		b.Store.Subscribe(chatID)
		welcome, keyboard := notifier.FormatWelcome(b.Symbols)
		b.send(chatID, welcome, keyboard)
	case "/signal":
		symbol := b.DefaultSymbol
		if len(fields) > 1 {
			symbol = strings.ToUpper(fields[1])
		}
		b.startSignal(ctx, chatID, 0, symbol)
	case "/history":
		b.send(chatID, notifier.FormatHistory(b.Store.RecentHistory(5)), nil)
	default:
		b.send(chatID, "Available commands:\n/signal &lt;PAIR&gt;\n/history", nil)
	}
}

// HandleCallback processes inline keyboard presses: symbol buttons trigger
// a signal run in place, monitor buttons register a pending watch.
func (b *Bot) HandleCallback(ctx context.Context, chatID int64, messageID int, data string) {
	switch {
	case strings.HasPrefix(data, "monitor_"):
		watch, err := notifier.ParseMonitorCallback(data)
		if err != nil {
			zap.L().Warn("bad monitor callback", zap.String("data", data), zap.Error(err))
			return
		}
		watch.ChatID = chatID
		watch.MessageID = messageID
		id := b.Store.AddWatch(watch)
		zap.L().Info("pending watch registered",
			zap.Int64("watch_id", id),
			zap.String("symbol", watch.Symbol),
			zap.Float64("entry", watch.Entry))
		if err := b.Telegram.EditMessage(chatID, messageID, notifier.FormatMonitorAck(watch.Symbol, watch.Entry), nil); err != nil {
			zap.L().Error("edit monitor ack", zap.Error(err))
		}
	case strings.Contains(data, "/"):
		b.startSignal(ctx, chatID, messageID, data)
	}
}

// startSignal posts a progress message, then generates the signal in the
// background so a slow LLM call never blocks update polling. When
// messageID is non-zero the existing message is edited in place.
func (b *Bot) startSignal(ctx context.Context, chatID int64, messageID int, symbol string) {
	progress := notifier.FormatProgress(symbol)
	if messageID == 0 {
		id, err := b.Telegram.SendMessage(chatID, progress, nil)
		if err != nil {
			zap.L().Error("send progress message", zap.Error(err))
			return
		}
		messageID = id
	} else if err := b.Telegram.EditMessage(chatID, messageID, progress, nil); err != nil {
		zap.L().Warn("edit progress message", zap.Error(err))
	}
	go b.runSignal(ctx, chatID, messageID, symbol)
}

func (b *Bot) runSignal(ctx context.Context, chatID int64, messageID int, symbol string) {
	sig, err := b.Pipeline.Generate(ctx, symbol)
	if err != nil {
		zap.L().Error("generate signal", zap.String("symbol", symbol), zap.Error(err))
		b.edit(chatID, messageID, notifier.FormatError(err), nil)
		return
	}
	text, keyboard := notifier.FormatSignal(sig)
	b.edit(chatID, messageID, text, keyboard)
}

// ProactiveScan generates a signal for every configured symbol and pushes
// the ones above the alert confidence threshold to all subscribers.
func (b *Bot) ProactiveScan(ctx context.Context) {
	subscribers := b.Store.Subscribers()
	if len(subscribers) == 0 {
		return
	}
	for i, symbol := range b.Symbols {
		if i > 0 {
			// pace runs to stay inside exchange and LLM rate limits
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.ScanDelay):
			}
		}
		sig, err := b.Pipeline.Generate(ctx, symbol)
		if err != nil {
			zap.L().Warn("proactive scan failed", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		if sig.Confidence <= b.AlertConfidence {
			continue
		}
		text := notifier.FormatAlert(sig)
		for _, chatID := range subscribers {
			if err := b.Telegram.SendWithRetry(ctx, chatID, text, nil, 3); err != nil {
				zap.L().Error("send proactive alert", zap.Int64("chat_id", chatID), zap.Error(err))
			}
		}
	}
}

// EmitOutcome implements monitor.Emitter: terminal watch outcomes go back
// to the chat that registered the watch.
func (b *Bot) EmitOutcome(ctx context.Context, outcome model.WatchOutcome) {
	if err := b.Telegram.SendWithRetry(ctx, outcome.Watch.ChatID, notifier.FormatOutcome(outcome), nil, 3); err != nil {
		zap.L().Error("send watch outcome", zap.Int64("chat_id", outcome.Watch.ChatID), zap.Error(err))
	}
}

func (b *Bot) send(chatID int64, text string, keyboard *notifier.InlineKeyboard) {
	if _, err := b.Telegram.SendMessage(chatID, text, keyboard); err != nil {
		zap.L().Error("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string, keyboard *notifier.InlineKeyboard) {
	if err := b.Telegram.EditMessage(chatID, messageID, text, keyboard); err != nil {
		zap.L().Error("edit message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
