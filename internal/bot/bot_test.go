package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqdev-tech/Crypto-trading-bot/internal/model"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/notifier"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/store"
)

type sentMessage struct {
	ChatID   int64
	Text     string
	Keyboard *notifier.InlineKeyboard
}

type editedMessage struct {
	ChatID    int64
	MessageID int
	Text      string
	Keyboard  *notifier.InlineKeyboard
}

// fakeMessenger records deliveries. Edits are also pushed on a channel so
// tests can wait for the background signal goroutine.
type fakeMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
	edited  []editedMessage
	retried []sentMessage
	edits   chan editedMessage
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{edits: make(chan editedMessage, 16)}
}

func (f *fakeMessenger) SendMessage(chatID int64, text string, keyboard *notifier.InlineKeyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID, text, keyboard})
	return len(f.sent), nil
}

func (f *fakeMessenger) EditMessage(chatID int64, messageID int, text string, keyboard *notifier.InlineKeyboard) error {
	f.mu.Lock()
	f.edited = append(f.edited, editedMessage{chatID, messageID, text, keyboard})
	f.mu.Unlock()
	f.edits <- editedMessage{chatID, messageID, text, keyboard}
	return nil
}

func (f *fakeMessenger) SendWithRetry(_ context.Context, chatID int64, text string, keyboard *notifier.InlineKeyboard, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried = append(f.retried, sentMessage{chatID, text, keyboard})
	return nil
}

func (f *fakeMessenger) waitEdit(t *testing.T) editedMessage {
	t.Helper()
	select {
	case e := <-f.edits:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message edit")
		return editedMessage{}
	}
}

func (f *fakeMessenger) sentCopy() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeMessenger) retriedCopy() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.retried...)
}

type stubPipeline struct {
	mu      sync.Mutex
	signals map[string]*model.Signal
	err     error
	symbols []string
}

func (p *stubPipeline) Generate(_ context.Context, symbol string) (*model.Signal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.symbols = append(p.symbols, symbol)
	if p.err != nil {
		return nil, p.err
	}
	if sig, ok := p.signals[symbol]; ok {
		return sig, nil
	}
	return nil, fmt.Errorf("no signal for %s", symbol)
}

func marketSignal(symbol string, confidence float64) *model.Signal {
	return &model.Signal{
		Symbol:     symbol,
		Action:     model.ActionBuy,
		Entry:      49800,
		TakeProfit: 51000,
		StopLoss:   49000,
		Confidence: confidence,
		Reason:     "test setup",
		Type:       model.SignalMarket,
		LivePrice:  50000,
	}
}

func newTestBot(pipeline *stubPipeline) (*Bot, *fakeMessenger, *store.Store) {
	tg := newFakeMessenger()
	st := store.New(0)
	b := New(tg, pipeline, st, []string{"BTC/USDT", "ETH/USDT"}, 0.85)
	b.ScanDelay = 0
	return b, tg, st
}

func TestHandleMessage_StartSubscribesAndWelcomes(t *testing.T) {
	b, tg, st := newTestBot(&stubPipeline{})

	b.HandleMessage(context.Background(), 42, "/start")

	assert.Equal(t, []int64{42}, st.Subscribers())
	sent := tg.sentCopy()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "Welcome")
	require.NotNil(t, sent[0].Keyboard)
	assert.Len(t, sent[0].Keyboard.InlineKeyboard, 2)
}

func TestHandleMessage_SignalFlow(t *testing.T) {
	pipeline := &stubPipeline{signals: map[string]*model.Signal{
		"ETH/USDT": marketSignal("ETH/USDT", 0.8),
	}}
	b, tg, _ := newTestBot(pipeline)

	b.HandleMessage(context.Background(), 42, "/signal eth/usdt")

	sent := tg.sentCopy()
	require.Len(t, sent, 1, "progress message goes out first")
	assert.Contains(t, sent[0].Text, "Generating signal")
	assert.Contains(t, sent[0].Text, "ETH/USDT", "symbol argument is upper-cased")

	edit := tg.waitEdit(t)
	assert.Equal(t, int64(42), edit.ChatID)
	assert.Contains(t, edit.Text, "ETH/USDT Signal")
	assert.Equal(t, []string{"ETH/USDT"}, pipeline.symbols)
}

func TestHandleMessage_SignalDefaultsSymbol(t *testing.T) {
	pipeline := &stubPipeline{signals: map[string]*model.Signal{
		"BTC/USDT": marketSignal("BTC/USDT", 0.8),
	}}
	b, tg, _ := newTestBot(pipeline)

	b.HandleMessage(context.Background(), 42, "/signal")
	tg.waitEdit(t)

	assert.Equal(t, []string{"BTC/USDT"}, pipeline.symbols)
}

func TestHandleMessage_SignalFailureShowsError(t *testing.T) {
	pipeline := &stubPipeline{err: errors.New("market data for BTC/USDT unavailable after 3 attempts: timeout")}
	b, tg, _ := newTestBot(pipeline)

	b.HandleMessage(context.Background(), 42, "/signal")

	edit := tg.waitEdit(t)
	assert.Contains(t, edit.Text, "❌ Error:")
	assert.Contains(t, edit.Text, "after 3 attempts")
}

func TestHandleMessage_History(t *testing.T) {
	b, tg, st := newTestBot(&stubPipeline{})
	st.AppendHistory(marketSignal("BTC/USDT", 0.8))

	b.HandleMessage(context.Background(), 42, "/history")

	sent := tg.sentCopy()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "Recent Signals")
	assert.Contains(t, sent[0].Text, "BTC/USDT")
}

func TestHandleMessage_UnknownCommandShowsHelp(t *testing.T) {
	b, tg, _ := newTestBot(&stubPipeline{})

	b.HandleMessage(context.Background(), 42, "/unknown")

	sent := tg.sentCopy()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "Available commands")
}

func TestHandleCallback_MonitorRegistersWatch(t *testing.T) {
	b, tg, st := newTestBot(&stubPipeline{})

	b.HandleCallback(context.Background(), 42, 7, "monitor_BTC/USDT_49800.12_BUY")

	watches := st.Watches()
	require.Len(t, watches, 1)
	assert.Equal(t, "BTC/USDT", watches[0].Symbol)
	assert.Equal(t, 49800.12, watches[0].Entry)
	assert.Equal(t, model.ActionBuy, watches[0].Action)
	assert.Equal(t, int64(42), watches[0].ChatID)
	assert.Equal(t, 7, watches[0].MessageID)

	edit := tg.waitEdit(t)
	assert.Contains(t, edit.Text, "Monitoring enabled")
}

func TestHandleCallback_MalformedMonitorIgnored(t *testing.T) {
	b, tg, st := newTestBot(&stubPipeline{})

	b.HandleCallback(context.Background(), 42, 7, "monitor_BTC/USDT_abc_BUY")

	assert.Empty(t, st.Watches())
	assert.Empty(t, tg.sentCopy())
}

func TestHandleCallback_SymbolButtonRunsSignalInPlace(t *testing.T) {
	pipeline := &stubPipeline{signals: map[string]*model.Signal{
		"ETH/USDT": marketSignal("ETH/USDT", 0.8),
	}}
	b, tg, _ := newTestBot(pipeline)

	b.HandleCallback(context.Background(), 42, 7, "ETH/USDT")

	// progress edit, then the signal edit
	progress := tg.waitEdit(t)
	assert.Equal(t, 7, progress.MessageID)
	assert.Contains(t, progress.Text, "Generating signal")

	final := tg.waitEdit(t)
	assert.Equal(t, 7, final.MessageID)
	assert.Contains(t, final.Text, "ETH/USDT Signal")
	assert.Empty(t, tg.sentCopy(), "no new message; the button's message is reused")
}

func TestProactiveScan_AlertsSubscribersAboveThreshold(t *testing.T) {
	pipeline := &stubPipeline{signals: map[string]*model.Signal{
		"BTC/USDT": marketSignal("BTC/USDT", 0.9),
		"ETH/USDT": marketSignal("ETH/USDT", 0.85),
	}}
	b, tg, st := newTestBot(pipeline)
	st.Subscribe(1)
	st.Subscribe(2)

	b.ProactiveScan(context.Background())

	retried := tg.retriedCopy()
	require.Len(t, retried, 2, "one alert per subscriber, only for the >0.85 signal")
	assert.Equal(t, int64(1), retried[0].ChatID)
	assert.Equal(t, int64(2), retried[1].ChatID)
	assert.Contains(t, retried[0].Text, "High-Confidence Alert: BTC/USDT")
	assert.NotContains(t, retried[0].Text, "ETH/USDT")
}

func TestProactiveScan_NoSubscribersSkipsGeneration(t *testing.T) {
	pipeline := &stubPipeline{}
	b, _, _ := newTestBot(pipeline)

	b.ProactiveScan(context.Background())

	assert.Empty(t, pipeline.symbols)
}

func TestEmitOutcome_DeliversToWatchChat(t *testing.T) {
	b, tg, _ := newTestBot(&stubPipeline{})

	b.EmitOutcome(context.Background(), model.WatchOutcome{
		Watch:  model.PendingWatch{ChatID: 42, Symbol: "BTC/USDT", Entry: 49800},
		Reason: "indicators no longer align",
	})

	retried := tg.retriedCopy()
	require.Len(t, retried, 1)
	assert.Equal(t, int64(42), retried[0].ChatID)
	assert.Contains(t, retried[0].Text, "SIGNAL CANCELLED")
}
