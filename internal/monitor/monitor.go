package monitor

import (
	"context"

	"go.uber.org/zap"

	"github.com/aqdev-tech/Crypto-trading-bot/internal/market"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/model"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/store"
)

// Emitter delivers terminal watch outcomes to the user.
type Emitter interface {
	EmitOutcome(ctx context.Context, outcome model.WatchOutcome)
}

// Generator re-evaluates a symbol when a watch triggers.
type Generator interface {
	Generate(ctx context.Context, symbol string) (*model.Signal, error)
}

// Monitor periodically re-evaluates pending watches against live prices.
// A triggered watch is removed exactly once and never re-enters watching;
// it always ends in a confirmed or cancelled outcome.
type Monitor struct {
	Store    *store.Store
	Market   market.Fetcher
	Pipeline Generator
	Emitter  Emitter
}

// New creates a Monitor.
func New(st *store.Store, fetcher market.Fetcher, pipeline Generator, emitter Emitter) *Monitor {
	return &Monitor{Store: st, Market: fetcher, Pipeline: pipeline, Emitter: emitter}
}

// Tick evaluates every pending watch once. A price-fetch failure skips only
// that watch; the rest of the tick proceeds.
func (m *Monitor) Tick(ctx context.Context) {
	for _, w := range m.Store.Watches() {
		price, err := m.Market.FetchCurrentPrice(ctx, w.Symbol)
		if err != nil {
			zap.L().Warn("monitor price fetch failed",
				zap.String("symbol", w.Symbol),
				zap.Int64("watch_id", w.ID),
				zap.Error(err))
			continue
		}
		if !triggered(w, price) {
			continue
		}
		m.reevaluate(ctx, w)
	}
}

// triggered reports whether the live price has reached the watch's entry.
func triggered(w model.PendingWatch, price float64) bool {
	switch w.Action {
	case model.ActionBuy:
		return price <= w.Entry
	case model.ActionSell:
		return price >= w.Entry
	}
	return false
}

func (m *Monitor) reevaluate(ctx context.Context, w model.PendingWatch) {
	// Claim the watch before re-evaluating so it can never fire twice.
	if !m.Store.RemoveWatch(w.ID) {
		return
	}

	zap.L().Info("entry price hit, re-evaluating",
		zap.String("symbol", w.Symbol),
		zap.String("action", string(w.Action)),
		zap.Float64("entry", w.Entry))

	outcome := model.WatchOutcome{Watch: w}
	sig, err := m.Pipeline.Generate(ctx, w.Symbol)
	switch {
	case err == nil && sig.Type == model.SignalMarket:
		outcome.Confirmed = true
		outcome.Signal = sig
	case err != nil:
		outcome.Reason = err.Error()
	default:
		outcome.Reason = "indicators no longer align"
	}
	m.Emitter.EmitOutcome(ctx, outcome)
}
