package signal

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aqdev-tech/Crypto-trading-bot/internal/model"
)

// Validation failures. These are retried by the pipeline with a fresh LLM
// sample rather than escalated immediately.
var (
	ErrMissingFields      = errors.New("LLM response is missing required fields")
	ErrInvalidPriceFormat = errors.New("invalid price format in LLM response")
	ErrInvalidBuyLogic    = errors.New("invalid BUY signal logic")
	ErrInvalidSellLogic   = errors.New("invalid SELL signal logic")
)

const (
	buyConfidenceNote  = "Low confidence – Entry should only be acted on after bullish confirmation (e.g., a strong green candle closing above a key level)."
	sellConfidenceNote = "Low confidence – Entry should only be acted on after bearish confirmation (e.g., a strong red candle closing below a key level)."
)

// CleanPrice strips currency symbols and commentary from a price value and
// parses the remainder as a float. An empty remainder yields 0.
func CleanPrice(s string) (float64, error) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPriceFormat, s)
	}
	return v, nil
}

// Validator turns an untrusted LLM analysis into a validated Signal.
type Validator struct {
	// PendingThreshold is the relative deviation of entry from the live
	// price above which a signal is classified PENDING.
	PendingThreshold float64
	// ConfidenceNoteBelow is the confidence under which a directional
	// confirmation note is attached.
	ConfidenceNoteBelow float64
}

// NewValidator returns a Validator with the default thresholds.
func NewValidator() *Validator {
	return &Validator{PendingThreshold: 0.005, ConfidenceNoteBelow: 0.70}
}

// Validate checks field presence, cleans the numeric fields, enforces the
// directional ordering invariant, classifies the signal MARKET vs PENDING
// and attaches the confidence note. HOLD responses still go through cleaning
// and classification; only the ordering check is skipped.
func (v *Validator) Validate(raw *model.RawAnalysis, currentPrice float64) (*model.Signal, error) {
	if raw == nil ||
		raw.Action == nil || raw.Entry == nil || raw.TakeProfit == nil ||
		raw.StopLoss == nil || raw.Confidence == nil || raw.Reason == nil {
		return nil, ErrMissingFields
	}

	entry, err := CleanPrice(raw.Entry.String())
	if err != nil {
		return nil, err
	}
	takeProfit, err := CleanPrice(raw.TakeProfit.String())
	if err != nil {
		return nil, err
	}
	stopLoss, err := CleanPrice(raw.StopLoss.String())
	if err != nil {
		return nil, err
	}

	action := model.Action(strings.ToUpper(strings.TrimSpace(*raw.Action)))
	switch action {
	case model.ActionBuy:
		if takeProfit <= entry || stopLoss >= entry {
			return nil, ErrInvalidBuyLogic
		}
	case model.ActionSell:
		if takeProfit >= entry || stopLoss <= entry {
			return nil, ErrInvalidSellLogic
		}
	}

	sig := &model.Signal{
		Action:     action,
		Entry:      entry,
		TakeProfit: takeProfit,
		StopLoss:   stopLoss,
		Confidence: *raw.Confidence,
		Reason:     *raw.Reason,
		Type:       v.Classify(entry, currentPrice),
		LivePrice:  currentPrice,
	}

	if sig.Confidence < v.ConfidenceNoteBelow {
		switch action {
		case model.ActionBuy:
			sig.ConfidenceNote = buyConfidenceNote
		case model.ActionSell:
			sig.ConfidenceNote = sellConfidenceNote
		}
	}

	return sig, nil
}

// Classify returns PENDING when entry deviates from currentPrice by more
// than the threshold, MARKET otherwise. Deviation is relative and symmetric
// in the sign of (entry - currentPrice).
func (v *Validator) Classify(entry, currentPrice float64) model.SignalType {
	if math.Abs(entry-currentPrice)/currentPrice > v.PendingThreshold {
		return model.SignalPending
	}
	return model.SignalMarket
}
