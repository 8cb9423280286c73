package notifier

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/aqdev-tech/Crypto-trading-bot/internal/model"
)

// All displayed prices are rounded to 2 decimals here; the underlying
// Signal keeps full precision.

func actionEmoji(action model.Action) string {
	switch action {
	case model.ActionBuy:
		return "🚀"
	case model.ActionSell:
		return "📉"
	}
	return "🤔"
}

// MonitorCallback builds the callback payload for a "monitor this trade"
// button. ParseMonitorCallback is its inverse.
func MonitorCallback(sig *model.Signal) string {
	return fmt.Sprintf("monitor_%s_%.2f_%s", sig.Symbol, sig.Entry, sig.Action)
}

// ParseMonitorCallback recovers the watch parameters encoded by
// MonitorCallback. Chat and message ids are filled in by the caller.
func ParseMonitorCallback(data string) (model.PendingWatch, error) {
	parts := strings.Split(data, "_")
	if len(parts) != 4 || parts[0] != "monitor" {
		return model.PendingWatch{}, fmt.Errorf("malformed monitor callback: %q", data)
	}
	entry, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return model.PendingWatch{}, fmt.Errorf("malformed monitor entry: %q", parts[2])
	}
	return model.PendingWatch{Symbol: parts[1], Entry: entry, Action: model.Action(parts[3])}, nil
}

// FormatProgress is shown while a signal is being generated.
func FormatProgress(symbol string) string {
	return fmt.Sprintf("⏳ Generating signal for <code>%s</code>, please wait...", html.EscapeString(symbol))
}

// FormatSignal renders a validated signal into a Telegram HTML message.
// PENDING signals carry a monitor button.
func FormatSignal(sig *model.Signal) (string, *InlineKeyboard) {
	var b strings.Builder
	var keyboard *InlineKeyboard

	if sig.Type == model.SignalPending {
		b.WriteString(fmt.Sprintf("⏳ <b>Pending Signal - %s</b>\n\n", html.EscapeString(sig.Symbol)))
		b.WriteString(fmt.Sprintf("<b>Action:</b> <code>%s</code>\n", sig.Action))
		b.WriteString(fmt.Sprintf("<b>Entry Target:</b> $%.2f (wait for price)\n", sig.Entry))
		keyboard = &InlineKeyboard{InlineKeyboard: [][]InlineButton{
			{{Text: "🔔 Monitor this Trade", CallbackData: MonitorCallback(sig)}},
		}}
	} else {
		b.WriteString(fmt.Sprintf("%s <b>%s Signal</b>\n\n", actionEmoji(sig.Action), html.EscapeString(sig.Symbol)))
		b.WriteString(fmt.Sprintf("<b>Action:</b> <code>%s</code>\n", sig.Action))
		b.WriteString(fmt.Sprintf("<b>Entry:</b> $%.2f\n", sig.Entry))
	}

	b.WriteString(fmt.Sprintf("🎯 <b>Take Profit:</b> $%.2f\n", sig.TakeProfit))
	b.WriteString(fmt.Sprintf("🛡️ <b>Stop Loss:</b> $%.2f\n", sig.StopLoss))
	b.WriteString(fmt.Sprintf("💪 <b>Confidence:</b> <code>%.2f</code>\n", sig.Confidence))
	if sig.ConfidenceNote != "" {
		b.WriteString(fmt.Sprintf("⚠️ <b>Note:</b> %s\n", html.EscapeString(sig.ConfidenceNote)))
	}
	b.WriteString(fmt.Sprintf("\n<b>Reason:</b> %s\n\n", html.EscapeString(sig.Reason)))
	b.WriteString(fmt.Sprintf("<b>Live Price:</b> $%.2f", sig.LivePrice))

	return b.String(), keyboard
}

// FormatHistory renders the most recent signals, oldest first.
func FormatHistory(signals []*model.Signal) string {
	if len(signals) == 0 {
		return "📜 No signals in history yet."
	}
	var b strings.Builder
	b.WriteString("<b>--- Recent Signals ---</b>\n")
	for _, sig := range signals {
		b.WriteString(fmt.Sprintf("\n%s <b>%s</b>\n", actionEmoji(sig.Action), html.EscapeString(sig.Symbol)))
		b.WriteString(fmt.Sprintf("<code>%s</code> | Entry: $%.2f\n", sig.Action, sig.Entry))
		b.WriteString(fmt.Sprintf("TP: $%.2f | SL: $%.2f\n", sig.TakeProfit, sig.StopLoss))
		b.WriteString(fmt.Sprintf("Confidence: <code>%.2f</code>\n", sig.Confidence))
	}
	return b.String()
}

// FormatOutcome renders a terminal monitoring outcome.
func FormatOutcome(outcome model.WatchOutcome) string {
	if outcome.Confirmed {
		sig := outcome.Signal
		var b strings.Builder
		b.WriteString(fmt.Sprintf("✅ <b>TRADE CONFIRMED: %s</b>\n\n", html.EscapeString(sig.Symbol)))
		b.WriteString(fmt.Sprintf("<b>Action:</b> <code>%s</code>\n", sig.Action))
		b.WriteString(fmt.Sprintf("<b>Entry:</b> $%.2f\n", sig.Entry))
		b.WriteString(fmt.Sprintf("🎯 <b>Take Profit:</b> $%.2f\n", sig.TakeProfit))
		b.WriteString(fmt.Sprintf("🛡️ <b>Stop Loss:</b> $%.2f\n", sig.StopLoss))
		b.WriteString(fmt.Sprintf("💪 <b>Confidence:</b> <code>%.2f</code>\n\n", sig.Confidence))
		b.WriteString(fmt.Sprintf("<b>Reason:</b> %s", html.EscapeString(sig.Reason)))
		return b.String()
	}
	return fmt.Sprintf(
		"❌ <b>SIGNAL CANCELLED: %s</b>\n\n"+
			"The entry price of $%.2f was hit, but the trade setup is no longer valid.\n"+
			"<b>Reason:</b> %s",
		html.EscapeString(outcome.Watch.Symbol), outcome.Watch.Entry, html.EscapeString(outcome.Reason))
}

// FormatAlert renders a proactive high-confidence alert.
func FormatAlert(sig *model.Signal) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔥 <b>High-Confidence Alert: %s</b>\n\n", html.EscapeString(sig.Symbol)))
	b.WriteString(fmt.Sprintf("%s <b>Action:</b> <code>%s</code>\n", actionEmoji(sig.Action), sig.Action))
	b.WriteString(fmt.Sprintf("<b>Entry:</b> $%.2f\n", sig.Entry))
	b.WriteString(fmt.Sprintf("🎯 <b>TP:</b> $%.2f | 🛡️ <b>SL:</b> $%.2f\n", sig.TakeProfit, sig.StopLoss))
	b.WriteString(fmt.Sprintf("💪 <b>Confidence:</b> <code>%.2f</code>\n", sig.Confidence))
	b.WriteString(fmt.Sprintf("🧠 <b>Reason:</b> %s", html.EscapeString(sig.Reason)))
	return b.String()
}

// FormatWelcome renders the /start greeting with a symbol keyboard.
func FormatWelcome(symbols []string) (string, *InlineKeyboard) {
	rows := make([][]InlineButton, 0, len(symbols))
	for _, s := range symbols {
		rows = append(rows, []InlineButton{{Text: "📈 " + s, CallbackData: s}})
	}
	text := "👋 Welcome to the Crypto Signal Bot!\n\n" +
		"I'll send you proactive alerts and can monitor pending trades for you.\n" +
		"Use /signal &lt;PAIR&gt; for a signal or pick a pair below."
	return text, &InlineKeyboard{InlineKeyboard: rows}
}

// FormatMonitorAck confirms that monitoring was enabled for a watch.
func FormatMonitorAck(symbol string, entry float64) string {
	return fmt.Sprintf("✅ Monitoring enabled for %s at $%.2f. I will alert you when the price is hit.",
		html.EscapeString(symbol), entry)
}

// FormatError renders an unresolved failure as a plain error message.
func FormatError(err error) string {
	return "❌ Error: " + html.EscapeString(err.Error())
}
