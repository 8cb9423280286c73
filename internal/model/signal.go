package model

// Action is the trade direction proposed by the analyzer.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// SignalType classifies how actionable a signal is right now.
type SignalType string

const (
	// SignalMarket means the entry price is within 0.5% of the live price.
	SignalMarket SignalType = "MARKET"
	// SignalPending means the entry price is further away and must be
	// monitored until the market reaches it.
	SignalPending SignalType = "PENDING"
)

// Signal is a fully validated trading signal. Prices are stored at full
// precision; rounding to 2 decimals happens only at the display boundary.
type Signal struct {
	Symbol         string
	Action         Action
	Entry          float64
	TakeProfit     float64
	StopLoss       float64
	Confidence     float64
	Reason         string
	Type           SignalType
	LivePrice      float64
	ConfidenceNote string // empty unless confidence is below the note threshold
}

// PendingWatch tracks a PENDING signal a user asked the bot to monitor.
type PendingWatch struct {
	ID        int64
	ChatID    int64
	Symbol    string
	Entry     float64
	Action    Action
	MessageID int
}

// WatchOutcome is the terminal result of a pending watch. Exactly one of
// Signal (confirmed) or Reason (cancelled) is set.
type WatchOutcome struct {
	Watch     PendingWatch
	Confirmed bool
	Signal    *Signal
	Reason    string
}
