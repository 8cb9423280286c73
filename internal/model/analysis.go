package model

import (
	"bytes"
	"encoding/json"
)

// StringOrNumber holds a JSON value the LLM may emit either as a string
// ("$49,800") or as a bare number (49800). The raw text is preserved for
// the validator's cleaning step.
type StringOrNumber string

func (s *StringOrNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = StringOrNumber(v)
		return nil
	}
	*s = StringOrNumber(data)
	return nil
}

func (s StringOrNumber) String() string { return string(s) }

// RawAnalysis is the untrusted analysis object returned by the LLM.
// Fields are pointers so the validator can distinguish a missing field
// from a zero value; nothing here is guaranteed until validated.
type RawAnalysis struct {
	Action     *string         `json:"action"`
	Entry      *StringOrNumber `json:"entry"`
	TakeProfit *StringOrNumber `json:"take_profit"`
	StopLoss   *StringOrNumber `json:"stop_loss"`
	Confidence *float64        `json:"confidence"`
	Reason     *string         `json:"reason"`
}
