package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MarketOptions is the per-market option bag of a template. Each market type
// has its own variant.
type MarketOptions interface {
	Market() MarketType
}

type OutcomeOptions struct{}

func (OutcomeOptions) Market() MarketType { return MarketOutcome }

type TotalGoalsOptions struct {
	Line *float64 `json:"line,omitempty"`
}

func (TotalGoalsOptions) Market() MarketType { return MarketTotalGoals }

// BooleanEventOptions describes a yes/no market answered by the presence of
// any of EventCodes among the match events.
type BooleanEventOptions struct {
	EventCodes []MatchEventType `json:"event_codes"`
	YesValue   string           `json:"yes_value,omitempty"`
	NoValue    string           `json:"no_value,omitempty"`
}

func (BooleanEventOptions) Market() MarketType { return MarketBooleanEvent }

func (o BooleanEventOptions) Yes() string {
	if o.YesValue == "" {
		return "YES"
	}
	return strings.ToUpper(o.YesValue)
}

func (o BooleanEventOptions) No() string {
	if o.NoValue == "" {
		return "NO"
	}
	return strings.ToUpper(o.NoValue)
}

// UnsupportedOptions keeps templates of unknown market types loadable.
type UnsupportedOptions struct {
	Type MarketType
}

func (o UnsupportedOptions) Market() MarketType { return o.Type }

// DecodeMarketOptions decodes the stored JSON options for the given market.
// Empty input yields the zero variant.
func DecodeMarketOptions(market MarketType, raw []byte) (MarketOptions, error) {
	empty := len(raw) == 0 || string(raw) == "null"
	switch market {
	case MarketOutcome:
		return OutcomeOptions{}, nil
	case MarketTotalGoals:
		var o TotalGoalsOptions
		if !empty {
			if err := json.Unmarshal(raw, &o); err != nil {
				return nil, fmt.Errorf("decode %s options: %w", market, err)
			}
		}
		return o, nil
	case MarketBooleanEvent:
		var o BooleanEventOptions
		if !empty {
			if err := json.Unmarshal(raw, &o); err != nil {
				return nil, fmt.Errorf("decode %s options: %w", market, err)
			}
		}
		return o, nil
	}
	return UnsupportedOptions{Type: market}, nil
}

// EncodeMarketOptions is the inverse of DecodeMarketOptions.
func EncodeMarketOptions(o MarketOptions) ([]byte, error) {
	switch v := o.(type) {
	case nil, OutcomeOptions, UnsupportedOptions:
		return []byte("{}"), nil
	default:
		return json.Marshal(v)
	}
}
