package models

import "testing"

func TestDecodeMarketOptions(t *testing.T) {
	t.Run("total goals line", func(t *testing.T) {
		o, err := DecodeMarketOptions(MarketTotalGoals, []byte(`{"line": 2.5}`))
		if err != nil {
			t.Fatalf("DecodeMarketOptions() error = %v", err)
		}
		tg, ok := o.(TotalGoalsOptions)
		if !ok || tg.Line == nil || *tg.Line != 2.5 {
			t.Fatalf("DecodeMarketOptions() = %#v, want line 2.5", o)
		}
	})

	t.Run("total goals without options", func(t *testing.T) {
		o, err := DecodeMarketOptions(MarketTotalGoals, nil)
		if err != nil {
			t.Fatalf("DecodeMarketOptions() error = %v", err)
		}
		if tg := o.(TotalGoalsOptions); tg.Line != nil {
			t.Errorf("Line = %v, want nil", *tg.Line)
		}
	})

	t.Run("boolean defaults", func(t *testing.T) {
		o, err := DecodeMarketOptions(MarketBooleanEvent, []byte(`{"event_codes":["PENALTY_GOAL","PENALTY_MISSED"]}`))
		if err != nil {
			t.Fatalf("DecodeMarketOptions() error = %v", err)
		}
		be := o.(BooleanEventOptions)
		if len(be.EventCodes) != 2 || be.Yes() != "YES" || be.No() != "NO" {
			t.Errorf("unexpected boolean options %#v", be)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		if _, err := DecodeMarketOptions(MarketBooleanEvent, []byte(`{"event_codes":`)); err == nil {
			t.Error("expected an error for malformed options")
		}
	})

	t.Run("unknown market", func(t *testing.T) {
		o, err := DecodeMarketOptions("FIRST_SCORER", []byte(`{"x":1}`))
		if err != nil {
			t.Fatalf("DecodeMarketOptions() error = %v", err)
		}
		if o.Market() != "FIRST_SCORER" {
			t.Errorf("Market() = %s", o.Market())
		}
	})
}
