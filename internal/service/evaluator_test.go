package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fx-price-alerts/internal/store"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func newRule(t *testing.T, s *store.RuleStore, symbol, cond string, threshold float64) store.Rule {
	t.Helper()
	r, err := s.Create(store.RuleSpec{
		Symbol:    symbol,
		Condition: cond,
		Threshold: dec(threshold),
		HasValue:  true,
	})
	if err != nil {
		t.Fatalf("create rule: %v", err)
	}
	return r
}

func TestEvaluateFirstObservationOnlySeedsBaseline(t *testing.T) {
	rules := store.NewRuleStore()
	cache := store.NewPriceCache()
	newRule(t, rules, "EUR-USD", ">", 1.1000)

	// 1.2 would satisfy the threshold outright, but with no history there is
	// nothing to cross from.
	events := Evaluate(map[string]decimal.Decimal{"EUR-USD": dec(1.2)}, rules.List(), cache, time.Now())
	if len(events) != 0 {
		t.Fatalf("first observation must never fire, got %d events", len(events))
	}

	p, ok := cache.Get("EUR-USD")
	if !ok || !p.Equal(dec(1.2)) {
		t.Fatalf("baseline not seeded, got %s (present=%v)", p, ok)
	}
}

func TestEvaluateAboveCrossingFiresOnce(t *testing.T) {
	rules := store.NewRuleStore()
	cache := store.NewPriceCache()
	newRule(t, rules, "EUR-USD", ">", 1.1000)

	// Cycle 1: below threshold, establishes history.
	if events := Evaluate(map[string]decimal.Decimal{"EUR-USD": dec(1.0990)}, rules.List(), cache, time.Now()); len(events) != 0 {
		t.Fatalf("no crossing yet, got %d events", len(events))
	}

	// Cycle 2: crosses.
	events := Evaluate(map[string]decimal.Decimal{"EUR-USD": dec(1.1005)}, rules.List(), cache, time.Now())
	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d", len(events))
	}
	if !events[0].Observed.Equal(dec(1.1005)) {
		t.Fatalf("event price mismatch: %s", events[0].Observed)
	}

	// Cycle 3: still above, previous is now also above, must not re-fire.
	if events := Evaluate(map[string]decimal.Decimal{"EUR-USD": dec(1.1200)}, rules.List(), cache, time.Now()); len(events) != 0 {
		t.Fatalf("price resting above threshold must not re-fire, got %d events", len(events))
	}
}

func TestEvaluateAboveFiresOnExactThreshold(t *testing.T) {
	rules := store.NewRuleStore()
	cache := store.NewPriceCache()
	newRule(t, rules, "EUR-USD", ">", 1.1000)
	cache.Set("EUR-USD", dec(1.0990))

	events := Evaluate(map[string]decimal.Decimal{"EUR-USD": dec(1.1000)}, rules.List(), cache, time.Now())
	if len(events) != 1 {
		t.Fatalf("landing exactly on the threshold must fire, got %d events", len(events))
	}
}

func TestEvaluateBelowRequiresStrictPriorAbove(t *testing.T) {
	rules := store.NewRuleStore()
	cache := store.NewPriceCache()
	newRule(t, rules, "GBP-USD", "<", 1.2500)
	cache.Set("GBP-USD", dec(1.2600))

	// Unchanged price above threshold: previous > T but current > T.
	events := Evaluate(map[string]decimal.Decimal{"GBP-USD": dec(1.2600)}, rules.List(), cache, time.Now())
	if len(events) != 0 {
		t.Fatalf("no crossing happened, got %d events", len(events))
	}
	if p, _ := cache.Get("GBP-USD"); !p.Equal(dec(1.2600)) {
		t.Fatalf("cache must still be updated, got %s", p)
	}

	// Now drop through.
	events = Evaluate(map[string]decimal.Decimal{"GBP-USD": dec(1.2450)}, rules.List(), cache, time.Now())
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}

	// Already at/below: previous no longer strictly above.
	events = Evaluate(map[string]decimal.Decimal{"GBP-USD": dec(1.2400)}, rules.List(), cache, time.Now())
	if len(events) != 0 {
		t.Fatalf("already below, must not fire again, got %d events", len(events))
	}
}

func TestEvaluateMissingSymbolIsPassThrough(t *testing.T) {
	rules := store.NewRuleStore()
	cache := store.NewPriceCache()
	newRule(t, rules, "EUR-USD", ">", 1.1000)
	cache.Set("EUR-USD", dec(1.0990))

	events := Evaluate(map[string]decimal.Decimal{}, rules.List(), cache, time.Now())
	if len(events) != 0 {
		t.Fatalf("no quotes, no events, got %d", len(events))
	}
	if p, _ := cache.Get("EUR-USD"); !p.Equal(dec(1.0990)) {
		t.Fatalf("cache must be untouched for unquoted symbols, got %s", p)
	}
}

func TestEvaluateMultipleRulesSameSymbolShareSamplePair(t *testing.T) {
	rules := store.NewRuleStore()
	cache := store.NewPriceCache()
	low := newRule(t, rules, "EUR-USD", ">", 1.1000)
	high := newRule(t, rules, "EUR-USD", ">", 1.1050)
	cache.Set("EUR-USD", dec(1.0990))

	// One jump crosses both thresholds; both must fire off the same
	// (previous, current) pair, in insertion order.
	events := Evaluate(map[string]decimal.Decimal{"EUR-USD": dec(1.1100)}, rules.List(), cache, time.Now())
	if len(events) != 2 {
		t.Fatalf("both rules should fire, got %d events", len(events))
	}
	if events[0].Rule.ID != low.ID || events[1].Rule.ID != high.ID {
		t.Fatalf("events out of insertion order: %d, %d", events[0].Rule.ID, events[1].Rule.ID)
	}
}
