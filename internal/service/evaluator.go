package service

import (
	"time"

	"github.com/shopspring/decimal"

	"fx-price-alerts/internal/store"
)

// Evaluate runs crossing detection for one cycle. For every symbol present
// in the quote set it compares the cached previous price with the current
// one against each rule bound to that symbol, then writes the current price
// back into the cache. A symbol seen for the first time only seeds the
// cache: with no history there is nothing to cross from, so its rules are
// skipped this cycle. Symbols absent from the quote set are left untouched.
//
// All rules on a symbol observe the same (previous, current) pair, and the
// returned events follow rule insertion order.
func Evaluate(quotes map[string]decimal.Decimal, rules []store.Rule, cache *store.PriceCache, at time.Time) []store.TriggerEvent {
	previous := make(map[string]decimal.Decimal, len(quotes))
	for symbol := range quotes {
		if prev, ok := cache.Get(symbol); ok {
			previous[symbol] = prev
		}
	}

	var events []store.TriggerEvent
	for _, rule := range rules {
		current, quoted := quotes[rule.Symbol]
		if !quoted {
			continue
		}
		prev, hasHistory := previous[rule.Symbol]
		if !hasHistory {
			continue
		}
		if crossed(rule, prev, current) {
			events = append(events, store.TriggerEvent{
				Rule:       rule,
				Observed:   current,
				ObservedAt: at,
			})
		}
	}

	for symbol, price := range quotes {
		cache.Set(symbol, price)
	}

	return events
}

// crossed applies the edge-inclusive comparison: the current sample may land
// exactly on the threshold, but the previous one must be strictly on the
// other side. Once the price rests at or past the threshold the previous
// sample no longer satisfies the strict leg, so a crossing fires exactly
// once per pass-through.
func crossed(rule store.Rule, previous, current decimal.Decimal) bool {
	switch rule.Condition {
	case store.ConditionAbove:
		return current.GreaterThanOrEqual(rule.Threshold) && previous.LessThan(rule.Threshold)
	case store.ConditionBelow:
		return current.LessThanOrEqual(rule.Threshold) && previous.GreaterThan(rule.Threshold)
	default:
		return false
	}
}
