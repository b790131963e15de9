package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fx-price-alerts/internal/alerting"
	"fx-price-alerts/internal/fetcher"
	"fx-price-alerts/internal/store"
)

type staticFetcher struct {
	mu     sync.Mutex
	quotes map[string]decimal.Decimal
	err    error
	calls  int
}

func (f *staticFetcher) FetchQuotes(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.quotes, nil
}

func (f *staticFetcher) set(quotes map[string]decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes = quotes
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []alerting.Notification
	fail bool
}

func (n *recordingNotifier) Send(ctx context.Context, note alerting.Notification) ([]alerting.DeliveryResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	if n.fail {
		return nil, errors.New("push provider unreachable")
	}
	results := make([]alerting.DeliveryResult, len(note.Tokens))
	for i, tok := range note.Tokens {
		results[i] = alerting.DeliveryResult{Token: tok}
	}
	return results, nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

var _ fetcher.QuoteFetcher = (*staticFetcher)(nil)
var _ alerting.Notifier = (*recordingNotifier)(nil)

type harness struct {
	svc         *Service
	rules       *store.RuleStore
	prices      *store.PriceCache
	subscribers *store.SubscriberRegistry
	fetch       *staticFetcher
	notify      *recordingNotifier
}

func newHarness() *harness {
	h := &harness{
		rules:       store.NewRuleStore(),
		prices:      store.NewPriceCache(),
		subscribers: store.NewSubscriberRegistry(),
		fetch:       &staticFetcher{},
		notify:      &recordingNotifier{},
	}
	h.svc = New(nil, h.rules, h.prices, h.subscribers, h.fetch, h.notify, zerolog.Nop())
	return h
}

func (h *harness) addRule(t *testing.T, symbol, cond string, threshold float64) store.Rule {
	t.Helper()
	return newRule(t, h.rules, symbol, cond, threshold)
}

func (h *harness) cycle(t *testing.T) error {
	t.Helper()
	return h.svc.ProcessCycle(context.Background(), time.Now())
}

func TestCycleFiresAndRetiresRule(t *testing.T) {
	h := newHarness()
	h.addRule(t, "EUR-USD", ">", 1.1000)
	_ = h.subscribers.Register("device-a")

	// Cycle 1: baseline only.
	h.fetch.set(map[string]decimal.Decimal{"EUR-USD": dec(1.0990)})
	if err := h.cycle(t); err != nil {
		t.Fatalf("cycle 1: %v", err)
	}
	if h.notify.count() != 0 || h.rules.Len() != 1 {
		t.Fatal("nothing should fire on the baseline cycle")
	}

	// Cycle 2: crossing.
	h.fetch.set(map[string]decimal.Decimal{"EUR-USD": dec(1.1005)})
	if err := h.cycle(t); err != nil {
		t.Fatalf("cycle 2: %v", err)
	}
	if h.notify.count() != 1 {
		t.Fatalf("expected one notification, got %d", h.notify.count())
	}
	if h.rules.Len() != 0 {
		t.Fatal("fired rule must be retired")
	}
}

func TestCycleWithNoRulesSkipsFetch(t *testing.T) {
	h := newHarness()
	if err := h.cycle(t); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if h.fetch.calls != 0 {
		t.Fatalf("zero rules must mean zero provider calls, got %d", h.fetch.calls)
	}
}

func TestCycleFetchErrorLeavesStateUntouched(t *testing.T) {
	h := newHarness()
	h.addRule(t, "EUR-USD", ">", 1.1000)
	h.prices.Set("EUR-USD", dec(1.0990))
	h.fetch.err = errors.New("provider unreachable")

	if err := h.cycle(t); err == nil {
		t.Fatal("fetch failure must surface as a cycle error")
	}
	if h.rules.Len() != 1 {
		t.Fatal("rules must persist unfired through a failed cycle")
	}
	if p, _ := h.prices.Get("EUR-USD"); !p.Equal(dec(1.0990)) {
		t.Fatalf("cache must be untouched, got %s", p)
	}
}

func TestCycleDispatchFailureStillRetires(t *testing.T) {
	h := newHarness()
	h.addRule(t, "EUR-USD", ">", 1.1000)
	h.prices.Set("EUR-USD", dec(1.0990))
	_ = h.subscribers.Register("device-a")
	h.notify.fail = true

	h.fetch.set(map[string]decimal.Decimal{"EUR-USD": dec(1.1005)})
	if err := h.cycle(t); err != nil {
		t.Fatalf("dispatch failure must not fail the cycle: %v", err)
	}
	if h.rules.Len() != 0 {
		t.Fatal("rule must be retired even when delivery failed")
	}
}

func TestCycleNoSubscribersSkipsDispatchButRetires(t *testing.T) {
	h := newHarness()
	h.addRule(t, "EUR-USD", ">", 1.1000)
	h.prices.Set("EUR-USD", dec(1.0990))

	h.fetch.set(map[string]decimal.Decimal{"EUR-USD": dec(1.1005)})
	if err := h.cycle(t); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if h.notify.count() != 0 {
		t.Fatal("dispatch must be skipped with an empty registry")
	}
	if h.rules.Len() != 0 {
		t.Fatal("rule must still be retired")
	}
}

func TestCycleTwoRulesSameSymbolRetiredTogether(t *testing.T) {
	h := newHarness()
	h.addRule(t, "EUR-USD", ">", 1.1000)
	h.addRule(t, "EUR-USD", ">", 1.1050)
	survivor := h.addRule(t, "GBP-USD", "<", 1.2000)
	h.prices.Set("EUR-USD", dec(1.0990))
	_ = h.subscribers.Register("device-a")

	h.fetch.set(map[string]decimal.Decimal{"EUR-USD": dec(1.1100)})
	if err := h.cycle(t); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if h.notify.count() != 2 {
		t.Fatalf("expected two notifications, got %d", h.notify.count())
	}
	remaining := h.rules.List()
	if len(remaining) != 1 || remaining[0].ID != survivor.ID {
		t.Fatalf("only the unquoted rule should survive, got %+v", remaining)
	}
}
