package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fx-price-alerts/internal/alerting"
	"fx-price-alerts/internal/fetcher"
	"fx-price-alerts/internal/metrics"
	"fx-price-alerts/internal/scheduler"
	"fx-price-alerts/internal/store"
)

// Service orchestrates the evaluation cycle: gather symbols, fetch quotes,
// detect crossings, fan out notifications, retire fired rules.
type Service struct {
	scheduler   *scheduler.Scheduler
	rules       *store.RuleStore
	prices      *store.PriceCache
	subscribers *store.SubscriberRegistry
	quotes      fetcher.QuoteFetcher
	notifier    alerting.Notifier
	logger      zerolog.Logger
}

// New constructs the alert engine.
func New(sched *scheduler.Scheduler, rules *store.RuleStore, prices *store.PriceCache, subscribers *store.SubscriberRegistry, quotes fetcher.QuoteFetcher, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		scheduler:   sched,
		rules:       rules,
		prices:      prices,
		subscribers: subscribers,
		quotes:      quotes,
		notifier:    notifier,
		logger:      logger.With().Str("component", "engine").Logger(),
	}
}

// Run begins the polling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessCycle)
}

// ProcessCycle executes one full evaluation cycle. The rule set is
// snapshotted up front: rules created mid-cycle are first seen next cycle,
// and a user delete racing retirement is absorbed by idempotent deletion.
func (s *Service) ProcessCycle(ctx context.Context, at time.Time) error {
	rules := s.rules.List()
	metrics.ActiveRules.Set(float64(len(rules)))

	if len(rules) == 0 {
		metrics.CyclesTotal.WithLabelValues("skipped").Inc()
		s.logger.Debug().Msg("no active rules, skipping cycle")
		return nil
	}

	symbols := dedupeSymbols(rules)

	start := time.Now()
	quotes, err := s.quotes.FetchQuotes(ctx, symbols)
	metrics.QuoteFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("fetch_error").Inc()
		return fmt.Errorf("fetch quotes: %w", err)
	}

	events := Evaluate(quotes, rules, s.prices, at)

	if len(events) > 0 {
		s.dispatch(ctx, events)

		fired := make([]int64, len(events))
		for i, ev := range events {
			fired[i] = ev.Rule.ID
		}
		// Firing is defined by crossing detection, not delivery: retire the
		// rules even when every push failed.
		s.rules.DeleteMany(fired)
		metrics.TriggersFiredTotal.Add(float64(len(events)))
	}

	metrics.CyclesTotal.WithLabelValues("completed").Inc()
	s.logger.Info().
		Int("rules", len(rules)).
		Int("symbols", len(symbols)).
		Int("quotes", len(quotes)).
		Int("triggered", len(events)).
		Msg("cycle completed")
	return nil
}

// dispatch sends one notification per event to all registered tokens, in
// parallel, and waits for every delivery to settle before returning so that
// retirement is always consistent with what was attempted.
func (s *Service) dispatch(ctx context.Context, events []store.TriggerEvent) {
	tokens := s.subscribers.Tokens()
	if len(tokens) == 0 {
		metrics.DispatchTotal.WithLabelValues("no_subscribers").Add(float64(len(events)))
		s.logger.Debug().Int("events", len(events)).Msg("no subscribers registered, skipping dispatch")
		return
	}

	var wg sync.WaitGroup
	for _, event := range events {
		wg.Add(1)
		go func(ev store.TriggerEvent) {
			defer wg.Done()

			title, body := alerting.Render(ev)
			results, err := s.notifier.Send(ctx, alerting.Notification{
				Title:  title,
				Body:   body,
				Tokens: tokens,
			})
			if err != nil {
				metrics.DispatchTotal.WithLabelValues("failed").Inc()
				s.logger.Error().Err(err).
					Int64("rule_id", ev.Rule.ID).
					Str("symbol", ev.Rule.Symbol).
					Msg("failed to dispatch notification")
				return
			}

			failed := alerting.Failed(results)
			metrics.DispatchTotal.WithLabelValues("sent").Add(float64(len(results) - failed))
			metrics.DispatchTotal.WithLabelValues("failed").Add(float64(failed))
		}(event)
	}
	wg.Wait()
}

func dedupeSymbols(rules []store.Rule) []string {
	seen := make(map[string]struct{}, len(rules))
	var out []string
	for _, r := range rules {
		if _, ok := seen[r.Symbol]; ok {
			continue
		}
		seen[r.Symbol] = struct{}{}
		out = append(out, r.Symbol)
	}
	return out
}
