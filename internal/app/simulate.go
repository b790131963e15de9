package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"fx-price-alerts/internal/fetcher"
	"fx-price-alerts/internal/service"
	"fx-price-alerts/internal/store"
)

// SimulateAlert drives one crossing through the full engine path using a
// static quote pair: the previous price seeds the cache, the current price
// is evaluated against a throwaway rule, and any trigger goes through the
// configured notifier to the given token.
func (a *App) SimulateAlert(ctx context.Context, symbol, condition string, threshold, previous, current decimal.Decimal, token string) error {
	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("push delivery not configured; enable push in config")
	}

	rules := store.NewRuleStore()
	prices := store.NewPriceCache()
	subscribers := store.NewSubscriberRegistry()

	rule, err := rules.Create(store.RuleSpec{
		Symbol:    symbol,
		Condition: condition,
		Threshold: threshold,
		HasValue:  true,
	})
	if err != nil {
		return err
	}
	if err := subscribers.Register(token); err != nil {
		return err
	}
	prices.Set(rule.Symbol, previous)

	quotes := &staticQuoteFetcher{prices: map[string]decimal.Decimal{rule.Symbol: current}}
	engine := service.New(nil, rules, prices, subscribers, quotes, notifier, a.Logger)

	if err := engine.ProcessCycle(ctx, time.Now().UTC()); err != nil {
		return err
	}
	if rules.Len() != 0 {
		a.Logger.Info().Msg("no crossing detected for the given prices")
	}
	return nil
}

type staticQuoteFetcher struct {
	prices map[string]decimal.Decimal
}

func (s *staticQuoteFetcher) FetchQuotes(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	return s.prices, nil
}

var _ fetcher.QuoteFetcher = (*staticQuoteFetcher)(nil)
