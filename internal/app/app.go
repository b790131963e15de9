package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"fx-price-alerts/internal/alerting"
	"fx-price-alerts/internal/api"
	"fx-price-alerts/internal/config"
	"fx-price-alerts/internal/fetcher"
	"fx-price-alerts/internal/scheduler"
	"fx-price-alerts/internal/service"
	"fx-price-alerts/internal/store"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.QuoteFetcher {
	return fetcher.NewTwelveData(fetcher.TwelveDataOptions{
		BaseURL: a.Config.Provider.BaseURL,
		APIKey:  a.Config.Provider.APIKey,
		Timeout: a.Config.Provider.RequestTimeout,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Push.Enabled {
		return nil
	}
	cfg := a.Config.Push
	return alerting.NewPushNotifier(cfg.ServerKey, cfg.BaseURL, cfg.RequestTimeout, a.Logger)
}

// Run starts the HTTP front door and the polling engine and blocks until
// either fails or a shutdown signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rules := store.NewRuleStore()
	prices := store.NewPriceCache()
	subscribers := store.NewSubscriberRegistry()

	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Warn().Msg("push.enabled is false; triggers will be detected but not delivered")
		notifier = alerting.NopNotifier{}
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	engine := service.New(sched, rules, prices, subscribers, a.newFetcher(), notifier, a.Logger)
	server := api.NewServer(a.Config.Server, rules, subscribers, a.Logger)

	a.Logger.Info().
		Str("interval", a.Config.Scheduler.Interval.String()).
		Msg("starting alert service")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(ctx) })
	g.Go(func() error { return engine.Run(ctx) })

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("alert service stopped")
	return nil
}
