package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-tracker/internal/alerting"
	"price-tracker/internal/config"
	"price-tracker/internal/extract"
	"price-tracker/internal/fetch"
	"price-tracker/internal/storage"
	"price-tracker/internal/track"
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

// openStore selects the persistence backend: PostgreSQL when a DSN is
// configured, the JSON data file otherwise.
func (a *App) openStore(ctx context.Context) (storage.Store, func(), error) {
	if a.Config.Database.DSN != "" {
		pool, err := storage.NewPool(ctx, a.Config.Database)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	}

	return storage.NewFileStore(a.Config.Tracker.DataFile, a.Logger), nil, nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return alerting.NewLogNotifier(a.Logger)
}

// newTracker wires the fetch/extract/alert/persist pipeline and hydrates the
// tracked collection.
func (a *App) newTracker(ctx context.Context) (*track.Tracker, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	fetcher := fetch.New(fetch.Options{
		Timeout:   a.Config.Fetcher.Timeout,
		Delay:     a.Config.Fetcher.Delay,
		UserAgent: a.Config.Fetcher.UserAgent,
	}, a.Logger)

	extractor := extract.New(a.Logger)

	tracker := track.New(fetcher, extractor, store, a.newNotifier(), track.Options{
		HistoryLimit: a.Config.Tracker.HistoryLimit,
	}, a.Logger)

	if err := tracker.LoadProducts(ctx); err != nil {
		if closeStore != nil {
			closeStore()
		}
		return nil, nil, err
	}

	return tracker, closeStore, nil
}

// Run starts the periodic tracking loop and blocks until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracker, closeStore, err := a.newTracker(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	if err := tracker.Start(a.Config.Tracker.Interval); err != nil {
		return err
	}

	a.Logger.Info().Dur("interval", a.Config.Tracker.Interval).Msg("price tracker running")
	<-ctx.Done()

	if err := tracker.Stop(); err != nil {
		return err
	}
	tracker.Wait()

	a.Logger.Info().Msg("price tracker stopped")
	return nil
}

// Add registers a product for tracking. The target price arrives as raw user
// input and is validated here at the boundary.
func (a *App) Add(ctx context.Context, name, url, target string) error {
	targetPrice, err := decimal.NewFromString(target)
	if err != nil {
		return fmt.Errorf("target price must be a number: %q", target)
	}

	tracker, closeStore, err := a.newTracker(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	_, err = tracker.Add(ctx, name, url, targetPrice)
	return err
}

// Remove stops tracking the named product.
func (a *App) Remove(ctx context.Context, name string) error {
	tracker, closeStore, err := a.newTracker(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	return tracker.Remove(ctx, name)
}

// Check runs one check cycle for the named product, or for every tracked
// product when name is empty.
func (a *App) Check(ctx context.Context, name string) error {
	tracker, closeStore, err := a.newTracker(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	if name == "" {
		_, err = tracker.CheckAll(ctx)
		return err
	}

	_, err = tracker.CheckOne(ctx, name)
	return err
}

// ExportOptions hold parameters for exporting a product's price history.
type ExportOptions struct {
	Name      string
	CSVPath   string
	PNGPath   string
	MaxPoints int
}
