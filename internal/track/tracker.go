package track

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-tracker/internal/alerting"
	"price-tracker/internal/extract"
	"price-tracker/internal/fetch"
	"price-tracker/internal/storage"
)

var (
	// ErrDuplicateURL rejects adding a product whose URL is already tracked.
	ErrDuplicateURL = errors.New("track: product url already tracked")
	// ErrNotFound indicates no tracked product matches the given name.
	ErrNotFound = errors.New("track: product not found")
	// ErrEmptyStore rejects starting the loop with nothing to track.
	ErrEmptyStore = errors.New("track: no products to track")
	// ErrAlreadyRunning rejects a second concurrent tracking loop.
	ErrAlreadyRunning = errors.New("track: tracking loop already running")
	// ErrNotRunning indicates Stop was called while stopped.
	ErrNotRunning = errors.New("track: tracking loop not running")
	// ErrInvalidTarget rejects non-positive target prices.
	ErrInvalidTarget = errors.New("track: target price must be positive")
)

// Outcome classifies the result of one check cycle.
type Outcome string

const (
	OutcomeFailed        Outcome = "failed"
	OutcomeTargetReached Outcome = "target_reached"
	OutcomeDecreased     Outcome = "decreased"
	OutcomeIncreased     Outcome = "increased"
	OutcomeUnchanged     Outcome = "unchanged"
	OutcomeEstablished   Outcome = "established"
)

// CheckResult reports what one check cycle observed.
type CheckResult struct {
	Name    string
	Outcome Outcome
	Price   decimal.Decimal
}

// Options tune tracker behaviour.
type Options struct {
	HistoryLimit int
}

// Tracker orchestrates fetching, extraction, classification, alerting, and
// persistence over the tracked-product collection. One mutex serialises the
// foreground command path and the background loop; every mutating operation
// runs start to finish under it.
type Tracker struct {
	mu       sync.Mutex
	products []storage.Product

	fetcher   fetch.PageFetcher
	extractor extract.PriceExtractor
	store     storage.Store
	notifier  alerting.Notifier
	logger    zerolog.Logger

	historyLimit int
	now          func() time.Time

	loopMu  sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a Tracker.
func New(fetcher fetch.PageFetcher, extractor extract.PriceExtractor, store storage.Store, notifier alerting.Notifier, opts Options, logger zerolog.Logger) *Tracker {
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = storage.DefaultHistoryLimit
	}

	return &Tracker{
		fetcher:      fetcher,
		extractor:    extractor,
		store:        store,
		notifier:     notifier,
		logger:       logger.With().Str("component", "tracker").Logger(),
		historyLimit: limit,
		now:          time.Now,
	}
}

// LoadProducts hydrates the in-memory collection from the store. A load
// failure is non-fatal: the tracker starts from an empty collection.
func (t *Tracker) LoadProducts(ctx context.Context) error {
	products, err := t.store.Load(ctx)
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to load tracked products; starting empty")
		products = []storage.Product{}
	}

	t.mu.Lock()
	t.products = products
	t.mu.Unlock()
	return nil
}

// Products returns a snapshot of the tracked collection for display.
func (t *Tracker) Products() []storage.Product {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make([]storage.Product, len(t.products))
	for i, p := range t.products {
		snapshot[i] = p
		snapshot[i].PriceHistory = append([]storage.PricePoint(nil), p.PriceHistory...)
		if p.CurrentPrice != nil {
			price := *p.CurrentPrice
			snapshot[i].CurrentPrice = &price
		}
	}
	return snapshot
}

// Add registers a new product and performs one best-effort initial check.
// Failing to fetch an initial price is not an error; the product is tracked
// with no current price until a check succeeds.
func (t *Tracker) Add(ctx context.Context, name, rawURL string, target decimal.Decimal) (storage.Product, error) {
	name = strings.TrimSpace(name)
	rawURL = strings.TrimSpace(rawURL)
	if name == "" || rawURL == "" {
		return storage.Product{}, fmt.Errorf("track: name and url are required")
	}
	if !target.IsPositive() {
		return storage.Product{}, fmt.Errorf("%w: %s", ErrInvalidTarget, target.String())
	}

	url := normalizeURL(rawURL)

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.products {
		if p.URL == url {
			return storage.Product{}, fmt.Errorf("%w: %s", ErrDuplicateURL, url)
		}
	}

	product := storage.Product{
		Name:         name,
		URL:          url,
		TargetPrice:  target,
		LastChecked:  t.now(),
		PriceHistory: []storage.PricePoint{},
	}

	t.logger.Info().Str("product", name).Msg("checking initial price")
	if price, ok := t.observe(ctx, url); ok {
		product.ObservePrice(price, t.now(), t.historyLimit)
		t.logger.Info().Str("product", name).Str("price", price.StringFixed(2)).Msg("product added")
	} else {
		t.logger.Warn().Str("product", name).Msg("product added without initial price")
	}

	t.products = append(t.products, product)
	t.persistLocked(ctx)

	idx := len(t.products) - 1
	if t.products[idx].TargetReached() {
		t.logger.Info().Str("product", name).Msg("target price already reached")
		t.dispatchAlertLocked(ctx, &t.products[idx])
	}

	return t.products[idx], nil
}

// Remove drops every tracked product matching name.
func (t *Tracker) Remove(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.products[:0]
	removed := 0
	for _, p := range t.products {
		if p.Name == name {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	t.products = kept
	t.persistLocked(ctx)
	t.logger.Info().Str("product", name).Int("removed", removed).Msg("product removed from tracking")
	return nil
}

// CheckOne runs a single fetch+extract+classify cycle for the named product.
func (t *Tracker) CheckOne(ctx context.Context, name string) (CheckResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.products {
		if t.products[i].Name == name {
			result := t.checkProductLocked(ctx, &t.products[i])
			t.persistLocked(ctx)
			return result, nil
		}
	}
	return CheckResult{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// CheckAll checks every tracked product sequentially in store order and
// persists once at the end of the batch.
func (t *Tracker) CheckAll(ctx context.Context) ([]CheckResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.products) == 0 {
		return nil, nil
	}

	t.logger.Info().Int("products", len(t.products)).Msg("checking all products")

	// Whatever the batch applied is persisted, even when it aborts between
	// products on cancellation.
	defer t.persistLocked(context.WithoutCancel(ctx))

	results := make([]CheckResult, 0, len(t.products))
	for i := range t.products {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		t.logger.Info().
			Str("product", t.products[i].Name).
			Int("position", i+1).
			Int("total", len(t.products)).
			Msg("checking product")
		results = append(results, t.checkProductLocked(ctx, &t.products[i]))
	}

	t.logger.Info().Msg("finished checking all products")
	return results, nil
}

// checkProductLocked runs one check cycle for p. Callers hold t.mu.
func (t *Tracker) checkProductLocked(ctx context.Context, p *storage.Product) CheckResult {
	checkedAt := t.now()
	p.LastChecked = checkedAt

	price, ok := t.observe(ctx, p.URL)
	if !ok {
		t.logger.Warn().Str("product", p.Name).Msg("failed to get price")
		return CheckResult{Name: p.Name, Outcome: OutcomeFailed}
	}

	old := p.CurrentPrice
	p.ObservePrice(price, checkedAt, t.historyLimit)

	result := CheckResult{Name: p.Name, Price: price}
	switch {
	case price.LessThanOrEqual(p.TargetPrice):
		result.Outcome = OutcomeTargetReached
		savings := p.TargetPrice.Sub(price)
		t.logger.Info().
			Str("product", p.Name).
			Str("price", price.StringFixed(2)).
			Str("savings", savings.StringFixed(2)).
			Msg("TARGET REACHED")
		t.dispatchAlertLocked(ctx, p)

	case old != nil && price.LessThan(*old):
		result.Outcome = OutcomeDecreased
		t.logger.Info().
			Str("product", p.Name).
			Str("old", old.StringFixed(2)).
			Str("new", price.StringFixed(2)).
			Str("savings", old.Sub(price).StringFixed(2)).
			Msg("price dropped")

	case old != nil && price.GreaterThan(*old):
		result.Outcome = OutcomeIncreased
		t.logger.Info().
			Str("product", p.Name).
			Str("old", old.StringFixed(2)).
			Str("new", price.StringFixed(2)).
			Str("increase", price.Sub(*old).StringFixed(2)).
			Msg("price increased")

	case old != nil:
		result.Outcome = OutcomeUnchanged
		t.logger.Info().
			Str("product", p.Name).
			Str("price", price.StringFixed(2)).
			Msg("price unchanged")

	default:
		result.Outcome = OutcomeEstablished
		t.logger.Info().
			Str("product", p.Name).
			Str("price", price.StringFixed(2)).
			Msg("price established")
	}

	return result
}

// observe fetches the page and extracts a price. Network and extraction
// failures are equivalent here: no price obtained.
func (t *Tracker) observe(ctx context.Context, url string) (decimal.Decimal, bool) {
	content, err := t.fetcher.Fetch(ctx, url)
	if err != nil {
		t.logger.Warn().Err(err).Str("url", url).Msg("fetch failed")
		return decimal.Decimal{}, false
	}
	return t.extractor.Extract(content, url)
}

// dispatchAlertLocked fires one alert and counts the dispatch attempt.
// Alerts are deliberately not deduplicated: a product sitting at or below
// target alerts on every cycle.
func (t *Tracker) dispatchAlertLocked(ctx context.Context, p *storage.Product) {
	if t.notifier != nil && p.CurrentPrice != nil {
		alert := alerting.Alert{
			Name:         p.Name,
			URL:          p.URL,
			CurrentPrice: *p.CurrentPrice,
			TargetPrice:  p.TargetPrice,
			Savings:      p.TargetPrice.Sub(*p.CurrentPrice),
			At:           t.now(),
		}
		if err := t.notifier.Notify(ctx, alert); err != nil {
			t.logger.Error().Err(err).Str("product", p.Name).Msg("failed to dispatch alert")
		}
	}
	p.AlertsSent++
}

// persistLocked saves the full collection. Save failures are logged and
// non-fatal: the in-memory state stays authoritative until the next save.
func (t *Tracker) persistLocked(ctx context.Context) {
	if t.store == nil {
		return
	}
	if err := t.store.Save(ctx, t.products); err != nil {
		t.logger.Error().Err(err).Msg("failed to save tracked products")
	}
}

// normalizeURL prepends a scheme when absent.
func normalizeURL(raw string) string {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "https://" + raw
	}
	return raw
}
