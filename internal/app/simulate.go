package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"price-tracker/internal/extract"
	"price-tracker/internal/fetch"
	"price-tracker/internal/track"
)

// SimulateAlert drives one full check cycle against a synthetic product page
// carrying the given price, exercising the extractor cascade and the
// configured alert channel without touching the network or the store.
func (a *App) SimulateAlert(ctx context.Context, price, target decimal.Decimal) error {
	if !price.IsPositive() || !target.IsPositive() {
		return fmt.Errorf("price and target must be positive")
	}

	page := fmt.Sprintf(
		`<html><body><div class="product"><span class="price">$%s</span></div></body></html>`,
		price.StringFixed(2),
	)

	tracker := track.New(
		&staticFetcher{content: []byte(page)},
		extract.New(a.Logger),
		nil,
		a.newNotifier(),
		track.Options{HistoryLimit: a.Config.Tracker.HistoryLimit},
		a.Logger,
	)

	_, err := tracker.Add(ctx, "simulated product", "https://example.com/product", target)
	return err
}

type staticFetcher struct {
	content []byte
}

func (f *staticFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.content, nil
}

var _ fetch.PageFetcher = (*staticFetcher)(nil)
