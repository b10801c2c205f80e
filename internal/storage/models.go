package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultHistoryLimit caps the per-product price history.
const DefaultHistoryLimit = 50

func init() {
	// Persisted documents carry prices as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// PricePoint is one observed price.
type PricePoint struct {
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// Product is the unit tracked. CurrentPrice stays nil until a fetch ever
// succeeds and is retained across failed checks.
type Product struct {
	Name         string           `json:"name"`
	URL          string           `json:"url"`
	TargetPrice  decimal.Decimal  `json:"target_price"`
	CurrentPrice *decimal.Decimal `json:"current_price"`
	LastChecked  time.Time        `json:"last_checked"`
	AlertsSent   int              `json:"alerts_sent"`
	PriceHistory []PricePoint     `json:"price_history"`
}

// ObservePrice records a successful observation: it appends to the history,
// evicting the oldest entries beyond limit, and updates CurrentPrice so the
// latest history entry and CurrentPrice always agree.
func (p *Product) ObservePrice(price decimal.Decimal, at time.Time, limit int) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	p.PriceHistory = append(p.PriceHistory, PricePoint{Price: price, Timestamp: at})
	if excess := len(p.PriceHistory) - limit; excess > 0 {
		p.PriceHistory = append(p.PriceHistory[:0], p.PriceHistory[excess:]...)
	}

	observed := price
	p.CurrentPrice = &observed
}

// TargetReached reports whether the current price satisfies the target.
func (p *Product) TargetReached() bool {
	return p.CurrentPrice != nil && p.CurrentPrice.LessThanOrEqual(p.TargetPrice)
}

// applyDefaults fills optional fields missing from older documents.
func (p *Product) applyDefaults() {
	if p.PriceHistory == nil {
		p.PriceHistory = []PricePoint{}
	}
}
