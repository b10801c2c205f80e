package storage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestObservePriceCapsHistory(t *testing.T) {
	p := Product{Name: "widget", TargetPrice: decimal.NewFromInt(100)}

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	appends := DefaultHistoryLimit + 17
	for i := 0; i < appends; i++ {
		p.ObservePrice(decimal.NewFromInt(int64(i+1)), base.Add(time.Duration(i)*time.Minute), DefaultHistoryLimit)
	}

	if len(p.PriceHistory) != DefaultHistoryLimit {
		t.Fatalf("history length = %d, want %d", len(p.PriceHistory), DefaultHistoryLimit)
	}

	// the cap evicts oldest-first, so the history is exactly the most recent
	// appends in time order
	for i, point := range p.PriceHistory {
		wantPrice := decimal.NewFromInt(int64(appends - DefaultHistoryLimit + i + 1))
		if !point.Price.Equal(wantPrice) {
			t.Fatalf("history[%d].Price = %s, want %s", i, point.Price.String(), wantPrice.String())
		}
		if i > 0 && point.Timestamp.Before(p.PriceHistory[i-1].Timestamp) {
			t.Fatalf("history out of time order at %d", i)
		}
	}
}

func TestObservePriceUpdatesCurrent(t *testing.T) {
	p := Product{Name: "widget", TargetPrice: decimal.NewFromInt(50)}

	p.ObservePrice(decimal.NewFromInt(42), time.Now(), DefaultHistoryLimit)

	if p.CurrentPrice == nil {
		t.Fatal("CurrentPrice should be set")
	}
	last := p.PriceHistory[len(p.PriceHistory)-1]
	if !p.CurrentPrice.Equal(last.Price) {
		t.Fatalf("CurrentPrice %s disagrees with last history entry %s", p.CurrentPrice.String(), last.Price.String())
	}
}

func TestTargetReached(t *testing.T) {
	p := Product{TargetPrice: decimal.NewFromInt(90)}
	if p.TargetReached() {
		t.Fatal("no current price means no target")
	}

	p.ObservePrice(decimal.NewFromInt(90), time.Now(), DefaultHistoryLimit)
	if !p.TargetReached() {
		t.Fatal("price equal to target reaches the target")
	}

	p.ObservePrice(decimal.NewFromInt(91), time.Now(), DefaultHistoryLimit)
	if p.TargetReached() {
		t.Fatal("price above target does not reach it")
	}
}
