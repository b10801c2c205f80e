package track

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"price-tracker/internal/extract"
	"price-tracker/internal/storage"
)

func TestStartRejectsEmptyStore(t *testing.T) {
	tracker := newTestTracker(&scriptedFetcher{}, &capturingNotifier{}, &memStore{})

	if err := tracker.Start(time.Minute); !errors.Is(err, ErrEmptyStore) {
		t.Fatalf("expected ErrEmptyStore, got %v", err)
	}
	if tracker.Running() {
		t.Fatal("tracker must stay stopped")
	}
}

func TestStartStopStateMachine(t *testing.T) {
	fetcher := &scriptedFetcher{}
	fetcher.serve("10.00")
	store := &memStore{products: []storage.Product{
		{Name: "widget", URL: "https://shop.example.com/widget", TargetPrice: target(1)},
	}}
	tracker := newTestTracker(fetcher, &capturingNotifier{}, store)

	if err := tracker.LoadProducts(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := tracker.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("stop while stopped should fail, got %v", err)
	}

	if err := tracker.Start(time.Hour); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !tracker.Running() {
		t.Fatal("tracker should be running")
	}

	if err := tracker.Start(time.Hour); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("double start should fail, got %v", err)
	}

	if err := tracker.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if tracker.Running() {
		t.Fatal("tracker should be stopped")
	}

	done := make(chan struct{})
	go func() {
		tracker.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("loop goroutine did not exit after Stop")
	}
}

// slowFetcher signals when its first fetch begins, then takes delay to
// answer each request.
type slowFetcher struct {
	content []byte
	delay   time.Duration
	started chan struct{}
	once    sync.Once
}

func (f *slowFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.once.Do(func() { close(f.started) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(f.delay):
	}
	return f.content, nil
}

func TestStopLetsInFlightBatchComplete(t *testing.T) {
	fetcher := &slowFetcher{
		content: []byte(`<html><body><div class="price">$10.00</div></body></html>`),
		delay:   150 * time.Millisecond,
		started: make(chan struct{}),
	}
	store := &memStore{products: []storage.Product{
		{Name: "a", URL: "https://a", TargetPrice: target(1)},
		{Name: "b", URL: "https://b", TargetPrice: target(1)},
	}}
	tracker := New(fetcher, extract.New(zerolog.Nop()), store, &capturingNotifier{}, Options{}, zerolog.Nop())

	if err := tracker.LoadProducts(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := tracker.Start(time.Hour); err != nil {
		t.Fatal(err)
	}

	// stop while the first product of the batch is still being fetched
	<-fetcher.started
	if err := tracker.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if tracker.Running() {
		t.Fatal("tracker should be stopped")
	}

	for _, p := range tracker.Products() {
		if p.CurrentPrice == nil {
			t.Fatalf("in-flight batch must complete: %s has no price", p.Name)
		}
	}
	if store.saves != 1 {
		t.Fatalf("interrupted batch must still persist, saves = %d", store.saves)
	}

	// Stop returned only after the loop goroutine exited, so a restart
	// never overlaps the previous loop
	if err := tracker.Start(time.Hour); err != nil {
		t.Fatalf("restart after stop failed: %v", err)
	}
	if err := tracker.Stop(); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
}

func TestLoopRunsCheckCycles(t *testing.T) {
	fetcher := &scriptedFetcher{}
	fetcher.serve("10.00")
	store := &memStore{products: []storage.Product{
		{Name: "widget", URL: "https://shop.example.com/widget", TargetPrice: target(1)},
	}}
	tracker := newTestTracker(fetcher, &capturingNotifier{}, store)

	if err := tracker.LoadProducts(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := tracker.Start(time.Hour); err != nil {
		t.Fatal(err)
	}
	defer func() {
		tracker.Stop()
		tracker.Wait()
	}()

	// the first cycle runs immediately on start
	deadline := time.After(3 * time.Second)
	for {
		p := tracker.Products()[0]
		if p.CurrentPrice != nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("loop never ran a check cycle")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
