package extract

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func testExtractor() *Extractor {
	return New(zerolog.Nop())
}

func TestExtractAmazonSelector(t *testing.T) {
	content := []byte(`<html><body>
		<span class="a-price-whole">1,299</span>
	</body></html>`)

	price, ok := testExtractor().Extract(content, "https://www.amazon.com/dp/B0TEST")
	if !ok {
		t.Fatal("expected price from amazon selector")
	}
	if !price.Equal(decimal.NewFromInt(1299)) {
		t.Fatalf("expected 1299, got %s", price.String())
	}
}

func TestExtractSiteSelectorsBeforeGeneric(t *testing.T) {
	content := []byte(`<html><body>
		<div class="price">$20.00</div>
		<span class="a-price-whole">10</span>
	</body></html>`)

	price, ok := testExtractor().Extract(content, "https://amazon.co.uk/item")
	if !ok {
		t.Fatal("expected a price")
	}
	if !price.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("site-specific selector should win, got %s", price.String())
	}
}

func TestExtractFirstElementInDocumentOrderWins(t *testing.T) {
	content := []byte(`<html><body>
		<div class="price">$15.50</div>
		<div class="price">$9.99</div>
	</body></html>`)

	price, ok := testExtractor().Extract(content, "https://shop.example.com/item")
	if !ok {
		t.Fatal("expected a price")
	}
	if !price.Equal(decimal.NewFromFloat(15.5)) {
		t.Fatalf("first element should win, got %s", price.String())
	}
}

func TestExtractGenericClassFragment(t *testing.T) {
	content := []byte(`<html><body>
		<div class="sale-price-box">$1,234.56</div>
	</body></html>`)

	price, ok := testExtractor().Extract(content, "https://unknown-store.example/item")
	if !ok {
		t.Fatal("expected price from generic class fragment selector")
	}
	if !price.Equal(decimal.NewFromFloat(1234.56)) {
		t.Fatalf("expected 1234.56, got %s", price.String())
	}
}

func TestExtractDataPriceAttributePreferred(t *testing.T) {
	content := []byte(`<html><body>
		<span data-price="49.50">price on request</span>
	</body></html>`)

	price, ok := testExtractor().Extract(content, "https://unknown-store.example/item")
	if !ok {
		t.Fatal("expected price from data-price attribute")
	}
	if !price.Equal(decimal.NewFromFloat(49.5)) {
		t.Fatalf("expected 49.5, got %s", price.String())
	}
}

func TestExtractCurrencyJunkReturnsNothing(t *testing.T) {
	content := []byte(`<html><body>
		<div class="price">Call for price</div>
		<div class="cost">$ TBD</div>
	</body></html>`)

	if _, ok := testExtractor().Extract(content, "https://unknown-store.example/item"); ok {
		t.Fatal("expected no price from non-numeric content")
	}
}

func TestExtractRejectsZero(t *testing.T) {
	content := []byte(`<html><body>
		<div class="price">$0.00</div>
	</body></html>`)

	if _, ok := testExtractor().Extract(content, "https://unknown-store.example/item"); ok {
		t.Fatal("zero is not a price")
	}
}

func TestExtractNoSelectorsMatch(t *testing.T) {
	content := []byte(`<html><body><p>nothing to see here</p></body></html>`)

	if _, ok := testExtractor().Extract(content, "https://unknown-store.example/item"); ok {
		t.Fatal("expected no price")
	}
}

func TestClassifySite(t *testing.T) {
	cases := map[string]string{
		"https://www.amazon.com/dp/B0":   "amazon",
		"https://www.EBAY.com/itm/1":     "ebay",
		"https://daraz.pk/products/x":    "daraz",
		"https://some-random-shop.de/p1": "generic",
	}
	for url, want := range cases {
		if got := classifySite(url); got != want {
			t.Errorf("classifySite(%q) = %q, want %q", url, got, want)
		}
	}
}
