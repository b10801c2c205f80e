package extract

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PriceExtractor pulls a product price out of fetched page content.
// The boolean result reports whether a positive price was found; absence of a
// price is not an error.
type PriceExtractor interface {
	Extract(content []byte, pageURL string) (decimal.Decimal, bool)
}

// siteSelectors maps a site category to the ordered list of CSS selectors
// tried for it. Evaluation is first-match-wins: selectors in list order,
// matched elements in document order. Extend the cascade here, not with
// branching logic in Extract.
var siteSelectors = map[string][]string{
	"amazon": {
		".a-price-whole",
		".a-price.a-text-price.a-size-medium.apexPriceToPay .a-offscreen",
		".a-price-range .a-offscreen",
		"span.a-price.a-text-price.a-size-medium.apexPriceToPay .a-offscreen",
		".a-price .a-offscreen",
		"#corePrice_feature_div .a-price .a-offscreen",
	},
	"ebay": {
		".u-flL.condenseFont",
		".notranslate",
		".p-price .notranslate",
		`[data-testid="x-price-primary"] .notranslate`,
	},
	"daraz": {
		".pdp-product-price .pdp-price",
		".price-box .price",
		".current-price",
	},
}

// genericSelectors is the fallback cascade for unrecognised sites and for
// known sites whose specific selectors all missed.
var genericSelectors = []string{
	`[class*="price"]`,
	`[id*="price"]`,
	".price",
	".cost",
	".amount",
	"[data-price]",
}

var (
	numberPattern  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	symbolStripper = strings.NewReplacer(",", "", "$", "", "€", "", "£", "")
)

// Extractor implements the selector cascade over goquery documents.
type Extractor struct {
	logger zerolog.Logger
}

// New constructs an Extractor.
func New(logger zerolog.Logger) *Extractor {
	return &Extractor{logger: logger.With().Str("component", "extractor").Logger()}
}

// Extract parses content and scans the selector cascade for the first
// positive price. Site-specific selectors are tried before the generic
// fallback; the first plausible match wins over any exhaustive search.
func (e *Extractor) Extract(content []byte, pageURL string) (decimal.Decimal, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		e.logger.Debug().Err(err).Str("url", pageURL).Msg("content not parseable")
		return decimal.Decimal{}, false
	}

	site := classifySite(pageURL)

	if selectors, ok := siteSelectors[site]; ok {
		if price, ok := scanSelectors(doc, selectors, false); ok {
			e.logger.Debug().Str("site", site).Str("price", price.String()).Msg("site selector matched")
			return price, true
		}
	}

	if price, ok := scanSelectors(doc, genericSelectors, true); ok {
		e.logger.Debug().Str("site", site).Str("price", price.String()).Msg("generic selector matched")
		return price, true
	}

	return decimal.Decimal{}, false
}

// classifySite buckets a URL into a known site category by hostname
// substring, defaulting to "generic".
func classifySite(pageURL string) string {
	lowered := strings.ToLower(pageURL)
	switch {
	case strings.Contains(lowered, "amazon"):
		return "amazon"
	case strings.Contains(lowered, "ebay"):
		return "ebay"
	case strings.Contains(lowered, "daraz"):
		return "daraz"
	default:
		return "generic"
	}
}

func scanSelectors(doc *goquery.Document, selectors []string, tryAttr bool) (decimal.Decimal, bool) {
	for _, selector := range selectors {
		var (
			found decimal.Decimal
			ok    bool
		)
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if tryAttr {
				if attr, exists := s.Attr("data-price"); exists {
					if price, valid := parsePrice(attr); valid {
						found, ok = price, true
						return false
					}
				}
			}
			if price, valid := parsePrice(s.Text()); valid {
				found, ok = price, true
				return false
			}
			return true
		})
		if ok {
			return found, true
		}
	}
	return decimal.Decimal{}, false
}

// parsePrice strips currency symbols and thousands separators, takes the
// leading numeric token and parses it. Only positive values are accepted.
func parsePrice(text string) (decimal.Decimal, bool) {
	cleaned := symbolStripper.Replace(strings.TrimSpace(text))
	token := numberPattern.FindString(cleaned)
	if token == "" {
		return decimal.Decimal{}, false
	}
	price, err := decimal.NewFromString(token)
	if err != nil || !price.IsPositive() {
		return decimal.Decimal{}, false
	}
	return price, true
}

var _ PriceExtractor = (*Extractor)(nil)
