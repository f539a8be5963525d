package pricing

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lalithlochan/solebox/internal/apperr"
)

// Extraction is what a product page yielded.
type Extraction struct {
	SalePrice   float64
	RetailPrice *float64
	InStock     *bool
	StoreName   string
}

// Extract reads price and stock data from a product page. Retailer
// selectors are tried first, then schema.org JSON-LD offers, then Open
// Graph price meta tags. A page with no recognizable price yields an
// UnsupportedSourceError with the layout_changed category.
func Extract(doc *goquery.Document, rule *Rule) (*Extraction, error) {
	ld, hasLD := jsonLDOffer(doc)

	sale, ok := firstPrice(doc, rule.SalePrice)
	if !ok && hasLD {
		sale, ok = ld.price, true
	}
	if !ok {
		sale, ok = metaPrice(doc)
	}
	if !ok {
		return nil, &apperr.UnsupportedSourceError{
			Category: apperr.CategoryLayoutChanged,
			Host:     rule.Key(),
			Reason:   "no price found on page",
		}
	}

	ext := &Extraction{
		SalePrice: sale,
		StoreName: rule.Retailer,
	}

	// A struck-through price below the sale price is a selector mismatch.
	if retail, ok := firstPrice(doc, rule.RetailPrice); ok && retail >= sale {
		ext.RetailPrice = &retail
	}

	switch {
	case matchesAny(doc, rule.SoldOut):
		ext.InStock = boolPtr(false)
	case matchesAny(doc, rule.InStock):
		ext.InStock = boolPtr(true)
	case hasLD && ld.availability != "":
		ext.InStock = availability(ld.availability)
	default:
		ext.InStock = availability(metaContent(doc, `meta[property="product:availability"]`, `meta[property="og:availability"]`))
	}

	return ext, nil
}

func firstPrice(doc *goquery.Document, selectors []string) (float64, bool) {
	for _, sel := range selectors {
		var (
			price float64
			found bool
		)
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if text == "" {
				text, _ = s.Attr("content")
			}
			price, found = ParsePrice(text)
			return !found
		})
		if found {
			return price, true
		}
	}
	return 0, false
}

func matchesAny(doc *goquery.Document, selectors []string) bool {
	for _, sel := range selectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func metaPrice(doc *goquery.Document) (float64, bool) {
	v := metaContent(doc,
		`meta[property="product:price:amount"]`,
		`meta[property="og:price:amount"]`,
		`meta[itemprop="price"]`,
	)
	if v == "" {
		return 0, false
	}
	return ParsePrice(v)
}

// availability maps schema.org and Open Graph stock values. Unknown values
// leave stock unknown.
func availability(v string) *bool {
	v = strings.ToLower(v)
	v = v[strings.LastIndex(v, "/")+1:]
	v = strings.ReplaceAll(v, " ", "")

	switch v {
	case "instock", "limitedavailability", "onlineonly", "instoreonly":
		return boolPtr(true)
	case "outofstock", "soldout", "discontinued", "oos":
		return boolPtr(false)
	}
	return nil
}

type ldOffer struct {
	price        float64
	availability string
}

// jsonLDOffer returns the first offer found in the page's JSON-LD blocks.
func jsonLDOffer(doc *goquery.Document) (ldOffer, bool) {
	var (
		offer ldOffer
		found bool
	)
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return true
		}
		offer, found = findOffer(v)
		return !found
	})
	return offer, found
}

func findOffer(v any) (ldOffer, bool) {
	switch t := v.(type) {
	case []any:
		for _, el := range t {
			if o, ok := findOffer(el); ok {
				return o, true
			}
		}
	case map[string]any:
		if offers, ok := t["offers"]; ok {
			if o, ok := offerFrom(offers); ok {
				return o, true
			}
		}
		if graph, ok := t["@graph"]; ok {
			return findOffer(graph)
		}
	}
	return ldOffer{}, false
}

func offerFrom(v any) (ldOffer, bool) {
	switch t := v.(type) {
	case []any:
		for _, el := range t {
			if o, ok := offerFrom(el); ok {
				return o, true
			}
		}
	case map[string]any:
		for _, key := range []string{"price", "lowPrice"} {
			if p, ok := ldNumber(t[key]); ok {
				o := ldOffer{price: p}
				o.availability, _ = t["availability"].(string)
				return o, true
			}
		}
		// AggregateOffer may nest the concrete offers.
		if nested, ok := t["offers"]; ok {
			return offerFrom(nested)
		}
	}
	return ldOffer{}, false
}

func ldNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, n > 0
	case string:
		return ParsePrice(n)
	}
	return 0, false
}

func boolPtr(b bool) *bool { return &b }
