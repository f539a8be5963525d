package pricing

import (
	"net/url"
	"strings"

	"github.com/lalithlochan/solebox/internal/apperr"
)

// Rule describes how to read a price off one retailer's product page.
// Selectors are tried in order; the first that yields a parseable price
// wins. Pages that match no selector fall back to structured data.
type Rule struct {
	Retailer string
	Hosts    []string

	SalePrice   []string
	RetailPrice []string

	// SoldOut and InStock mark stock state when present on the page.
	SoldOut []string
	InStock []string
}

var rules = []Rule{
	{
		Retailer:    "Nike",
		Hosts:       []string{"nike.com"},
		SalePrice:   []string{`[data-testid="currentPrice-container"]`, `[data-test="product-price-reduced"]`, `[data-test="product-price"]`},
		RetailPrice: []string{`[data-testid="initialPrice-container"]`, `[data-test="product-price"].is--striked-out`},
		SoldOut:     []string{`[data-test="product-sold-out"]`, `.sold-out-message`},
		InStock:     []string{`[data-test="add-to-cart"]`, `button[aria-label="Add to Bag"]`},
	},
	{
		Retailer:    "adidas",
		Hosts:       []string{"adidas.com"},
		SalePrice:   []string{`[data-testid="main-price"] .gl-price-item--sale`, `[data-testid="main-price"] .gl-price-item`, `.gl-price-item`},
		RetailPrice: []string{`[data-testid="main-price"] .gl-price-item--crossed`},
		SoldOut:     []string{`[data-auto-id="sold-out-message"]`},
		InStock:     []string{`[data-auto-id="add-to-bag"]`},
	},
	{
		Retailer:  "StockX",
		Hosts:     []string{"stockx.com"},
		SalePrice: []string{`[data-testid="trade-box-buy-amount"]`, `.product-price`},
		InStock:   []string{`[data-testid="trade-box-buy-button"]`},
	},
	{
		Retailer:  "GOAT",
		Hosts:     []string{"goat.com"},
		SalePrice: []string{`[data-qa="buy_bar_price"]`, `[data-qa="product_price"]`},
		SoldOut:   []string{`[data-qa="buy_bar_sold_out"]`},
		InStock:   []string{`[data-qa="buy_bar_button"]`},
	},
	{
		Retailer:    "Foot Locker",
		Hosts:       []string{"footlocker.com", "footlocker.co.uk", "footlocker.eu"},
		SalePrice:   []string{`.ProductPrice-final`, `.ProductPrice .ProductPrice-final`, `.ProductPrice`},
		RetailPrice: []string{`.ProductPrice-original`},
		SoldOut:     []string{`.ProductDetails-form__soldOut`},
		InStock:     []string{`button.ProductDetails-form__action`},
	},
	{
		Retailer:    "END.",
		Hosts:       []string{"endclothing.com"},
		SalePrice:   []string{`[data-test-id="ProductPrice__SalePrice"]`, `[data-test-id="ProductPrice"]`},
		RetailPrice: []string{`[data-test-id="ProductPrice__OriginalPrice"]`},
		SoldOut:     []string{`[data-test-id="SoldOut"]`},
		InStock:     []string{`[data-test-id="Product__AddToBagButton"]`},
	},
	{
		Retailer:    "size?",
		Hosts:       []string{"size.co.uk"},
		SalePrice:   []string{`.product-price .now`, `.product-price .price`, `[itemprop="price"]`},
		RetailPrice: []string{`.product-price .was`},
		SoldOut:     []string{`.product-out-of-stock`},
		InStock:     []string{`#addToBasket`},
	},
}

// Key is the canonical host used for metrics labels and circuit breakers.
func (r *Rule) Key() string {
	return r.Hosts[0]
}

// Rules returns the retailer catalog.
func Rules() []Rule {
	return rules
}

// Resolve finds the rule for a product URL. The host matches a rule when
// it equals one of the rule's hosts or is a subdomain of it.
func Resolve(productURL string) (*Rule, string, error) {
	u, err := url.Parse(strings.TrimSpace(productURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, "", &apperr.UnsupportedSourceError{
			Category: apperr.CategoryInvalidURL,
			Host:     productURL,
			Reason:   "product URL must be an absolute http(s) URL",
		}
	}

	host := strings.ToLower(u.Hostname())
	for i := range rules {
		for _, h := range rules[i].Hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return &rules[i], host, nil
			}
		}
	}

	return nil, host, &apperr.UnsupportedSourceError{
		Category: apperr.CategoryUnsupportedRetailer,
		Host:     host,
	}
}
