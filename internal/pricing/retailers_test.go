package pricing

import (
	"errors"
	"testing"

	"github.com/lalithlochan/solebox/internal/apperr"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		url          string
		wantRetailer string
		wantHost     string
		wantCategory string
	}{
		{"https://www.nike.com/t/air-max-90-mens-shoes-6n3vKB/CN8490-002", "Nike", "www.nike.com", ""},
		{"https://nike.com/t/whatever", "Nike", "nike.com", ""},
		{"https://www.adidas.com/us/samba-og-shoes/B75806.html", "adidas", "www.adidas.com", ""},
		{"https://stockx.com/nike-dunk-low-retro-white-black-2021", "StockX", "stockx.com", ""},
		{"https://www.goat.com/sneakers/dunk-low-black-white-dd1391-100", "GOAT", "www.goat.com", ""},
		{"https://www.footlocker.co.uk/en/product/x/123.html", "Foot Locker", "www.footlocker.co.uk", ""},
		{"https://www.endclothing.com/gb/new-balance-990v6.html", "END.", "www.endclothing.com", ""},
		{"https://www.size.co.uk/product/white-nike-dunk/19530000/", "size?", "www.size.co.uk", ""},
		{"HTTPS://WWW.NIKE.COM/t/x", "Nike", "www.nike.com", ""},
		{"https://shop.example.com/sneaker", "", "shop.example.com", apperr.CategoryUnsupportedRetailer},
		{"https://notnike.com/t/x", "", "notnike.com", apperr.CategoryUnsupportedRetailer},
		{"https://nike.com.evil.io/t/x", "", "nike.com.evil.io", apperr.CategoryUnsupportedRetailer},
		{"ftp://nike.com/file", "", "", apperr.CategoryInvalidURL},
		{"not a url", "", "", apperr.CategoryInvalidURL},
		{"", "", "", apperr.CategoryInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			rule, host, err := Resolve(tt.url)
			if tt.wantCategory != "" {
				if !errors.Is(err, apperr.ErrUnsupportedSource) {
					t.Fatalf("expected unsupported source error, got %v", err)
				}
				if got := apperr.Category(err); got != tt.wantCategory {
					t.Errorf("category = %q, want %q", got, tt.wantCategory)
				}
				if rule != nil {
					t.Error("expected no rule")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rule.Retailer != tt.wantRetailer {
				t.Errorf("retailer = %q, want %q", rule.Retailer, tt.wantRetailer)
			}
			if host != tt.wantHost {
				t.Errorf("host = %q, want %q", host, tt.wantHost)
			}
		})
	}
}

func TestRules_AllHaveSelectors(t *testing.T) {
	for _, r := range Rules() {
		if r.Retailer == "" || len(r.Hosts) == 0 || len(r.SalePrice) == 0 {
			t.Errorf("incomplete rule: %+v", r)
		}
	}
}
