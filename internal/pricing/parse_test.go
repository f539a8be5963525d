package pricing

import "testing"

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"$129.99", 129.99, true},
		{"£1,049", 1049, true},
		{"£1,049.50", 1049.50, true},
		{"€1.299,00", 1299, true},
		{"€89,95", 89.95, true},
		{"1 299,95 kr", 1299.95, true},
		{"1 299,95 €", 1299.95, true},
		{"US$ 220", 220, true},
		{"Was $180.00 Now $135.00", 180, true},
		{"1.299", 1299, true},
		{"12.5", 12.5, true},
		{"CHF 1'299.00", 1299, true},
		{"120.", 120, true},
		{"Sold out", 0, false},
		{"", 0, false},
		{"$0.00", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParsePrice(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParsePrice(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParsePrice(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
