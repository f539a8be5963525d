package achievement

import "github.com/lalithlochan/solebox/internal/db"

// Metric selects which aggregate a rule is evaluated against.
type Metric string

const (
	MetricOwnedItems    Metric = "owned_items"
	MetricWishlistItems Metric = "wishlist_items"
	MetricWearLogs      Metric = "wear_logs"
	MetricTrackedItems  Metric = "tracked_items"
)

// Rule unlocks Key once the user's Metric reaches Threshold.
type Rule struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Metric      Metric `json:"metric"`
	Threshold   int    `json:"threshold"`
}

var catalog = []Rule{
	{"first_item", "First Pair", "Add your first item to the wardrobe", MetricOwnedItems, 1},
	{"wardrobe_10", "Collector", "Own 10 items", MetricOwnedItems, 10},
	{"wardrobe_15", "Rotation", "Own 15 items", MetricOwnedItems, 15},
	{"wardrobe_25", "Sneakerhead", "Own 25 items", MetricOwnedItems, 25},
	{"wardrobe_50", "Vault", "Own 50 items", MetricOwnedItems, 50},
	{"first_wear", "Laced Up", "Log your first wear", MetricWearLogs, 1},
	{"wears_50", "Daily Driver", "Log 50 wears", MetricWearLogs, 50},
	{"wears_100", "Beaters", "Log 100 wears", MetricWearLogs, 100},
	{"wishlist_5", "Window Shopper", "Add 5 items to your wishlist", MetricWishlistItems, 5},
	{"wishlist_20", "Dream List", "Add 20 items to your wishlist", MetricWishlistItems, 20},
	{"price_watcher", "Price Watcher", "Track prices on 5 items", MetricTrackedItems, 5},
}

// Catalog returns every rule in evaluation order.
func Catalog() []Rule {
	out := make([]Rule, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a rule by key.
func Lookup(key string) (Rule, bool) {
	for _, r := range catalog {
		if r.Key == key {
			return r, true
		}
	}
	return Rule{}, false
}

// Satisfied reports whether stats meet the rule's threshold.
func (r Rule) Satisfied(stats *db.UserStats) bool {
	var v int
	switch r.Metric {
	case MetricOwnedItems:
		v = stats.OwnedItems
	case MetricWishlistItems:
		v = stats.WishlistItems
	case MetricWearLogs:
		v = stats.WearLogs
	case MetricTrackedItems:
		v = stats.TrackedItems
	default:
		return false
	}
	return v >= r.Threshold
}
