package adapters

import (
	"strconv"
	"strings"

	"github.com/jmcruz/skins-arb/pkg/types"
)

const (
	minNameLen = 2
	maxNameLen = 300
)

// Normalize applies the shared rules to a raw listing: trim, replace
// embedded slashes, and validate name and price. Normalization is
// idempotent; an already-normalized listing passes through unchanged.
func Normalize(l types.Listing) (types.Listing, error) {
	l.Name = strings.TrimSpace(strings.ReplaceAll(l.Name, "/", "-"))

	if len(l.Name) < minNameLen || len(l.Name) > maxNameLen {
		return l, &types.ValidationError{
			Source: l.Source,
			Field:  "name",
			Reason: "length outside 2..300",
		}
	}
	if l.Price <= 0 {
		return l, &types.ValidationError{
			Source: l.Source,
			Field:  "price",
			Reason: "not positive",
		}
	}
	if l.Quantity < 0 {
		return l, &types.ValidationError{
			Source: l.Source,
			Field:  "quantity",
			Reason: "negative",
		}
	}

	return l, nil
}

// EncodeName builds the URL fragment used in marketplace deep links.
func EncodeName(name string) string {
	return strings.ReplaceAll(strings.ReplaceAll(name, " ", "%20"), "|", "%7C")
}

// parsePrice accepts the numeric and string price encodings seen across
// marketplace APIs.
func parsePrice(v interface{}) (float64, bool) {
	switch p := v.(type) {
	case float64:
		return p, p > 0
	case int:
		return float64(p), p > 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		return f, err == nil && f > 0
	default:
		return 0, false
	}
}

// DedupCheapest collapses duplicate names, keeping the cheaper listing.
// Output preserves first-seen order.
func DedupCheapest(items []types.Listing) []types.Listing {
	index := make(map[string]int, len(items))
	out := make([]types.Listing, 0, len(items))

	for _, item := range items {
		i, seen := index[item.Name]
		if !seen {
			index[item.Name] = len(out)
			out = append(out, item)
			continue
		}
		if item.Price < out[i].Price {
			out[i] = item
		}
	}
	return out
}
