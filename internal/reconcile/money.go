package reconcile

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Money coerces an API value to a decimal amount. Missing or non-numeric
// values are zero.
func Money(v any) decimal.Decimal {
	switch t := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return t
	case json.Number:
		return parseDecimal(t.String())
	case string:
		return parseDecimal(t)
	case float64:
		return decimal.NewFromFloat(t)
	case float32:
		return decimal.NewFromFloat32(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case int32:
		return decimal.NewFromInt32(t)
	default:
		return decimal.Zero
	}
}

// Hours coerces an API value to a float. Missing or non-numeric values are
// zero.
func Hours(v any) float64 {
	return Money(v).InexactFloat64()
}

func parseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// TrustBalance sums the numeric balance of every account balance entry.
func TrustBalance(accountBalances []any) decimal.Decimal {
	total := decimal.Zero
	for _, b := range accountBalances {
		entry, ok := b.(map[string]any)
		if !ok {
			continue
		}
		total = total.Add(Money(entry["balance"]))
	}
	return total
}
