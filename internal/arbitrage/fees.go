package arbitrage

import "github.com/shopspring/decimal"

// The reference marketplace deducts a stepped absolute fee from the gross
// sale price. The interval table grows by alternating +0.12/+0.11 steps and
// the fee table by alternating +0.01/+0.02 steps until the price is covered.
//
// All arithmetic is decimal so identical inputs always round identically
// (half away from zero, 2 decimals).

var (
	baseIntervals = decimals("0.02", "0.21", "0.32", "0.43")
	baseFees      = decimals("0.02", "0.03", "0.04", "0.05", "0.07", "0.09")

	stepWide   = decimal.RequireFromString("0.12")
	stepNarrow = decimal.RequireFromString("0.11")
	feeSmall   = decimal.RequireFromString("0.01")
	feeLarge   = decimal.RequireFromString("0.02")
)

func decimals(vals ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

// NetPrice returns what the seller receives for a gross reference-market
// price, never negative.
func NetPrice(gross float64) float64 {
	g := decimal.NewFromFloat(gross)
	if g.Sign() <= 0 {
		return 0
	}

	intervals := append([]decimal.Decimal(nil), baseIntervals...)
	fees := append([]decimal.Decimal(nil), baseFees...)

	for g.GreaterThan(intervals[len(intervals)-1]) {
		last := intervals[len(intervals)-1]
		if len(intervals)%2 == 0 {
			intervals = append(intervals, last.Add(stepWide).Round(2))
		} else {
			intervals = append(intervals, last.Add(stepNarrow).Round(2))
		}
	}

	for len(fees) < len(intervals) {
		last := fees[len(fees)-1]
		if len(fees)%2 == 0 {
			fees = append(fees, last.Add(feeSmall).Round(2))
		} else {
			fees = append(fees, last.Add(feeLarge).Round(2))
		}
	}

	idx := len(intervals) - 1
	for i, iv := range intervals {
		if g.LessThanOrEqual(iv) {
			idx = i
			break
		}
	}

	net := g.Sub(fees[idx]).Round(2)
	if net.Sign() < 0 {
		return 0
	}
	f, _ := net.Float64()
	return f
}

// Profit returns the absolute and relative profit of buying at buy and
// selling at gross on the reference marketplace after fees.
func Profit(gross, buy float64) (absolute, ratio float64) {
	net := NetPrice(gross)
	abs := decimal.NewFromFloat(net).Sub(decimal.NewFromFloat(buy))
	absolute, _ = abs.Round(4).Float64()
	if buy > 0 {
		r := abs.Div(decimal.NewFromFloat(buy))
		ratio, _ = r.Round(6).Float64()
	}
	return absolute, ratio
}
