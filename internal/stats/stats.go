// Package stats filters transaction records and derives the chart series and
// the summary figures shown on the dashboard.
package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"housetrend/internal/core"
)

// Placeholder is reported for every figure of an empty selection.
const Placeholder = "-"

// Filter selects records by community and house type; empty matches all.
type Filter struct {
	Community string
	HouseType string
}

// Key identifies the filter in caches.
func (f Filter) Key() string {
	return f.Community + "\x00" + f.HouseType
}

// Match reports whether r satisfies f.
func (f Filter) Match(r core.Record) bool {
	if f.Community != "" && r.Community != f.Community {
		return false
	}
	if f.HouseType != "" && r.HouseType != f.HouseType {
		return false
	}
	return true
}

// Apply returns the subsequence of records matching f, order preserved.
func (f Filter) Apply(records []core.Record) []core.Record {
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Summary holds the dashboard figures for a selection. Decimal fields are
// already rounded; Empty marks a selection without records. PriceKnown and
// AreaKnown are false when no record of the selection has a numeric value.
type Summary struct {
	Empty       bool
	Count       int
	PriceKnown  bool
	AreaKnown   bool
	AvgPrice    decimal.Decimal
	MaxPrice    decimal.Decimal
	MinPrice    decimal.Decimal
	AvgArea     decimal.Decimal
	PriceChange decimal.Decimal
	// ChangeKnown is false when the change cannot be computed, e.g. the
	// earliest price is zero or no price is a number.
	ChangeKnown bool
}

// Summarize computes the statistics of a filtered selection.
//
// Non-finite prices and areas are left out of the averages and extremes but
// the record still counts.
func Summarize(records []core.Record) Summary {
	if len(records) == 0 {
		return Summary{Empty: true}
	}
	s := Summary{Count: len(records)}

	var (
		priceSum, areaSum decimal.Decimal
		prices, areas     int
		min, max          decimal.Decimal
	)
	for _, r := range records {
		if r.Price.Valid() {
			p := decimal.NewFromFloat(r.Price.Float())
			if prices == 0 || p.LessThan(min) {
				min = p
			}
			if prices == 0 || p.GreaterThan(max) {
				max = p
			}
			priceSum = priceSum.Add(p)
			prices++
		}
		if r.Area.Valid() {
			areaSum = areaSum.Add(decimal.NewFromFloat(r.Area.Float()))
			areas++
		}
	}
	s.PriceKnown, s.AreaKnown = prices > 0, areas > 0
	if prices > 0 {
		s.AvgPrice = priceSum.Div(decimal.NewFromInt(int64(prices))).Round(2)
		s.MaxPrice = max.Round(2)
		s.MinPrice = min.Round(2)
	}
	if areas > 0 {
		s.AvgArea = areaSum.Div(decimal.NewFromInt(int64(areas))).Round(1)
	}
	s.PriceChange, s.ChangeKnown = priceChange(records)
	if prices == 0 {
		s.ChangeKnown = false
	}
	return s
}

func priceChange(records []core.Record) (decimal.Decimal, bool) {
	if len(records) < 2 {
		return decimal.Zero, true
	}
	sorted := SortByDate(records)
	first, last := sorted[0].Price, sorted[len(sorted)-1].Price
	if !first.Valid() || !last.Valid() || first.Float() == 0 {
		return decimal.Zero, false
	}
	f := decimal.NewFromFloat(first.Float())
	l := decimal.NewFromFloat(last.Float())
	return l.Sub(f).Div(f).Mul(decimal.NewFromInt(100)).Round(2), true
}

// SortByDate returns a copy of records in ascending calendar order; ties keep
// their original order.
func SortByDate(records []core.Record) []core.Record {
	out := make([]core.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time().Before(out[j].Time())
	})
	return out
}

func (s Summary) FormatAvgPrice() string { return s.price(s.AvgPrice) }
func (s Summary) FormatMaxPrice() string { return s.price(s.MaxPrice) }
func (s Summary) FormatMinPrice() string { return s.price(s.MinPrice) }

func (s Summary) price(d decimal.Decimal) string {
	if s.Empty || !s.PriceKnown {
		return Placeholder
	}
	return d.StringFixed(2)
}

func (s Summary) FormatAvgArea() string {
	if s.Empty || !s.AreaKnown {
		return Placeholder
	}
	return s.AvgArea.StringFixed(1)
}

// FormatPriceChange renders the change with two decimals, a "+" when positive
// and a trailing "%".
func (s Summary) FormatPriceChange() string {
	if s.Empty || !s.ChangeKnown {
		return Placeholder
	}
	sign := ""
	if s.PriceChange.IsPositive() {
		sign = "+"
	}
	return sign + s.PriceChange.StringFixed(2) + "%"
}

// Trend classifies the change for styling: "increase", "decrease" or "".
func (s Summary) Trend() string {
	if s.Empty || !s.ChangeKnown {
		return ""
	}
	switch s.PriceChange.Sign() {
	case 1:
		return "increase"
	case -1:
		return "decrease"
	}
	return ""
}

func (s Summary) FormatCount() string {
	if s.Empty {
		return Placeholder
	}
	return decimal.NewFromInt(int64(s.Count)).String()
}

// Options lists the distinct communities and house types, sorted, for the
// filter selectors.
func Options(records []core.Record) (communities, houseTypes []string) {
	cs := map[string]struct{}{}
	hs := map[string]struct{}{}
	for _, r := range records {
		cs[r.Community] = struct{}{}
		hs[r.HouseType] = struct{}{}
	}
	return sortedKeys(cs), sortedKeys(hs)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
