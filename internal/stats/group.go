package stats

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"housetrend/internal/core"
)

// Group is the plotted series of one house type: parallel dates and prices in
// ascending calendar order.
type Group struct {
	HouseType string
	Dates     []string
	Prices    []float64
}

// GroupForChart partitions records by house type, in first-seen order.
func GroupForChart(records []core.Record) []Group {
	index := map[string]int{}
	var buckets [][]core.Record
	var order []string
	for _, r := range records {
		i, ok := index[r.HouseType]
		if !ok {
			i = len(order)
			index[r.HouseType] = i
			order = append(order, r.HouseType)
			buckets = append(buckets, nil)
		}
		buckets[i] = append(buckets[i], r)
	}

	groups := make([]Group, len(order))
	for i, houseType := range order {
		sorted := SortByDate(buckets[i])
		g := Group{
			HouseType: houseType,
			Dates:     make([]string, len(sorted)),
			Prices:    make([]float64, len(sorted)),
		}
		for j, r := range sorted {
			g.Dates[j] = r.Date
			g.Prices[j] = r.Price.Float()
		}
		groups[i] = g
	}
	return groups
}

// Search keeps the records whose community or house type fuzzily contains
// query. An empty query keeps everything.
func Search(records []core.Record, query string) []core.Record {
	query = strings.TrimSpace(query)
	if query == "" {
		return records
	}
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if fuzzy.MatchNormalizedFold(query, r.Community) || fuzzy.MatchNormalizedFold(query, r.HouseType) {
			out = append(out, r)
		}
	}
	return out
}
