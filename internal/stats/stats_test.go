package stats

import (
	"math"
	"testing"

	"housetrend/internal/core"
)

func sample() []core.Record {
	return []core.Record{
		{ID: 1, Community: "翠湖", HouseType: "2室", Date: "2024-03-01", Price: 6.0, Area: 80},
		{ID: 2, Community: "翠湖", HouseType: "3室", Date: "2024-01-15", Price: 5.5, Area: 110},
		{ID: 3, Community: "江南", HouseType: "2室", Date: "2024-01-10", Price: 4.0, Area: 75},
		{ID: 4, Community: "翠湖", HouseType: "2室", Date: "2023-12-31", Price: 5.0, Area: 82},
	}
}

func TestFilterApply(t *testing.T) {
	recs := sample()
	tests := []struct {
		name   string
		filter Filter
		ids    []int
	}{
		{"wildcard", Filter{}, []int{1, 2, 3, 4}},
		{"community", Filter{Community: "翠湖"}, []int{1, 2, 4}},
		{"house type", Filter{HouseType: "2室"}, []int{1, 3, 4}},
		{"both", Filter{Community: "翠湖", HouseType: "2室"}, []int{1, 4}},
		{"none", Filter{Community: "不存在"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(recs)
			if len(got) != len(tt.ids) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.ids))
			}
			for i, r := range got {
				if r.ID != tt.ids[i] {
					t.Fatalf("position %d: id %d, want %d", i, r.ID, tt.ids[i])
				}
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sample())
	if s.Empty || s.Count != 4 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if got := s.FormatAvgPrice(); got != "5.13" {
		t.Errorf("avg price = %s", got)
	}
	if got := s.FormatMaxPrice(); got != "6.00" {
		t.Errorf("max price = %s", got)
	}
	if got := s.FormatMinPrice(); got != "4.00" {
		t.Errorf("min price = %s", got)
	}
	if got := s.FormatAvgArea(); got != "86.8" {
		t.Errorf("avg area = %s", got)
	}
	// earliest 2023-12-31 at 5.0, latest 2024-03-01 at 6.0
	if got := s.FormatPriceChange(); got != "+20.00%" {
		t.Errorf("change = %s", got)
	}
	if s.Trend() != "increase" {
		t.Errorf("trend = %q", s.Trend())
	}
	if got := s.FormatCount(); got != "4" {
		t.Errorf("count = %s", got)
	}
}

func TestSummarizeAvgWithinBounds(t *testing.T) {
	sets := [][]core.Record{
		sample(),
		{{Price: 1.005, Area: 1}, {Price: 1.004, Area: 1}, {Price: 1.006, Area: 1}},
		{{Price: 99.999, Area: 10}, {Price: 0.001, Area: 10}},
	}
	for i, recs := range sets {
		s := Summarize(recs)
		if s.AvgPrice.LessThan(s.MinPrice) || s.AvgPrice.GreaterThan(s.MaxPrice) {
			t.Fatalf("set %d: avg %s outside [%s, %s]", i, s.AvgPrice, s.MinPrice, s.MaxPrice)
		}
	}
}

func TestSummarizeSingleRecord(t *testing.T) {
	s := Summarize(sample()[:1])
	if got := s.FormatPriceChange(); got != "0.00%" {
		t.Fatalf("change = %s, want 0.00%%", got)
	}
	if s.Trend() != "" {
		t.Fatalf("trend = %q", s.Trend())
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	for name, got := range map[string]string{
		"avg":    s.FormatAvgPrice(),
		"max":    s.FormatMaxPrice(),
		"min":    s.FormatMinPrice(),
		"change": s.FormatPriceChange(),
		"area":   s.FormatAvgArea(),
		"count":  s.FormatCount(),
	} {
		if got != Placeholder {
			t.Errorf("%s = %q, want placeholder", name, got)
		}
	}
}

func TestSummarizeNegativeChangeAndNaN(t *testing.T) {
	recs := []core.Record{
		{Date: "2024-01-01", Price: 10, Area: 50},
		{Date: "2024-02-01", Price: core.Measure(math.NaN()), Area: core.Measure(math.NaN())},
		{Date: "2024-03-01", Price: 8, Area: 70},
	}
	s := Summarize(recs)
	if s.Count != 3 {
		t.Fatalf("count = %d", s.Count)
	}
	if got := s.FormatAvgPrice(); got != "9.00" {
		t.Fatalf("avg = %s", got)
	}
	if got := s.FormatAvgArea(); got != "60.0" {
		t.Fatalf("area = %s", got)
	}
	if got := s.FormatPriceChange(); got != "-20.00%" {
		t.Fatalf("change = %s", got)
	}
	if s.Trend() != "decrease" {
		t.Fatalf("trend = %q", s.Trend())
	}
}

func TestSummarizeWithoutNumbers(t *testing.T) {
	nan := core.Measure(math.NaN())
	tests := []struct {
		name              string
		recs              []core.Record
		price, area, chng string
	}{
		{"single record", []core.Record{{Date: "2024-01-01", Price: nan, Area: nan}}, Placeholder, Placeholder, Placeholder},
		{"no prices", []core.Record{
			{Date: "2024-01-01", Price: nan, Area: 80},
			{Date: "2024-02-01", Price: nan, Area: 90},
		}, Placeholder, "85.0", Placeholder},
		{"no areas", []core.Record{{Date: "2024-01-01", Price: 5, Area: nan}}, "5.00", Placeholder, "0.00%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.recs)
			if s.Count != len(tt.recs) {
				t.Fatalf("count = %d", s.Count)
			}
			for name, got := range map[string]string{"avg": s.FormatAvgPrice(), "max": s.FormatMaxPrice(), "min": s.FormatMinPrice()} {
				if got != tt.price {
					t.Errorf("%s = %s, want %s", name, got, tt.price)
				}
			}
			if got := s.FormatAvgArea(); got != tt.area {
				t.Errorf("area = %s, want %s", got, tt.area)
			}
			if got := s.FormatPriceChange(); got != tt.chng {
				t.Errorf("change = %s, want %s", got, tt.chng)
			}
		})
	}
}

func TestSummarizeZeroFirstPrice(t *testing.T) {
	s := Summarize([]core.Record{{Date: "2024-01-01", Price: 0, Area: 1}, {Date: "2024-02-01", Price: 3, Area: 1}})
	if got := s.FormatPriceChange(); got != Placeholder {
		t.Fatalf("change = %s", got)
	}
}

func TestGroupForChartSortsByCalendarDate(t *testing.T) {
	recs := []core.Record{
		{HouseType: "2室", Date: "2024-10-01", Price: 3},
		{HouseType: "3室", Date: "2024-01-01", Price: 9},
		{HouseType: "2室", Date: "2024-9-15", Price: 2},
		{HouseType: "2室", Date: "2024-02-01", Price: 1},
	}
	groups := GroupForChart(recs)
	if len(groups) != 2 || groups[0].HouseType != "2室" || groups[1].HouseType != "3室" {
		t.Fatalf("unexpected groups %+v", groups)
	}
	// string order would put "2024-9-15" last; calendar order puts it second
	want := []float64{1, 2, 3}
	for i, p := range groups[0].Prices {
		if p != want[i] {
			t.Fatalf("prices = %v, want %v", groups[0].Prices, want)
		}
	}
	if groups[0].Dates[1] != "2024-9-15" {
		t.Fatalf("dates = %v", groups[0].Dates)
	}
}

func TestOptions(t *testing.T) {
	cs, hs := Options(sample())
	if len(cs) != 2 || cs[0] > cs[1] {
		t.Fatalf("communities = %v", cs)
	}
	if len(hs) != 2 || hs[0] != "2室" || hs[1] != "3室" {
		t.Fatalf("house types = %v", hs)
	}
}

func TestSearch(t *testing.T) {
	recs := []core.Record{{Community: "Green Lake Garden", HouseType: "2BR"}, {Community: "River Park", HouseType: "3BR"}}
	if got := Search(recs, "glg"); len(got) != 1 || got[0].Community != "Green Lake Garden" {
		t.Fatalf("search glg = %+v", got)
	}
	if got := Search(recs, "3br"); len(got) != 1 || got[0].Community != "River Park" {
		t.Fatalf("search 3br = %+v", got)
	}
	if got := Search(recs, " "); len(got) != 2 {
		t.Fatalf("blank query should keep all, got %d", len(got))
	}
}
