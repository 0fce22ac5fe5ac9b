// Package chart models the price chart: one series per house type, legend
// toggles, and the y-axis bound that follows the visible series.
package chart

import (
	"math"
	"sort"
	"time"

	"housetrend/internal/core"
	"housetrend/internal/stats"
)

// MarginRatio is the share of the visible value span added on both sides.
const MarginRatio = 0.05

var palette = []string{
	"#3498db", "#e74c3c", "#2ecc71", "#f39c12", "#9b59b6",
	"#1abc9c", "#e67e22", "#34495e", "#95a5a6", "#d35400",
}

type Point struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

type Series struct {
	Label  string  `json:"label"`
	Color  string  `json:"color"`
	Points []Point `json:"data"`
}

// Bound is the y-axis display range. Auto means no override: the renderer
// picks its own range.
type Bound struct {
	Auto bool     `json:"auto"`
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
}

// Chart holds the series and which of them are visible.
type Chart struct {
	Series  []Series `json:"datasets"`
	visible []bool
}

// New builds a chart from grouped records, every series visible.
func New(groups []stats.Group) *Chart {
	c := &Chart{Series: make([]Series, len(groups))}
	for i, g := range groups {
		s := Series{Label: g.HouseType, Color: palette[i%len(palette)]}
		for j, p := range g.Prices {
			if math.IsNaN(p) || math.IsInf(p, 0) {
				continue
			}
			s.Points = append(s.Points, Point{X: g.Dates[j], Y: p})
		}
		c.Series[i] = s
	}
	c.visible = make([]bool, len(c.Series))
	for i := range c.visible {
		c.visible[i] = true
	}
	return c
}

// Labels returns the x-axis dates of every series once each, in calendar
// order. A shared label list keeps the axis chronological whatever order the
// series are drawn in. Dates that do not parse sort first, like in
// stats.SortByDate.
func (c *Chart) Labels() []string {
	seen := map[string]bool{}
	var labels []string
	for _, s := range c.Series {
		for _, p := range s.Points {
			if !seen[p.X] {
				seen[p.X] = true
				labels = append(labels, p.X)
			}
		}
	}
	sort.SliceStable(labels, func(i, j int) bool {
		ti, tj := dateOf(labels[i]), dateOf(labels[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return labels[i] < labels[j]
	})
	return labels
}

func dateOf(s string) (t time.Time) {
	t, _ = core.ParseDate(s)
	return t
}

// Visible reports whether series i is shown.
func (c *Chart) Visible(i int) bool {
	return i >= 0 && i < len(c.visible) && c.visible[i]
}

// Toggle flips the visibility of series i and returns the recomputed bound.
func (c *Chart) Toggle(i int) Bound {
	if i >= 0 && i < len(c.visible) {
		c.visible[i] = !c.visible[i]
	}
	return c.Bound()
}

// Hide marks the series with the given labels hidden.
func (c *Chart) Hide(labels ...string) Bound {
	hidden := map[string]bool{}
	for _, l := range labels {
		hidden[l] = true
	}
	for i, s := range c.Series {
		if hidden[s.Label] {
			c.visible[i] = false
		}
	}
	return c.Bound()
}

// Bound recomputes the axis range over every visible value.
func (c *Chart) Bound() Bound {
	var values []float64
	for i, s := range c.Series {
		if !c.visible[i] {
			continue
		}
		for _, p := range s.Points {
			values = append(values, p.Y)
		}
	}
	return Range(values)
}

// Range returns [min - m, max + m] with m = (max - min) * MarginRatio, or an
// auto bound when values is empty.
func Range(values []float64) Bound {
	if len(values) == 0 {
		return Bound{Auto: true}
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	margin := (max - min) * MarginRatio
	lo, hi := min-margin, max+margin
	return Bound{Min: &lo, Max: &hi}
}
