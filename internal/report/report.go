// Package report renders the dashboard figures as a markdown report for the
// terminal and turns the site description into HTML.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"

	"housetrend/internal/core"
	"housetrend/internal/stats"
)

// DefaultWidth is the terminal word wrap used when none is given.
const DefaultWidth = 100

// Markdown builds the statistics report for the records matching filter.
func Markdown(site core.SiteConfig, filter stats.Filter, records []core.Record) string {
	selected := filter.Apply(records)
	summary := stats.Summarize(selected)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escape(site.Title()))
	if d := strings.TrimSpace(site.Description()); d != "" {
		fmt.Fprintf(&b, "%s\n\n", d)
	}
	fmt.Fprintf(&b, "**小区**: %s  \n**户型**: %s\n\n", orAll(filter.Community), orAll(filter.HouseType))

	b.WriteString("| 指标 | 数值 |\n|---|---:|\n")
	rows := [][2]string{
		{"平均单价 (万元/㎡)", summary.FormatAvgPrice()},
		{"最高单价 (万元/㎡)", summary.FormatMaxPrice()},
		{"最低单价 (万元/㎡)", summary.FormatMinPrice()},
		{"成交套数", summary.FormatCount()},
		{"平均面积 (㎡)", summary.FormatAvgArea()},
		{"价格变化", summary.FormatPriceChange()},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s |\n", r[0], r[1])
	}

	groups := stats.GroupForChart(selected)
	if len(groups) > 0 {
		b.WriteString("\n## 户型\n\n| 户型 | 成交套数 | 平均单价 | 价格变化 |\n|---|---:|---:|---:|\n")
		for _, g := range groups {
			gs := stats.Summarize(stats.Filter{HouseType: g.HouseType}.Apply(selected))
			fmt.Fprintf(&b, "| %s | %d | %s | %s |\n",
				escape(g.HouseType), gs.Count, gs.FormatAvgPrice(), gs.FormatPriceChange())
		}
	}
	return b.String()
}

// Terminal renders markdown for a terminal without colors.
func Terminal(markdown string, width int) (string, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create terminal renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return out, nil
}

// DescriptionHTML renders the site description, which may be markdown, as
// HTML. Raw HTML in the source is not passed through.
func DescriptionHTML(description string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(description), &buf); err != nil {
		return "", fmt.Errorf("render description: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func orAll(s string) string {
	if s == "" {
		return "全部"
	}
	return escape(s)
}

// escape keeps user text from breaking table cells.
func escape(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
