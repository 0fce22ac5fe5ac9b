// Package csvio exports transaction records to CSV and imports them back.
//
// The import side is deliberately lenient: lines are split on commas and
// every double quote is dropped, so cells must not contain commas.
package csvio

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"housetrend/internal/core"
)

// Header is the first line of every export.
var Header = []string{"小区", "户型", "时间", "价格(万元/㎡)", "面积(㎡)"}

var (
	ErrNothingToExport = errors.New("没有数据可导出")
	ErrEmptyFile       = errors.New("CSV文件为空")
	ErrNoValidRows     = errors.New("没有导入任何有效数据")
)

// FileName is the download name of an export made on day.
func FileName(day time.Time) string {
	return "二手房成交数据_" + day.Format(core.DateLayout) + ".csv"
}

// Export writes the header and one fully quoted row per record.
func Export(w io.Writer, records []core.Record) error {
	if len(records) == 0 {
		return ErrNothingToExport
	}
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(Header, ","))
	for _, r := range records {
		cells := []string{r.Community, r.HouseType, r.Date, r.Price.String(), r.Area.String()}
		for i, c := range cells {
			cells[i] = `"` + c + `"`
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

// Result describes an import: the parsed rows plus what was skipped.
type Result struct {
	Rows []core.Record
	// Skipped counts data lines with fewer than five fields.
	Skipped int
	// NonNumeric counts accepted rows whose price or area is not a number.
	NonNumeric int
}

// Import parses CSV content. The first non-blank line is the header. Rows
// come back without ids; the store numbers them.
func Import(r io.Reader) (Result, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("read csv: %w", err)
	}
	var lines []string
	for _, line := range strings.Split(string(b), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return Result{}, ErrEmptyFile
	}

	var res Result
	for _, line := range lines[1:] {
		fields := strings.Split(line, ",")
		if len(fields) < 5 {
			res.Skipped++
			continue
		}
		for i, f := range fields {
			fields[i] = strings.TrimSpace(strings.ReplaceAll(f, `"`, ""))
		}
		rec := core.Record{
			Community: fields[0],
			HouseType: fields[1],
			Date:      fields[2],
			Price:     core.ParseMeasure(fields[3]),
			Area:      core.ParseMeasure(fields[4]),
		}
		if !rec.Price.Valid() || !rec.Area.Valid() {
			res.NonNumeric++
		}
		res.Rows = append(res.Rows, rec)
	}
	if len(res.Rows) == 0 {
		return res, ErrNoValidRows
	}
	return res, nil
}
