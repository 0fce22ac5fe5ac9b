package google

import (
	"fmt"

	"housetrend/internal/core"
	"housetrend/internal/csvio"
)

// buildRows lays out a snapshot as a value matrix: the CSV header plus the
// record id, one row per record, and a trailing snapshot marker in column G
// of the header row. Non-numeric measures become empty cells.
func buildRows(id int64, doc core.Document) [][]any {
	header := []any{"ID"}
	for _, h := range csvio.Header {
		header = append(header, h)
	}
	header = append(header, fmt.Sprintf("snapshot #%d", id))

	rows := make([][]any, 0, len(doc.TransactionData)+1)
	rows = append(rows, header)
	for _, r := range doc.TransactionData {
		rows = append(rows, []any{r.ID, r.Community, r.HouseType, r.Date, cell(r.Price), cell(r.Area)})
	}
	return rows
}

func cell(m core.Measure) any {
	if !m.Valid() {
		return ""
	}
	return m.Float()
}
