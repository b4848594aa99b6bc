package prices

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"stockkit/internal/domain"

	"github.com/shopspring/decimal"
)

const DefaultDateColumn = "Date"

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

// LoadCSV reads a wide price table: one column of dates named dateCol, every
// other column a positive decimal price series for one asset. Rows and
// columns that are entirely empty are dropped; any remaining gap or
// non-numeric cell is a DataFormatError, as is a table with fewer than two
// usable rows. Rows are sorted by date and dates must not repeat.
func LoadCSV(path string, dateCol string) (domain.PriceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.PriceTable{}, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return domain.PriceTable{}, &domain.DataFormatError{Msg: fmt.Sprintf("could not parse %s", path), Err: err}
	}
	if len(records) == 0 {
		return domain.PriceTable{}, domain.DataFormatErrf("%s is empty", path)
	}

	header := records[0]
	dateIdx := -1
	for i, name := range header {
		if strings.TrimSpace(name) == dateCol {
			dateIdx = i
		}
	}
	if dateIdx == -1 {
		return domain.PriceTable{}, domain.DataFormatErrf("date column %q not found in header %v", dateCol, header)
	}

	rows := dropEmptyRows(records[1:])
	if len(rows) < 2 {
		return domain.PriceTable{}, domain.DataFormatErrf("need at least 2 price rows, found %d", len(rows))
	}
	keepCols := nonEmptyColumns(header, rows, dateIdx)
	if len(keepCols) == 0 {
		return domain.PriceTable{}, domain.DataFormatErrf("%s has no asset columns", path)
	}

	table := domain.PriceTable{}
	for _, c := range keepCols {
		table.Assets = append(table.Assets, strings.TrimSpace(header[c]))
	}
	for rowNum, rec := range rows {
		date, err := parseDate(rec[dateIdx])
		if err != nil {
			return domain.PriceTable{}, &domain.DataFormatError{Msg: fmt.Sprintf("bad date on row %d", rowNum+2), Err: err}
		}
		cells := make([]decimal.Decimal, 0, len(keepCols))
		for _, c := range keepCols {
			raw := strings.TrimSpace(rec[c])
			if raw == "" {
				// gaps are rejected, not filled
				return domain.PriceTable{}, domain.DataFormatErrf("missing %s price on row %d", header[c], rowNum+2)
			}
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return domain.PriceTable{}, &domain.DataFormatError{
					Msg: fmt.Sprintf("non-numeric %s price %q on row %d", header[c], raw, rowNum+2),
					Err: err,
				}
			}
			cells = append(cells, d)
		}
		table.Dates = append(table.Dates, date)
		table.Prices = append(table.Prices, cells)
	}

	sortByDate(&table)
	if err := table.Validate(); err != nil {
		return domain.PriceTable{}, err
	}
	return table, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

func dropEmptyRows(rows [][]string) [][]string {
	out := [][]string{}
	for _, rec := range rows {
		empty := true
		for _, cell := range rec {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if !empty {
			out = append(out, rec)
		}
	}
	return out
}

// nonEmptyColumns returns the indices of asset columns with at least one
// populated cell, preserving header order.
func nonEmptyColumns(header []string, rows [][]string, dateIdx int) []int {
	keep := []int{}
	for c := range header {
		if c == dateIdx {
			continue
		}
		for _, rec := range rows {
			if c < len(rec) && strings.TrimSpace(rec[c]) != "" {
				keep = append(keep, c)
				break
			}
		}
	}
	return keep
}

func sortByDate(t *domain.PriceTable) {
	idx := make([]int, len(t.Dates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.Dates[idx[a]].Before(t.Dates[idx[b]])
	})
	dates := make([]time.Time, len(idx))
	rows := make([][]decimal.Decimal, len(idx))
	for i, j := range idx {
		dates[i] = t.Dates[j]
		rows[i] = t.Prices[j]
	}
	t.Dates = dates
	t.Prices = rows
}
