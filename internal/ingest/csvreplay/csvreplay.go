// Package csvreplay reads a CSV trade feed into memory as rows that a
// driver converts to trades and feeds to an engine, for local replay and
// testing rather than a live exchange connection.
//
// Grounded on the teacher's internal/state.LoadFromCSV (encoding/csv with
// a bufio reader and a header-driven column index map), adapted from
// reading snapshot-log rows to reading one trade per row.
package csvreplay

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"orderflow-engine/internal/model"
)

// Row is one parsed CSV trade row.
type Row struct {
	EventTimeMs int64
	Price       float64
	Size        uint32
	Side        model.Side
}

// Open reads a CSV trade file and returns its rows in file order. The
// expected header columns are event_time_ms, price, size, side (side is
// "buy" or "sell", case-insensitive).
func Open(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvreplay: open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(bufio.NewReaderSize(f, 1<<16))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("csvreplay: read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.ToLower(h))] = i
	}
	for _, col := range []string{"event_time_ms", "price", "size", "side"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("csvreplay: missing required column %q", col)
		}
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}

		row, ok := parseRow(record, idx)
		if ok {
			rows = append(rows, row)
		}
	}

	return rows, nil
}

// Trade converts a Row to the model.Trade an engine ingests.
func (r Row) Trade(symbol string) model.Trade {
	return model.Trade{
		Symbol:      symbol,
		Price:       r.Price,
		Size:        r.Size,
		Side:        r.Side,
		EventTimeMs: r.EventTimeMs,
	}
}

func parseRow(record []string, idx map[string]int) (Row, bool) {
	get := func(col string) string {
		i := idx[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	ts, err := strconv.ParseInt(get("event_time_ms"), 10, 64)
	if err != nil {
		return Row{}, false
	}
	price, err := strconv.ParseFloat(get("price"), 64)
	if err != nil {
		return Row{}, false
	}
	size, err := strconv.ParseUint(get("size"), 10, 32)
	if err != nil {
		return Row{}, false
	}

	side := model.SideBuy
	if strings.EqualFold(get("side"), "sell") {
		side = model.SideSell
	}

	return Row{EventTimeMs: ts, Price: price, Size: uint32(size), Side: side}, true
}
