package csvreplay

import (
	"os"
	"path/filepath"
	"testing"

	"orderflow-engine/internal/model"
)

func writeCSV(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.csv")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestOpenParsesRowsInOrder(t *testing.T) {
	path := writeCSV(t, "event_time_ms,price,size,side\n100,4500.25,10,buy\n200,4500.00,5,sell\n")

	rows, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].EventTimeMs != 100 || rows[0].Price != 4500.25 || rows[0].Size != 10 || rows[0].Side != model.SideBuy {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Side != model.SideSell {
		t.Fatalf("expected second row to be a sell, got %+v", rows[1])
	}
}

func TestOpenIsHeaderOrderAgnosticAndCaseInsensitive(t *testing.T) {
	path := writeCSV(t, "SIDE,Price,Size,Event_Time_Ms\nBUY,100.5,1,1000\n")

	rows, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Price != 100.5 || rows[0].EventTimeMs != 1000 || rows[0].Side != model.SideBuy {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}

func TestOpenSkipsMalformedRows(t *testing.T) {
	path := writeCSV(t, "event_time_ms,price,size,side\n100,4500.25,10,buy\nnot-a-number,bad,oops,buy\n300,4499.75,3,sell\n")

	rows, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected malformed row to be skipped, got %d rows", len(rows))
	}
	if rows[1].EventTimeMs != 300 {
		t.Fatalf("expected second retained row to be the one after the malformed row, got %+v", rows[1])
	}
}

func TestOpenRejectsMissingColumn(t *testing.T) {
	path := writeCSV(t, "event_time_ms,price,size\n100,4500.25,10\n")

	if _, err := Open(path); err == nil {
		t.Fatalf("expected an error for a missing side column")
	}
}

func TestRowTradeCarriesSymbol(t *testing.T) {
	row := Row{EventTimeMs: 100, Price: 4500.25, Size: 10, Side: model.SideBuy}
	tr := row.Trade("NQ")

	want := model.Trade{Symbol: "NQ", Price: 4500.25, Size: 10, Side: model.SideBuy, EventTimeMs: 100}
	if tr != want {
		t.Fatalf("expected %+v, got %+v", want, tr)
	}
}
