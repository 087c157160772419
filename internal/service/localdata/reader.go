package localdata

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"AxPredict/internal/domain/models"
	applogger "AxPredict/pkg/logger"
	"AxPredict/pkg/util"
)

// Reader serves candles from CSV snapshots on disk, the last resort before
// reporting no data. Files are looked up by symbol stem:
//
//	historical_<stem>_1m.csv, <stem>_1m.csv, historical_<stem>.csv, <stem>.csv
type Reader struct {
	dir string
	l   *applogger.Logger
}

func New(dir string, l *applogger.Logger) *Reader {
	return &Reader{dir: dir, l: l}
}

// Fetch returns the candles and the basename of the file they came from, or
// (nil, "") when no snapshot exists for the symbol.
func (r *Reader) Fetch(symbol models.SymbolRef) ([]models.Candle, string, error) {
	if r.dir == "" {
		return nil, "", nil
	}
	stem := symbol.FileStem()
	for _, name := range []string{
		fmt.Sprintf("historical_%s_1m.csv", stem),
		fmt.Sprintf("%s_1m.csv", stem),
		fmt.Sprintf("historical_%s.csv", stem),
		fmt.Sprintf("%s.csv", stem),
	} {
		path := filepath.Join(r.dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		candles, err := r.load(path)
		if err != nil {
			return nil, "", fmt.Errorf("local snapshot %s: %w", name, err)
		}
		return candles, name, nil
	}
	return nil, "", nil
}

func (r *Reader) load(path string) ([]models.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	cols := columnIndex(records[0])
	tsIdx, ok := cols["timestamp"]
	if !ok {
		if tsIdx, ok = cols["time"]; !ok {
			return nil, fmt.Errorf("missing timestamp column")
		}
	}

	field := func(row []string, name string) float64 {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return math.NaN()
		}
		if f, ok := util.ParseFloat(row[idx]); ok {
			return f
		}
		return math.NaN()
	}

	out := make([]models.Candle, 0, len(records)-1)
	for _, row := range records[1:] {
		if tsIdx >= len(row) {
			continue
		}
		ts, ok := util.ParseTime(row[tsIdx])
		if !ok {
			continue
		}
		out = append(out, models.Candle{
			Time:   ts,
			Open:   field(row, "open"),
			High:   field(row, "high"),
			Low:    field(row, "low"),
			Close:  field(row, "close"),
			Volume: field(row, "volume"),
		})
	}
	return models.Normalize(out), nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}
