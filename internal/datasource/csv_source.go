package datasource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/signal-backtest/internal/models"
)

// CSVSource reads bars from <dir>/<SYMBOL>_<timeframe>.csv files with the header
// time,open,high,low,close,volume. Time is RFC3339 or unix seconds.
type CSVSource struct {
	dir string
}

// NewCSVSource creates a source reading from dir
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

// Name returns the name of the data source
func (s *CSVSource) Name() string {
	return "csv"
}

// Path returns the file that holds a symbol's bars for a timeframe
func (s *CSVSource) Path(symbol, timeframe string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", strings.ToUpper(symbol), timeframe))
}

// FetchBars loads the symbol file and returns the bars within the range
func (s *CSVSource) FetchBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Path(symbol, timeframe)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewDataSourceError(s.Name(), ErrCodeNotFound, path, ErrNoMarketData)
		}
		return nil, NewDataSourceError(s.Name(), ErrCodeUnknown, "open "+path, err)
	}
	defer f.Close()

	bars, err := ReadBarsCSV(f)
	if err != nil {
		return nil, NewDataSourceError(s.Name(), ErrCodeInvalidData, path, err)
	}
	return clip(bars, start, end), nil
}

// ReadBarsCSV parses bars from CSV and sorts them by time
func ReadBarsCSV(r io.Reader) ([]models.Bar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"time", "open", "high", "low", "close"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidData, required)
		}
	}

	var bars []models.Bar
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		bar, err := parseRecord(record, columns)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})
	return bars, nil
}

func parseRecord(record []string, columns map[string]int) (models.Bar, error) {
	var bar models.Bar

	ts, err := parseTimestamp(record[columns["time"]])
	if err != nil {
		return bar, err
	}
	bar.Time = ts

	fields := []struct {
		column string
		dest   *float64
	}{
		{"open", &bar.Open},
		{"high", &bar.High},
		{"low", &bar.Low},
		{"close", &bar.Close},
		{"volume", &bar.Volume},
	}
	for _, field := range fields {
		idx, ok := columns[field.column]
		if !ok || idx >= len(record) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
		if err != nil {
			return bar, fmt.Errorf("%w: %s: %v", ErrInvalidData, field.column, err)
		}
		*field.dest = v
	}
	return bar, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidData, raw)
	}
	return ts.UTC(), nil
}
