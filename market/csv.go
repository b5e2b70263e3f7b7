package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ReadCSV parses daily bar rows:
//
//	date,open,high,low,close[,volume]
//
// where date is 2006-01-02 or RFC3339. A single header row ("date,...") is
// allowed and empty or short rows are skipped.
func ReadCSV(r io.Reader, symbol string) (Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var bars []Bar
	first := true
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "date") {
				continue
			}
		}
		b, ok, err := parseBarRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", symbol, err)
		}
		if !ok {
			continue
		}
		b.Symbol = symbol
		bars = append(bars, b)
	}
	return Normalize(bars), nil
}

func parseBarRow(row []string) (Bar, bool, error) {
	if len(row) < 5 {
		return Bar{}, false, nil
	}
	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return Bar{}, false, nil
	}
	d, err := parseDate(ts)
	if err != nil {
		return Bar{}, false, err
	}

	var vals [5]float64
	n := len(row)
	if n > 6 {
		n = 6
	}
	for i := 1; i < n; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			return Bar{}, false, fmt.Errorf("bad value %q: %w", row[i], err)
		}
		vals[i-1] = v
	}
	return Bar{
		Date:   d,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, true, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), nil
	}
	return time.Time{}, fmt.Errorf("bad date %q", s)
}

// LoadCSVDir reads every <SYMBOL>.csv file in dir into a Memory provider.
func LoadCSVDir(dir string, pools map[string][]string) (*Memory, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("market: no csv files in %s", dir)
	}

	bars := make(map[string][]Bar, len(matches))
	for _, path := range matches {
		sym := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		s, err := readCSVFile(path, sym)
		if err != nil {
			return nil, err
		}
		bars[sym] = s
	}
	return NewMemory(bars, pools), nil
}

func readCSVFile(path, symbol string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f, symbol)
}
