package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// ImportOptions controls how CSV rows become records.
type ImportOptions struct {
	// Lists names columns whose values are comma-separated lists.
	Lists []string
	// Numbers names columns parsed as numbers. Unparseable values stay text.
	Numbers []string
	// Rename maps CSV header names to record attribute names.
	Rename map[string]string
	// ContinueOnError skips rows that fail to store, counting them in
	// ImportResult.Failed.
	ContinueOnError bool
}

// ParseRename parses comma-separated "from=to" pairs into a map suitable
// for ImportOptions.Rename.
func ParseRename(s string) (map[string]string, error) {
	rename := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		if pair = strings.TrimSpace(pair); pair == "" {
			continue
		}
		from, to, ok := strings.Cut(pair, "=")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("invalid rename %q: want from=to", pair)
		}
		rename[from] = to
	}
	return rename, nil
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Imported int
	Failed   int
}

// ImportCSV reads a headered CSV stream and puts one record per row.
// Empty cells are omitted, "true" and "false" become booleans.
func ImportCSV(ctx context.Context, s Store, r io.Reader, opts ImportOptions) (ImportResult, error) {
	var res ImportResult

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		return res, fmt.Errorf("%w: read header: %v", ErrLoadFailed, err)
	}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if to, ok := opts.Rename[h]; ok {
			h = to
		}
		header[i] = h
	}

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("%w: line %d: %v", ErrLoadFailed, line, err)
		}

		rec := rowRecord(header, row, opts)
		if err := s.Put(ctx, rec); err != nil {
			if opts.ContinueOnError {
				res.Failed++
				continue
			}
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		res.Imported++
	}
}

func rowRecord(header, row []string, opts ImportOptions) Record {
	rec := make(Record, len(header))
	for i, col := range header {
		if i >= len(row) {
			break
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			continue
		}

		switch {
		case slices.Contains(opts.Lists, col):
			var items []any
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					items = append(items, part)
				}
			}
			rec[col] = items
		case slices.Contains(opts.Numbers, col):
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				rec[col] = f
			} else {
				rec[col] = v
			}
		case strings.EqualFold(v, "true"):
			rec[col] = true
		case strings.EqualFold(v, "false"):
			rec[col] = false
		default:
			rec[col] = v
		}
	}
	return rec
}
