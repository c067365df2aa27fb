// Package store provides the record stores backing the call-center tools.
// Each logical table holds free-form records addressed by a partition key
// and an optional sort key, mirroring the DynamoDB layout used in
// production. The memory and file backends serve local development and
// tests.
package store

import (
	"context"
	"fmt"
	"strconv"
)

// Record is a single free-form item. Values are JSON-compatible: string,
// float64, bool, nil, []any, map[string]any.
type Record map[string]any

// String returns the attribute rendered as text, or "" when absent.
func (r Record) String(attr string) string {
	return text(r[attr])
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Key addresses one record. Sort is empty for tables without a sort key.
type Key struct {
	Partition string
	Sort      string
}

// Store is one logical table.
type Store interface {
	// Get returns the record with the given key or ErrNotFound.
	Get(ctx context.Context, key Key) (Record, error)
	// Put creates or replaces a record. The key attributes must be present.
	Put(ctx context.Context, rec Record) error
	// Query returns every record whose attribute equals value. The key and
	// index attributes are served directly; anything else is a filtered scan.
	Query(ctx context.Context, attr, value string) ([]Record, error)
	// Scan returns every record in the table.
	Scan(ctx context.Context) ([]Record, error)
}

// keyOf extracts the key of rec according to the table layout.
func keyOf(t TableConfig, rec Record) (Key, error) {
	k := Key{Partition: rec.String(t.Key)}
	if k.Partition == "" {
		return Key{}, fmt.Errorf("%w: missing key attribute %q", ErrInvalidRecord, t.Key)
	}
	if t.Sort != "" {
		k.Sort = rec.String(t.Sort)
		if k.Sort == "" {
			return Key{}, fmt.Errorf("%w: missing sort attribute %q", ErrInvalidRecord, t.Sort)
		}
	}
	return k, nil
}

func matches(rec Record, attr, value string) bool {
	v, ok := rec[attr]
	return ok && text(v) == value
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
