package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

type fileStore struct {
	root  string
	table TableConfig
}

// NewFileStore creates a Store backed by the filesystem. Each record is a
// JSON file at <root>/<partition>.json, or <root>/<partition>/<sort>.json
// when the table has a sort key. Key parts are path-escaped.
func NewFileStore(root string, table TableConfig) Store {
	return &fileStore{root: root, table: table}
}

func (s *fileStore) path(key Key) string {
	if key.Sort == "" {
		return filepath.Join(s.root, escape(key.Partition)+".json")
	}
	return filepath.Join(s.root, escape(key.Partition), escape(key.Sort)+".json")
}

// escape makes a key part safe as a single path element. A leading dot is
// escaped so records never collide with hidden files.
func escape(part string) string {
	e := url.PathEscape(part)
	if strings.HasPrefix(e, ".") {
		e = "%2E" + e[1:]
	}
	return e
}

func (s *fileStore) Get(_ context.Context, key Key) (Record, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, key.Partition, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, key.Partition, err)
	}
	return rec, nil
}

func (s *fileStore) Put(_ context.Context, rec Record) error {
	key, err := keyOf(s.table, rec)
	if err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key.Partition, err)
	}

	path := s.path(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key.Partition, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key.Partition, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key.Partition, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key.Partition, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key.Partition, err)
	}
	return nil
}

func (s *fileStore) Query(ctx context.Context, attr, value string) ([]Record, error) {
	if attr == s.table.Key && s.table.Sort == "" {
		rec, err := s.Get(ctx, Key{Partition: value})
		if err == ErrNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []Record{rec}, nil
	}

	all, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}

	var out []Record
	for _, rec := range all {
		if matches(rec, attr, value) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Scan walks the table directory in lexical order, skipping hidden files
// such as in-flight temporaries.
func (s *fileStore) Scan(_ context.Context) ([]Record, error) {
	var out []Record

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == s.root {
				return fs.SkipAll
			}
			return err
		}

		if path != s.root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("%s: %v", path, err)
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return out, nil
}
