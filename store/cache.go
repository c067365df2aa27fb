package store

import (
	"context"
	"sync"
)

// cache is a write-through record cache in front of a slower Store. Gets
// are served from memory once a record has been seen; Query and Scan
// always reach the backing store and refresh the records they return.
type cache struct {
	table   TableConfig
	backing Store
	records map[Key]Record
	mu      sync.RWMutex
}

// NewCache wraps backing with a write-through cache. Records live for the
// lifetime of the cache; writes that bypass it are not observed by Get.
func NewCache(table TableConfig, backing Store) Store {
	return &cache{
		table:   table,
		backing: backing,
		records: make(map[Key]Record),
	}
}

func (c *cache) Get(ctx context.Context, key Key) (Record, error) {
	c.mu.RLock()
	rec, ok := c.records[key]
	c.mu.RUnlock()
	if ok {
		return rec.Clone(), nil
	}

	rec, err := c.backing.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.remember(rec)
	return rec, nil
}

func (c *cache) Put(ctx context.Context, rec Record) error {
	if err := c.backing.Put(ctx, rec); err != nil {
		return err
	}
	c.remember(rec)
	return nil
}

func (c *cache) Query(ctx context.Context, attr, value string) ([]Record, error) {
	recs, err := c.backing.Query(ctx, attr, value)
	if err != nil {
		return nil, err
	}
	c.remember(recs...)
	return recs, nil
}

func (c *cache) Scan(ctx context.Context) ([]Record, error) {
	recs, err := c.backing.Scan(ctx)
	if err != nil {
		return nil, err
	}
	c.remember(recs...)
	return recs, nil
}

func (c *cache) remember(recs ...Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range recs {
		key, err := keyOf(c.table, rec)
		if err != nil {
			continue
		}
		c.records[key] = rec.Clone()
	}
}
