package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/cache"
	"github.com/bddaily/bddaily-server/pkg/feishu"
	"github.com/bddaily/bddaily-server/pkg/mapping"
)

// FieldEntry is one column name and its field id.
type FieldEntry struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// FieldMap resolves column display names to field ids for one table.
// Entries keep the vendor's column order.
type FieldMap struct {
	Entries []FieldEntry `json:"entries"`
}

// FindID returns the field id for name. An exact match wins; otherwise names
// are compared with all whitespace removed and the first match in column
// order is returned.
func (m FieldMap) FindID(name string) (string, bool) {
	for _, e := range m.Entries {
		if e.Name == name {
			return e.ID, true
		}
	}

	target := mapping.CompactName(name)
	for _, e := range m.Entries {
		if mapping.CompactName(e.Name) == target {
			return e.ID, true
		}
	}
	return "", false
}

// Canonical returns the table's actual label for name, so writes survive
// whitespace drift in column labels. Unknown names are returned unchanged.
func (m FieldMap) Canonical(name string) string {
	id, ok := m.FindID(name)
	if !ok {
		return name
	}
	for _, e := range m.Entries {
		if e.ID == id {
			return e.Name
		}
	}
	return name
}

// FieldMapCache caches one FieldMap per table. Entries expire after the
// configured TTL and are rebuilt in full; concurrent misses share one rebuild.
type FieldMapCache struct {
	client BitableClient
	group  *cache.Group[FieldMap]
	logger *zap.Logger
}

// NewFieldMapCache creates a field map cache backed by store.
func NewFieldMapCache(client BitableClient, store cache.Store, ttl time.Duration, logger *zap.Logger) *FieldMapCache {
	return &FieldMapCache{
		client: client,
		group:  cache.NewGroup[FieldMap]("fieldmap", store, ttl, logger),
		logger: logger.Named("fieldmap"),
	}
}

// Get returns the field map of table.
func (c *FieldMapCache) Get(ctx context.Context, table feishu.Table) (FieldMap, error) {
	return c.group.Get(ctx, table.Key(), func(ctx context.Context) (FieldMap, error) {
		fields, err := c.client.ListFields(ctx, table)
		if err != nil {
			return FieldMap{}, fmt.Errorf("list fields: %w", err)
		}

		m := FieldMap{Entries: make([]FieldEntry, 0, len(fields))}
		for _, f := range fields {
			if f.FieldName == "" || f.FieldID == "" {
				continue
			}
			m.Entries = append(m.Entries, FieldEntry{Name: f.FieldName, ID: f.FieldID})
		}

		c.logger.Debug("Rebuilt field map",
			zap.String("table", table.TableID),
			zap.Int("fields", len(m.Entries)))
		return m, nil
	})
}

