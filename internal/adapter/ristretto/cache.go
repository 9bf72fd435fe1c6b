// Package ristretto caches compiled template programs in-process using
// dgraph-io/ristretto. Definitions render the same few hundred
// template strings on every event, so compiles are paid once.
package ristretto

import (
	"github.com/dgraph-io/ristretto/v2"

	"github.com/appforge-ai/AppForge/internal/domain/template"
)

// TemplateCache memoizes template.Parse keyed by source string.
type TemplateCache struct {
	c *ristretto.Cache[string, *template.Template]
}

// NewTemplateCache creates a cache bounded by maxCostBytes, costing
// each entry by its source length.
func NewTemplateCache(maxCostBytes int64) (*TemplateCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, *template.Template]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &TemplateCache{c: c}, nil
}

// Compile implements template.CompileFunc.
func (tc *TemplateCache) Compile(src string) (*template.Template, error) {
	if t, ok := tc.c.Get(src); ok {
		return t, nil
	}
	t, err := template.Parse(src)
	if err != nil {
		return nil, err
	}
	tc.c.Set(src, t, int64(len(src)))
	return t, nil
}

// Close releases the cache's resources.
func (tc *TemplateCache) Close() {
	tc.c.Close()
}
