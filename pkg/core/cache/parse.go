package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/msto63/mExpr/foundation/expr"
	mdwast "github.com/msto63/mExpr/foundation/expr/ast"
)

// ParseCache memoizes syntax trees. Trees are shared between callers and
// must not be modified.
type ParseCache struct {
	cache *Cache
}

// NewParseCache creates a parse cache
func NewParseCache(cfg Config) *ParseCache {
	return &ParseCache{cache: New(cfg)}
}

// ParseKey generates the cache key of an input for an engine fingerprint
func ParseKey(fingerprint, input string) string {
	hash := sha256.Sum256([]byte(fingerprint + "|" + input))
	return "parse:" + hex.EncodeToString(hash[:16])
}

// Parse returns the cached tree of input or parses it with engine. Engines
// share cached trees only when their grammar and limits match. Rejected
// input is not cached.
func (p *ParseCache) Parse(engine *expr.Engine, input string) (mdwast.Node, error) {
	key := ParseKey(engine.Fingerprint(), input)
	val, err := p.cache.GetOrSet(key, func() (interface{}, error) {
		return engine.Parse(input)
	})
	if err != nil {
		return nil, err
	}
	node, ok := val.(mdwast.Node)
	if !ok {
		p.cache.Delete(key)
		return engine.Parse(input)
	}
	return node, nil
}

// Stats returns cache statistics
func (p *ParseCache) Stats() Stats {
	return p.cache.Stats()
}

// Clear drops all cached trees
func (p *ParseCache) Clear() {
	p.cache.Clear()
}

// Close drops all cached trees
func (p *ParseCache) Close() {
	p.cache.Close()
}
