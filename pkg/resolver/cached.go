package resolver

import (
	"bytes"
	"sync"

	"typstkit/pkg/fileid"
)

// Cached wraps another resolver with optional in-memory caches for source and
// binary results, each enabled independently. The caches are unbounded; they
// exist to avoid repeated disk or network round-trips within one process
// lifetime. Caching is an optimization only: a disabled cache simply forwards
// every call to the inner resolver. Safe for concurrent use.
type Cached struct {
	inner Resolver

	mu          sync.RWMutex
	sourceCache map[fileid.FileID]Source
	binaryCache map[fileid.FileID][]byte
}

func NewCached(inner Resolver) *Cached {
	return &Cached{inner: inner}
}

// WithSourceCache enables caching of source results.
func (c *Cached) WithSourceCache() *Cached {
	c.sourceCache = map[fileid.FileID]Source{}
	return c
}

// WithBinaryCache enables caching of binary results.
func (c *Cached) WithBinaryCache() *Cached {
	c.binaryCache = map[fileid.FileID][]byte{}
	return c
}

func (c *Cached) ResolveSource(id fileid.FileID) (Source, error) {
	if c.sourceCache != nil {
		c.mu.RLock()
		src, ok := c.sourceCache[id]
		c.mu.RUnlock()
		if ok {
			return src, nil
		}
	}

	src, err := c.inner.ResolveSource(id)
	if err != nil {
		return Source{}, err
	}
	if c.sourceCache != nil {
		c.mu.Lock()
		c.sourceCache[id] = src
		c.mu.Unlock()
	}
	return src, nil
}

func (c *Cached) ResolveBinary(id fileid.FileID) ([]byte, error) {
	if c.binaryCache != nil {
		c.mu.RLock()
		b, ok := c.binaryCache[id]
		c.mu.RUnlock()
		if ok {
			return bytes.Clone(b), nil
		}
	}

	b, err := c.inner.ResolveBinary(id)
	if err != nil {
		return nil, err
	}
	if c.binaryCache != nil {
		c.mu.Lock()
		c.binaryCache[id] = bytes.Clone(b)
		c.mu.Unlock()
	}
	return b, nil
}
