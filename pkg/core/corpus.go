/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: corpus.go
Description: Thread-safe set of captures keyed by digest. Keeps insertion order and evicts
the oldest entries once the configured maximum is reached. Its size is the count of
distinct captures an engine has seen.
*/

package core

import (
	"sync"

	"github.com/kleascm/protodec/pkg/capture"
)

// Corpus holds the captures seen by an engine
type Corpus struct {
	mu      sync.RWMutex
	byHash  map[string]*capture.Capture
	order   []string
	maxSize int
}

// NewCorpus creates a corpus bounded to maxSize captures. maxSize <= 0 means 10000.
func NewCorpus(maxSize int) *Corpus {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &Corpus{
		byHash:  make(map[string]*capture.Capture),
		maxSize: maxSize,
	}
}

// Add stores c unless a capture with the same digest exists.
// It returns the stored capture and whether c was new.
func (c *Corpus) Add(cp *capture.Capture) (*capture.Capture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.byHash[cp.Digest]; ok {
		return existing, false
	}
	for len(c.order) >= c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.byHash, oldest)
	}
	c.byHash[cp.Digest] = cp
	c.order = append(c.order, cp.Digest)
	return cp, true
}

// Get returns the capture with the given digest, or nil.
func (c *Corpus) Get(digest string) *capture.Capture {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byHash[digest]
}

// Size returns the number of captures held.
func (c *Corpus) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
