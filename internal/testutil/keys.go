package testutil

import (
	"fmt"
	"sync"
)

// SequentialKeys generates record keys "<prefix>-0001", "<prefix>-0002", ...
//
// Unlike store.FixedGenerator, which replays a fixed list, SequentialKeys
// never runs out and can be reset, so the same scenario loaded twice gets
// identical keys.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialKeys struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequentialKeys creates a generator. An empty prefix defaults to "key".
func NewSequentialKeys(prefix string) *SequentialKeys {
	if prefix == "" {
		prefix = "key"
	}
	return &SequentialKeys{prefix: prefix}
}

// Generate returns the next key. Implements store.KeyGenerator.
func (g *SequentialKeys) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%04d", g.prefix, g.seq)
}

// Reset restarts the sequence; the next key is "<prefix>-0001".
func (g *SequentialKeys) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
