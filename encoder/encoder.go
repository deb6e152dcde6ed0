// Package encoder provides a dense bidirectional mapping between textual
// identifiers (class, property, and datatype IRIs) and int32 symbols.
//
// Aggregate structures built during extraction store symbols instead of
// strings, which keeps per-entity summaries tractable at graph scale.
// Symbols are issued strictly increasing from zero with no gaps, so a
// symbol doubles as an index into the label table. Entity identities are
// deliberately not encoded; they are one-shot map keys, unlike the bounded
// vocabulary of classes and properties.
package encoder

import (
	"fmt"
	"sync"
)

// Encoder maps textual identifiers to dense int32 symbols and back.
// It is safe for concurrent use; parallel scan shards share one Encoder
// so that symbols agree across shards.
type Encoder struct {
	mu      sync.RWMutex
	symbols map[string]int32
	labels  []string
}

// New returns an empty Encoder.
func New() *Encoder {
	return NewWithCapacity(0)
}

// NewWithCapacity returns an Encoder presized for the expected number of
// distinct identifiers. The capacity is a sizing hint only.
func NewWithCapacity(expected int) *Encoder {
	if expected < 0 {
		expected = 0
	}
	return &Encoder{
		symbols: make(map[string]int32, expected),
		labels:  make([]string, 0, expected),
	}
}

// Encode returns the symbol for text, allocating the next symbol on first
// sight. Repeated calls with the same text return the same symbol.
func (e *Encoder) Encode(text string) int32 {
	e.mu.RLock()
	sym, ok := e.symbols[text]
	e.mu.RUnlock()
	if ok {
		return sym
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// Another goroutine may have allocated between the read unlock and
	// the write lock.
	if sym, ok := e.symbols[text]; ok {
		return sym
	}
	sym = int32(len(e.labels))
	e.symbols[text] = sym
	e.labels = append(e.labels, text)
	return sym
}

// Decode returns the text a symbol was issued for. Every symbol held by a
// downstream structure originates from Encode, so an unknown symbol is a
// programming defect and Decode panics rather than returning an error.
func (e *Encoder) Decode(sym int32) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if sym < 0 || int(sym) >= len(e.labels) {
		panic(fmt.Sprintf("encoder: decode of unissued symbol %d (issued %d)", sym, len(e.labels)))
	}
	return e.labels[sym]
}

// Lookup returns the symbol for text without allocating one.
func (e *Encoder) Lookup(text string) (int32, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sym, ok := e.symbols[text]
	return sym, ok
}

// Len returns the number of symbols issued so far.
func (e *Encoder) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.labels)
}
