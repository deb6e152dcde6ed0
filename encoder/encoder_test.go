package encoder

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoder_Encode_DensePacking(t *testing.T) {
	e := New()

	a := e.Encode("http://example.org/City")
	b := e.Encode("http://example.org/Capital")
	c := e.Encode("http://example.org/population")

	assert.Equal(t, int32(0), a)
	assert.Equal(t, int32(1), b)
	assert.Equal(t, int32(2), c)
	assert.Equal(t, 3, e.Len())
}

func TestEncoder_Encode_Idempotent(t *testing.T) {
	e := New()

	first := e.Encode("http://example.org/City")
	second := e.Encode("http://example.org/City")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, e.Len())
}

func TestEncoder_Decode_RoundTrip(t *testing.T) {
	e := NewWithCapacity(16)

	texts := []string{
		"http://example.org/City",
		"http://www.w3.org/2001/XMLSchema#string",
		"_:b42",
		"http://example.org/City", // duplicate must not disturb the table
	}
	for _, text := range texts {
		sym := e.Encode(text)
		assert.Equal(t, text, e.Decode(sym))
	}
	assert.Equal(t, 3, e.Len())
}

func TestEncoder_Decode_PanicsOnUnissuedSymbol(t *testing.T) {
	e := New()
	e.Encode("http://example.org/City")

	assert.Panics(t, func() { e.Decode(7) })
	assert.Panics(t, func() { e.Decode(-1) })
}

func TestEncoder_Lookup_DoesNotAllocate(t *testing.T) {
	e := New()
	sym := e.Encode("http://example.org/City")

	got, ok := e.Lookup("http://example.org/City")
	require.True(t, ok)
	assert.Equal(t, sym, got)

	_, ok = e.Lookup("http://example.org/Country")
	assert.False(t, ok)
	assert.Equal(t, 1, e.Len())
}

func TestEncoder_Encode_ConcurrentCallersAgree(t *testing.T) {
	e := New()

	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	results := make([][]int32, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			results[w] = make([]int32, perWorker)
			for i := 0; i < perWorker; i++ {
				results[w][i] = e.Encode(fmt.Sprintf("http://example.org/p%d", i))
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, perWorker, e.Len())
	for w := 1; w < workers; w++ {
		assert.Equal(t, results[0], results[w])
	}
	for i := 0; i < perWorker; i++ {
		assert.Equal(t, fmt.Sprintf("http://example.org/p%d", i), e.Decode(results[0][i]))
	}
}
