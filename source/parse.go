package source

import (
	"strings"

	"github.com/knakk/rdf"
)

// ParseLine decodes a single N-Triples line. Each input line carries
// exactly one triple, so decoding is stateless per line and a bad line
// cannot poison the lines after it.
func ParseLine(line string) (rdf.Triple, error) {
	dec := rdf.NewTripleDecoder(strings.NewReader(line), rdf.NTriples)
	return dec.Decode()
}
