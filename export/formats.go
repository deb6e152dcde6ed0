package export

import (
	"fmt"
	"sort"
	"strings"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatTurtle: {
		Name:        FormatTurtle,
		MIMEType:    "text/turtle",
		Extension:   ".ttl",
		Description: "Turtle - Terse RDF Triple Language",
	},
	FormatNTriples: {
		Name:        FormatNTriples,
		MIMEType:    "application/n-triples",
		Extension:   ".nt",
		Description: "N-Triples - Line-based RDF format",
	},
	FormatJSONLD: {
		Name:        FormatJSONLD,
		MIMEType:    "application/ld+json",
		Extension:   ".jsonld",
		Description: "JSON-LD - JSON for Linked Data",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// ParseFormat resolves a format name from user input, accepting common
// aliases and file extensions.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "turtle", "ttl":
		return FormatTurtle, nil
	case "ntriples", "n-triples", "nt":
		return FormatNTriples, nil
	case "jsonld", "json-ld":
		return FormatJSONLD, nil
	default:
		return "", fmt.Errorf("unknown export format: %s", s)
	}
}

// turtleWriter accumulates Turtle output under a prefix table.
type turtleWriter struct {
	prefixes map[string]string
	sb       strings.Builder
}

func newTurtleWriter(prefixes map[string]string) *turtleWriter {
	return &turtleWriter{prefixes: prefixes}
}

// writePrefixes writes the prefix declarations in sorted order so output
// is reproducible.
func (w *turtleWriter) writePrefixes() {
	keys := make([]string, 0, len(w.prefixes))
	for k := range w.prefixes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, prefix := range keys {
		fmt.Fprintf(&w.sb, "@prefix %s: <%s> .\n", prefix, w.prefixes[prefix])
	}
	w.sb.WriteString("\n")
}

// writeSubject emits a subject block: the subject IRI on its own line,
// then the items joined as a predicate-object list.
func (w *turtleWriter) writeSubject(iri string, items []string) {
	fmt.Fprintf(&w.sb, "<%s>\n", iri)
	w.sb.WriteString("    " + strings.Join(items, " ;\n    ") + " .\n\n")
}

// ref compacts an IRI to a prefixed name when a declared namespace
// matches and the local part is a plain name; otherwise it returns the
// bracketed full form.
func (w *turtleWriter) ref(iri string) string {
	for prefix, ns := range w.prefixes {
		if local, ok := strings.CutPrefix(iri, ns); ok && isPlainLocalName(local) {
			return prefix + ":" + local
		}
	}
	return "<" + iri + ">"
}

func (w *turtleWriter) String() string {
	return w.sb.String()
}

func isPlainLocalName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

// ntriplesWriter accumulates N-Triples output and mints document-unique
// blank node labels.
type ntriplesWriter struct {
	sb     strings.Builder
	blanks int
}

// writeTriple writes a single triple from already rendered terms.
func (w *ntriplesWriter) writeTriple(subject, predicate, object string) {
	fmt.Fprintf(&w.sb, "%s %s %s .\n", subject, predicate, object)
}

func (w *ntriplesWriter) nextBlank() string {
	w.blanks++
	return fmt.Sprintf("_:b%d", w.blanks)
}

func (w *ntriplesWriter) String() string {
	return w.sb.String()
}
