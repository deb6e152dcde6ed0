// Package extractor implements the dual-pass streaming aggregation at the
// heart of shape extraction. The membership pass records class membership
// and distinct instance counts from typing triples; the constraint pass
// derives per-entity property constraints and a per-class
// property/object-type index from everything else. A statistics sweep
// over the entity summaries then yields the support evidence the shape
// builder thresholds against.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knakk/rdf"

	"github.com/c360studio/semshape/encoder"
	"github.com/c360studio/semshape/entity"
	"github.com/c360studio/semshape/metric"
	"github.com/c360studio/semshape/shape"
	"github.com/c360studio/semshape/source"
	"github.com/c360studio/semshape/vocabulary"
)

// Options configure an extraction run.
type Options struct {
	// TypePredicate is the predicate IRI asserting class membership.
	// Matching is exact string equality; predicates that merely share a
	// prefix with it are ordinary properties. Defaults to rdf:type.
	TypePredicate string

	// TrackCardinality enables raw per-property occurrence counting on
	// each entity, the evidence for max-cardinality bounds.
	TrackCardinality bool

	// ShapeBaseIRI overrides the namespace minted shape IRIs live under.
	ShapeBaseIRI string

	// ExpectedClasses and ExpectedEntities presize the aggregate
	// structures. Estimates only; they never affect results.
	ExpectedClasses  int
	ExpectedEntities int
}

func (o Options) withDefaults() Options {
	if o.TypePredicate == "" {
		o.TypePredicate = vocabulary.RDFType
	}
	return o
}

// Extractor accumulates aggregate state across the two passes. It is
// single-use: one Extractor per run, discarded wholesale on abort.
type Extractor struct {
	opts    Options
	logger  *slog.Logger
	metrics *metric.Metrics

	enc         *encoder.Encoder
	store       *entity.Store
	classCounts map[int32]int
	index       map[int32]map[int32]map[int32]struct{}
	datatypes   map[int32]struct{}
}

// New returns an Extractor presized from the options' estimates.
func New(opts Options, logger *slog.Logger, metrics *metric.Metrics) *Extractor {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		opts:        opts,
		logger:      logger,
		metrics:     metrics,
		enc:         encoder.NewWithCapacity(2 * opts.ExpectedClasses),
		store:       entity.NewStore(opts.ExpectedEntities),
		classCounts: make(map[int32]int, opts.ExpectedClasses),
		index:       make(map[int32]map[int32]map[int32]struct{}, opts.ExpectedClasses),
		datatypes:   make(map[int32]struct{}, 8),
	}
}

// Encoder exposes the symbol table shared by both passes.
func (x *Extractor) Encoder() *encoder.Encoder {
	return x.enc
}

// Store exposes the entity summaries.
func (x *Extractor) Store() *entity.Store {
	return x.store
}

// FirstPass streams typing triples into class membership: encode the
// object as a class, add it to the subject's summary, and count the
// class's distinct instances. All other triples are ignored.
func (x *Extractor) FirstPass(ctx context.Context, src *source.Source) (*source.ScanStats, error) {
	stats, err := src.Scan(ctx, func(t rdf.Triple) error {
		if t.Pred.String() != x.opts.TypePredicate {
			return nil
		}
		class := x.enc.Encode(t.Obj.String())
		if x.store.FetchOrCreate(t.Subj.String()).AddClass(class) {
			x.classCounts[class]++
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("membership pass: %w", err)
	}
	x.metrics.RecordScan(metric.PassMembership, stats.Triples, stats.Skipped)
	x.metrics.RecordAggregates(x.store.Len(), len(x.classCounts), x.enc.Len())
	return stats, nil
}

// SecondPass streams non-typing triples into property constraints and
// the class index. It must run after FirstPass has seen the complete
// source; an object's class membership has to be fully known before its
// references can be classified.
func (x *Extractor) SecondPass(ctx context.Context, src *source.Source) (*source.ScanStats, error) {
	stats, err := src.Scan(ctx, func(t rdf.Triple) error {
		x.applyConstraint(t)
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("constraint pass: %w", err)
	}
	x.metrics.RecordScan(metric.PassConstraint, stats.Triples, stats.Skipped)
	x.metrics.RecordAggregates(x.store.Len(), len(x.classCounts), x.enc.Len())
	return stats, nil
}

func (x *Extractor) applyConstraint(t rdf.Triple) {
	if t.Pred.String() == x.opts.TypePredicate {
		return
	}
	objectTypes := x.objectTypes(t.Obj)
	if len(objectTypes) == 0 {
		// Untyped reference: no type evidence, no summary, no index
		// entry, no cardinality increment.
		return
	}

	subject := x.store.FetchOrCreate(t.Subj.String())
	property := x.enc.Encode(t.Pred.String())
	for _, objectType := range objectTypes {
		subject.AddConstraint(property, objectType)
	}
	if x.opts.TrackCardinality {
		// One triple is one occurrence, however many types its object
		// carries.
		subject.BumpCardinality(property)
	}

	for class := range subject.Classes {
		x.indexAdd(class, property, objectTypes)
	}
}

// objectTypes derives the encoded object type symbols for a triple's
// object. IRI and blank node objects yield the classes recorded for them
// in the membership pass; untyped references yield nothing. Literals
// yield exactly one datatype symbol: the explicit datatype tag, the
// language-tagged string type, or the plain string fallback. A plain
// literal whose lexical form is an absolute IRI is treated as an entity
// reference instead.
func (x *Extractor) objectTypes(obj rdf.Object) []int32 {
	switch obj.Type() {
	case rdf.TermIRI, rdf.TermBlank:
		return x.referenceTypes(obj.String())
	case rdf.TermLiteral:
		lit, ok := obj.(rdf.Literal)
		if !ok {
			return nil
		}
		if lit.Lang() != "" {
			return []int32{x.datatypeSymbol(vocabulary.RDFLangString)}
		}
		if dt := lit.DataType.String(); dt != "" && dt != vocabulary.XSDString {
			return []int32{x.datatypeSymbol(dt)}
		}
		if isAbsoluteIRI(lit.String()) {
			return x.referenceTypes(lit.String())
		}
		return []int32{x.datatypeSymbol(vocabulary.XSDString)}
	}
	return nil
}

func (x *Extractor) referenceTypes(key string) []int32 {
	d, ok := x.store.Get(key)
	if !ok || len(d.Classes) == 0 {
		return nil
	}
	types := make([]int32, 0, len(d.Classes))
	for class := range d.Classes {
		types = append(types, class)
	}
	return types
}

func (x *Extractor) datatypeSymbol(iri string) int32 {
	sym := x.enc.Encode(iri)
	x.datatypes[sym] = struct{}{}
	return sym
}

func (x *Extractor) indexAdd(class, property int32, objectTypes []int32) {
	props, ok := x.index[class]
	if !ok {
		props = make(map[int32]map[int32]struct{}, 8)
		x.index[class] = props
	}
	types, ok := props[property]
	if !ok {
		types = make(map[int32]struct{}, 4)
		props[property] = types
	}
	for _, objectType := range objectTypes {
		types[objectType] = struct{}{}
	}
}

// ComputeStatistics fans the entity summaries out into per-combination
// counts: an entity with three classes and a property carrying two object
// types contributes to six buckets. It also folds each entity's raw
// property counters into the per-class cardinality maxima.
func (x *Extractor) ComputeStatistics() shape.Statistics {
	stats := shape.NewStatistics()
	x.store.Range(func(_ string, d *entity.Data) bool {
		for class := range d.Classes {
			for property, objectTypes := range d.Constraints {
				for objectType := range objectTypes {
					stats.Counts[shape.TripletKey{Class: class, Property: property, ObjectType: objectType}]++
				}
			}
			for property, n := range d.Cardinality {
				key := shape.PropertyKey{Class: class, Property: property}
				if n > stats.MaxCard[key] {
					stats.MaxCard[key] = n
				}
			}
		}
		return true
	})
	return stats
}

// Aggregates assembles the shape builder's input from the current state,
// computing statistics on the way.
func (x *Extractor) Aggregates() shape.Aggregates {
	return shape.Aggregates{
		Index:       x.index,
		ClassCounts: x.classCounts,
		Datatypes:   x.datatypes,
		Stats:       x.ComputeStatistics(),
	}
}

// isAbsoluteIRI reports whether s opens with a URI scheme and contains no
// characters an IRI cannot carry.
func isAbsoluteIRI(s string) bool {
	colon := strings.IndexByte(s, ':')
	if colon < 1 {
		return false
	}
	for i := 0; i < colon; i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	if _, err := rdf.NewIRI(s); err != nil {
		return false
	}
	return true
}
