package extractor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semshape/shape"
	"github.com/c360studio/semshape/source"
	"github.com/c360studio/semshape/vocabulary"
)

const (
	exCity       = "http://example.org/City"
	exCapital    = "http://example.org/Capital"
	exPerson     = "http://example.org/Person"
	exParis      = "http://example.org/Paris"
	exVersailles = "http://example.org/Versailles"
	exAlice      = "http://example.org/alice"
	exPopulation = "http://example.org/population"
	exLivesIn    = "http://example.org/livesIn"
	exEmail      = "http://example.org/email"
	exKnows      = "http://example.org/knows"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func typing(subj, class string) string {
	return fmt.Sprintf("<%s> <%s> <%s> .", subj, vocabulary.RDFType, class)
}

func link(subj, pred, obj string) string {
	return fmt.Sprintf("<%s> <%s> <%s> .", subj, pred, obj)
}

func literal(subj, pred, value string) string {
	return fmt.Sprintf("<%s> <%s> %q .", subj, pred, value)
}

func newSource(t *testing.T, lines ...string) *source.Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.nt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return source.New([]string{path}, discardLogger())
}

func runExtraction(t *testing.T, opts Options, policy shape.Policy, lines ...string) *Result {
	t.Helper()
	x := New(opts, discardLogger(), nil)
	res, err := x.Run(context.Background(), newSource(t, lines...), policy)
	require.NoError(t, err)
	return res
}

func shapeFor(t *testing.T, shapes []shape.NodeShape, class string) shape.NodeShape {
	t.Helper()
	for _, ns := range shapes {
		if ns.TargetClass == class {
			return ns
		}
	}
	t.Fatalf("no shape targets class %s", class)
	return shape.NodeShape{}
}

func propertyFor(t *testing.T, ns shape.NodeShape, path string) shape.PropertyShape {
	t.Helper()
	for _, ps := range ns.Properties {
		if ps.Path == path {
			return ps
		}
	}
	t.Fatalf("shape %s has no property %s", ns.TargetClass, path)
	return shape.PropertyShape{}
}

func TestExtractor_Run_MultiTypedSubjectWithLiteralProperty(t *testing.T) {
	res := runExtraction(t, Options{}, shape.DefaultPolicy(),
		typing(exParis, exCity),
		typing(exParis, exCapital),
		literal(exParis, exPopulation, "2M"),
	)

	assert.Equal(t, map[string]int{exCity: 1, exCapital: 1}, res.ClassCounts)
	require.Len(t, res.Shapes, 2)

	for _, class := range []string{exCity, exCapital} {
		ns := shapeFor(t, res.Shapes, class)
		assert.Equal(t, 1, ns.Instances)
		pop := propertyFor(t, ns, exPopulation)
		require.Len(t, pop.Types, 1)
		assert.Equal(t, shape.KindDatatype, pop.Types[0].Kind)
		assert.Equal(t, vocabulary.XSDString, pop.Types[0].IRI)
		assert.InDelta(t, 1.0, pop.Types[0].Support, 1e-9)
		assert.True(t, pop.Mandatory)
	}

	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.Fingerprints, 1)
	assert.Equal(t, int64(3), res.FirstPass.Triples)
	assert.Equal(t, int64(3), res.SecondPass.Triples)
}

func TestExtractor_SecondPass_MultiTypedObjectRecordsBothTypes(t *testing.T) {
	ctx := context.Background()
	x := New(Options{}, discardLogger(), nil)
	src := newSource(t,
		typing(exVersailles, exCity),
		typing(exParis, exCity),
		typing(exParis, exCapital),
		link(exVersailles, exLivesIn, exParis),
	)

	_, err := x.FirstPass(ctx, src)
	require.NoError(t, err)
	_, err = x.SecondPass(ctx, src)
	require.NoError(t, err)

	livesIn, ok := x.Encoder().Lookup(exLivesIn)
	require.True(t, ok)
	citySym, ok := x.Encoder().Lookup(exCity)
	require.True(t, ok)
	capitalSym, ok := x.Encoder().Lookup(exCapital)
	require.True(t, ok)

	d, ok := x.Store().Get(exVersailles)
	require.True(t, ok)
	require.Len(t, d.Constraints[livesIn], 2)
	assert.Contains(t, d.Constraints[livesIn], citySym)
	assert.Contains(t, d.Constraints[livesIn], capitalSym)

	builder := shape.NewBuilder(shape.DefaultPolicy(), x.Encoder())
	city := shapeFor(t, builder.Build(x.Aggregates()), exCity)
	livesInShape := propertyFor(t, city, exLivesIn)
	require.Len(t, livesInShape.Types, 2)
	for _, tc := range livesInShape.Types {
		assert.Equal(t, shape.KindClass, tc.Kind)
		assert.InDelta(t, 0.5, tc.Support, 1e-9, "one of two City instances")
	}
}

func personEmailLines() []string {
	lines := make([]string, 0, 160)
	for i := 0; i < 100; i++ {
		subj := fmt.Sprintf("http://example.org/people/p%03d", i)
		lines = append(lines, typing(subj, exPerson))
		if i < 60 {
			lines = append(lines, literal(subj, exEmail, fmt.Sprintf("p%03d@example.org", i)))
		}
	}
	return lines
}

func TestExtractor_Run_SupportThresholdFiltersSparseProperties(t *testing.T) {
	t.Run("included as optional at threshold 0.5", func(t *testing.T) {
		res := runExtraction(t, Options{}, shape.Policy{MinSupport: 0.5, MandatoryThreshold: 1.0}, personEmailLines()...)

		person := shapeFor(t, res.Shapes, exPerson)
		assert.Equal(t, 100, person.Instances)
		email := propertyFor(t, person, exEmail)
		assert.False(t, email.Mandatory)
		require.Len(t, email.Types, 1)
		assert.InDelta(t, 0.6, email.Types[0].Support, 1e-9)
		assert.Equal(t, 60, email.Types[0].Entities)
	})

	t.Run("excluded at threshold 0.7", func(t *testing.T) {
		res := runExtraction(t, Options{}, shape.Policy{MinSupport: 0.7, MandatoryThreshold: 1.0}, personEmailLines()...)

		person := shapeFor(t, res.Shapes, exPerson)
		assert.Empty(t, person.Properties)

		// The dropped combination still shows up in the stat rows.
		require.Len(t, res.Stats, 1)
		assert.False(t, res.Stats[0].Included)
	})
}

func TestExtractor_SecondPass_UntypedObjectContributesNothing(t *testing.T) {
	ctx := context.Background()
	x := New(Options{}, discardLogger(), nil)
	src := newSource(t,
		typing(exAlice, exPerson),
		link(exAlice, exKnows, "http://example.org/ghost"),
	)

	_, err := x.FirstPass(ctx, src)
	require.NoError(t, err)
	_, err = x.SecondPass(ctx, src)
	require.NoError(t, err)

	alice, ok := x.Store().Get(exAlice)
	require.True(t, ok)
	assert.Empty(t, alice.Constraints)

	_, ok = x.Store().Get("http://example.org/ghost")
	assert.False(t, ok, "untyped object never gets a summary")

	agg := x.Aggregates()
	assert.Empty(t, agg.Index, "no type evidence reaches the class index")
	assert.Empty(t, agg.Stats.Counts)

	builder := shape.NewBuilder(shape.DefaultPolicy(), x.Encoder())
	assert.Empty(t, builder.Build(agg))
}

func TestExtractor_FirstPass_DuplicateTypingCountsDistinctEntities(t *testing.T) {
	ctx := context.Background()
	x := New(Options{}, discardLogger(), nil)
	src := newSource(t,
		typing(exParis, exCity),
		typing(exParis, exCity),
		typing(exVersailles, exCity),
	)

	_, err := x.FirstPass(ctx, src)
	require.NoError(t, err)

	citySym, ok := x.Encoder().Lookup(exCity)
	require.True(t, ok)
	assert.Equal(t, 2, x.classCounts[citySym])
}

func TestExtractor_SecondPass_DuplicateLinesIdempotentSetsRawCounts(t *testing.T) {
	ctx := context.Background()
	x := New(Options{TrackCardinality: true}, discardLogger(), nil)
	src := newSource(t,
		typing(exParis, exCity),
		literal(exParis, exPopulation, "2M"),
		literal(exParis, exPopulation, "2M"),
	)

	_, err := x.FirstPass(ctx, src)
	require.NoError(t, err)
	_, err = x.SecondPass(ctx, src)
	require.NoError(t, err)

	popSym, ok := x.Encoder().Lookup(exPopulation)
	require.True(t, ok)
	paris, ok := x.Store().Get(exParis)
	require.True(t, ok)

	assert.Len(t, paris.Constraints[popSym], 1, "constraint set is idempotent")
	assert.Equal(t, 2, paris.Cardinality[popSym], "cardinality counts raw occurrences")

	builder := shape.NewBuilder(shape.DefaultPolicy(), x.Encoder())
	city := shapeFor(t, builder.Build(x.Aggregates()), exCity)
	assert.Equal(t, 2, propertyFor(t, city, exPopulation).MaxCount)
}

func TestExtractor_SecondPass_OneCardinalityIncrementPerTriple(t *testing.T) {
	ctx := context.Background()
	x := New(Options{TrackCardinality: true}, discardLogger(), nil)
	src := newSource(t,
		typing(exParis, exCity),
		typing(exParis, exCapital),
		typing(exVersailles, exCity),
		link(exVersailles, exLivesIn, exParis),
	)

	_, err := x.FirstPass(ctx, src)
	require.NoError(t, err)
	_, err = x.SecondPass(ctx, src)
	require.NoError(t, err)

	livesIn, ok := x.Encoder().Lookup(exLivesIn)
	require.True(t, ok)
	versailles, ok := x.Store().Get(exVersailles)
	require.True(t, ok)

	assert.Len(t, versailles.Constraints[livesIn], 2, "both object types recorded")
	assert.Equal(t, 1, versailles.Cardinality[livesIn], "one triple, one increment")
}

func TestExtractor_FirstPass_TypePredicateMatchesExactly(t *testing.T) {
	res := runExtraction(t, Options{}, shape.DefaultPolicy(),
		typing(exParis, exCity),
		link(exParis, vocabulary.RDFType+"Of", exCapital),
	)

	assert.Equal(t, map[string]int{exCity: 1}, res.ClassCounts,
		"a predicate sharing the typing prefix is an ordinary property")
}

func TestExtractor_ObjectTypeDerivation(t *testing.T) {
	ctx := context.Background()
	x := New(Options{}, discardLogger(), nil)
	pred := "http://example.org/value"
	src := newSource(t,
		typing(exParis, exCity),
		`<http://example.org/d1> <`+pred+`> "ciao"@it .`,
		`<http://example.org/d2> <`+pred+`> "2228409"^^<`+vocabulary.XSDInteger+`> .`,
		`<http://example.org/d3> <`+pred+`> "2M" .`,
		`<http://example.org/d4> <`+pred+`> "`+exParis+`" .`,
		`<http://example.org/d5> <`+pred+`> "wd:Q90" .`,
		`<http://example.org/d6> <`+pred+`> "12:30" .`,
	)

	_, err := x.FirstPass(ctx, src)
	require.NoError(t, err)
	_, err = x.SecondPass(ctx, src)
	require.NoError(t, err)

	predSym, ok := x.Encoder().Lookup(pred)
	require.True(t, ok)

	expectType := func(subject, typeIRI string) {
		t.Helper()
		typeSym, ok := x.Encoder().Lookup(typeIRI)
		require.True(t, ok, typeIRI)
		d, ok := x.Store().Get(subject)
		require.True(t, ok, subject)
		assert.Contains(t, d.Constraints[predSym], typeSym, "%s should carry %s", subject, typeIRI)
		assert.Len(t, d.Constraints[predSym], 1)
	}

	expectType("http://example.org/d1", vocabulary.RDFLangString)
	expectType("http://example.org/d2", vocabulary.XSDInteger)
	expectType("http://example.org/d3", vocabulary.XSDString)
	expectType("http://example.org/d4", exCity)
	expectType("http://example.org/d6", vocabulary.XSDString)

	_, ok = x.Store().Get("http://example.org/d5")
	assert.False(t, ok, "IRI-like literal with no typed target yields no constraint")
}

func TestExtractor_SecondPass_BlankNodesAreEntities(t *testing.T) {
	res := runExtraction(t, Options{}, shape.DefaultPolicy(),
		"_:home <"+vocabulary.RDFType+"> <"+exCity+"> .",
		typing(exAlice, exPerson),
		"<"+exAlice+"> <http://example.org/livesAt> _:home .",
	)

	person := shapeFor(t, res.Shapes, exPerson)
	livesAt := propertyFor(t, person, "http://example.org/livesAt")
	require.Len(t, livesAt.Types, 1)
	assert.Equal(t, shape.KindClass, livesAt.Types[0].Kind)
	assert.Equal(t, exCity, livesAt.Types[0].IRI)
}

func TestExtractor_Run_LineOrderIndependence(t *testing.T) {
	lines := []string{
		typing(exParis, exCity),
		typing(exParis, exCapital),
		typing(exVersailles, exCity),
		link(exVersailles, exLivesIn, exParis),
		literal(exParis, exPopulation, "2M"),
		literal(exVersailles, exPopulation, "85K"),
	}
	reversed := make([]string, len(lines))
	for i, line := range lines {
		reversed[len(lines)-1-i] = line
	}
	interleaved := []string{lines[3], lines[0], lines[5], lines[2], lines[4], lines[1]}

	opts := Options{TrackCardinality: true}
	base := runExtraction(t, opts, shape.DefaultPolicy(), lines...)
	for name, variant := range map[string][]string{"reversed": reversed, "interleaved": interleaved} {
		res := runExtraction(t, opts, shape.DefaultPolicy(), variant...)
		assert.Equal(t, base.Shapes, res.Shapes, name)
		assert.Equal(t, base.Stats, res.Stats, name)
		assert.Equal(t, base.ClassCounts, res.ClassCounts, name)
	}
}

func TestExtractor_Run_SupportStaysWithinBounds(t *testing.T) {
	lines := append(personEmailLines(),
		typing(exParis, exCity),
		typing(exParis, exCapital),
		typing(exVersailles, exCity),
		link(exVersailles, exLivesIn, exParis),
		literal(exParis, exPopulation, "2M"),
	)

	res := runExtraction(t, Options{}, shape.DefaultPolicy(), lines...)
	require.NotEmpty(t, res.Stats)
	for _, row := range res.Stats {
		assert.Greater(t, row.Support, 0.0)
		assert.LessOrEqual(t, row.Support, 1.0)
		assert.LessOrEqual(t, row.Entities, row.ClassInstances)
	}
}

func TestExtractor_Run_MalformedLinesDoNotAbort(t *testing.T) {
	res := runExtraction(t, Options{}, shape.DefaultPolicy(),
		typing(exParis, exCity),
		"geometry is not a triple",
		literal(exParis, exPopulation, "2M"),
		"<http://example.org/half> <http://example.org/open>",
	)

	city := shapeFor(t, res.Shapes, exCity)
	assert.Len(t, city.Properties, 1)
	assert.Equal(t, int64(2), res.FirstPass.Skipped)
	assert.Equal(t, int64(2), res.SecondPass.Skipped)
	assert.Equal(t, int64(4), res.ParseErrors(), "both passes see the same bad lines")
}

func TestExtractor_Run_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	x := New(Options{}, discardLogger(), nil)
	_, err := x.Run(ctx, newSource(t, typing(exParis, exCity)), shape.DefaultPolicy())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractor_Run_RejectsInvalidPolicy(t *testing.T) {
	x := New(Options{}, discardLogger(), nil)
	_, err := x.Run(context.Background(), newSource(t, typing(exParis, exCity)), shape.Policy{MinSupport: 2})
	assert.Error(t, err)
}

func TestExtractor_Run_PresizingDoesNotChangeResults(t *testing.T) {
	lines := personEmailLines()
	small := runExtraction(t, Options{}, shape.DefaultPolicy(), lines...)
	big := runExtraction(t, Options{ExpectedClasses: 512, ExpectedEntities: 4096}, shape.DefaultPolicy(), lines...)

	assert.Equal(t, small.Shapes, big.Shapes)
	assert.Equal(t, small.Stats, big.Stats)
}

func TestExtractor_Run_CustomTypePredicate(t *testing.T) {
	isA := "http://example.org/isA"
	res := runExtraction(t, Options{TypePredicate: isA}, shape.DefaultPolicy(),
		link(exParis, isA, exCity),
		link(exCapital, isA, exCity),
		typing(exParis, exCapital), // rdf:type is an ordinary property here
		literal(exParis, exPopulation, "2M"),
	)

	require.Equal(t, map[string]int{exCity: 2}, res.ClassCounts)
	city := shapeFor(t, res.Shapes, exCity)
	demoted := propertyFor(t, city, vocabulary.RDFType)
	require.Len(t, demoted.Types, 1)
	assert.Equal(t, shape.KindClass, demoted.Types[0].Kind)
	assert.Equal(t, exCity, demoted.Types[0].IRI)
	propertyFor(t, city, exPopulation)
}

func TestIsAbsoluteIRI(t *testing.T) {
	assert.True(t, isAbsoluteIRI("http://example.org/Paris"))
	assert.True(t, isAbsoluteIRI("urn:isbn:0451450523"))
	assert.True(t, isAbsoluteIRI("wd:Q90"))
	assert.False(t, isAbsoluteIRI("2M"))
	assert.False(t, isAbsoluteIRI("12:30"))
	assert.False(t, isAbsoluteIRI(":anonymous"))
	assert.False(t, isAbsoluteIRI("has space:x"))
	assert.False(t, isAbsoluteIRI(""))
}
