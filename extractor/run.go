package extractor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/semshape/shape"
	"github.com/c360studio/semshape/source"
)

// Timing records how long each pipeline phase took.
type Timing struct {
	FirstPass  time.Duration `json:"first_pass"`
	SecondPass time.Duration `json:"second_pass"`
	Statistics time.Duration `json:"statistics"`
	Build      time.Duration `json:"build"`
	Total      time.Duration `json:"total"`
}

// Result is everything one completed extraction run produced.
type Result struct {
	RunID         string            `json:"run_id"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    time.Time         `json:"finished_at"`
	TypePredicate string            `json:"type_predicate"`
	Inputs        []string          `json:"inputs"`
	Fingerprints  map[string]string `json:"fingerprints,omitempty"`
	Policy        shape.Policy      `json:"policy"`

	Shapes      []shape.NodeShape `json:"shapes"`
	Stats       []shape.StatRow   `json:"stats"`
	ClassCounts map[string]int    `json:"class_counts"`
	Entities    int               `json:"entities"`

	FirstPass  *source.ScanStats `json:"first_pass"`
	SecondPass *source.ScanStats `json:"second_pass"`
	Timing     Timing            `json:"timing"`
}

// ParseErrors returns the total number of lines skipped across both
// passes.
func (r *Result) ParseErrors() int64 {
	var n int64
	if r.FirstPass != nil {
		n += r.FirstPass.Skipped
	}
	if r.SecondPass != nil {
		n += r.SecondPass.Skipped
	}
	return n
}

// Run executes the complete pipeline over src: membership pass, phase
// barrier, constraint pass, statistics, shape construction. The two scans
// must see the same source content; cancellation between lines aborts the
// run and the Extractor's partial state is discarded with it.
func (x *Extractor) Run(ctx context.Context, src *source.Source, policy shape.Policy) (*Result, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	res := &Result{
		RunID:         uuid.NewString(),
		StartedAt:     time.Now(),
		TypePredicate: x.opts.TypePredicate,
		Inputs:        src.Paths(),
		Policy:        policy,
	}
	x.logger.Info("Extraction starting",
		"run_id", res.RunID,
		"inputs", len(res.Inputs),
		"type_predicate", x.opts.TypePredicate,
		"cardinality", x.opts.TrackCardinality)

	phase := time.Now()
	first, err := x.FirstPass(ctx, src)
	if err != nil {
		return nil, err
	}
	res.FirstPass = first
	res.Timing.FirstPass = time.Since(phase)
	x.metrics.RecordPhase("first_pass", res.Timing.FirstPass)
	x.logger.Info("Membership pass complete",
		"triples", first.Triples,
		"skipped", first.Skipped,
		"entities", x.store.Len(),
		"classes", len(x.classCounts),
		"elapsed", res.Timing.FirstPass)

	phase = time.Now()
	second, err := x.SecondPass(ctx, src)
	if err != nil {
		return nil, err
	}
	res.SecondPass = second
	res.Timing.SecondPass = time.Since(phase)
	x.metrics.RecordPhase("second_pass", res.Timing.SecondPass)
	x.logger.Info("Constraint pass complete",
		"triples", second.Triples,
		"skipped", second.Skipped,
		"entities", x.store.Len(),
		"symbols", x.enc.Len(),
		"elapsed", res.Timing.SecondPass)

	phase = time.Now()
	agg := x.Aggregates()
	res.Timing.Statistics = time.Since(phase)
	x.metrics.RecordPhase("statistics", res.Timing.Statistics)
	x.logger.Info("Statistics computed",
		"combinations", len(agg.Stats.Counts),
		"elapsed", res.Timing.Statistics)

	phase = time.Now()
	builder := shape.NewBuilder(policy, x.enc)
	if x.opts.ShapeBaseIRI != "" {
		builder.BaseIRI = x.opts.ShapeBaseIRI
	}
	res.Shapes = builder.Build(agg)
	res.Stats = builder.StatRows(agg)
	res.Timing.Build = time.Since(phase)
	x.metrics.RecordShapes(len(res.Shapes))
	x.metrics.RecordPhase("build", res.Timing.Build)

	res.ClassCounts = make(map[string]int, len(x.classCounts))
	for class, n := range x.classCounts {
		res.ClassCounts[x.enc.Decode(class)] = n
	}
	res.Entities = x.store.Len()
	res.Fingerprints = src.Fingerprints()
	res.FinishedAt = time.Now()
	res.Timing.Total = res.FinishedAt.Sub(res.StartedAt)
	x.logger.Info("Shape construction complete",
		"shapes", len(res.Shapes),
		"stat_rows", len(res.Stats),
		"elapsed", res.Timing.Total)
	return res, nil
}
