// Package reconcile runs the standardize, group, predict and score stages
// over one or many sets of directory exports.
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/provdir/internal/accuracy"
	"github.com/sells-group/provdir/internal/consensus"
	"github.com/sells-group/provdir/internal/match"
	"github.com/sells-group/provdir/internal/model"
	"github.com/sells-group/provdir/internal/standardize"
)

// DefaultConcurrency bounds RunBatch when no limit is configured.
const DefaultConcurrency = 4

// SourceRaw is everything one directory returned for a search.
type SourceRaw struct {
	Source string
	Raws   []standardize.Raw
}

// Pipeline wires the four reconciliation stages. It holds no per-run state
// and is safe for concurrent use.
type Pipeline struct {
	standardizer *standardize.Standardizer
	matcher      *match.Matcher
	predictor    *consensus.Predictor
	scorer       *accuracy.Scorer
	concurrency  int
	runID        func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMatcher replaces the default matcher, which has no geocoder.
func WithMatcher(m *match.Matcher) Option {
	return func(p *Pipeline) {
		p.matcher = m
	}
}

// WithNow fixes the retrieval time and the consensus reference date.
func WithNow(t time.Time) Option {
	return func(p *Pipeline) {
		p.standardizer.WithNow(t)
		p.predictor.WithNow(t)
	}
}

// WithConcurrency bounds the number of parallel runs in RunBatch.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		standardizer: standardize.New(),
		matcher:      match.New(),
		predictor:    consensus.New(),
		scorer:       accuracy.New(),
		concurrency:  DefaultConcurrency,
		runID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Standardize flattens every input into canonical records, sources in
// order.
func (p *Pipeline) Standardize(inputs []SourceRaw) []model.Record {
	var records []model.Record
	for _, in := range inputs {
		records = append(records, p.standardizer.StandardizeAll(in.Source, in.Raws)...)
	}
	return records
}

// Run reconciles one set of exports into scored groups with their
// consensus. A group whose consensus cannot be built is logged and left
// out; the rest of the run continues.
func (p *Pipeline) Run(ctx context.Context, inputs []SourceRaw) ([]model.Result, error) {
	log := zap.L().With(zap.String("run_id", p.runID()))
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "reconcile: run")
	}

	records := p.Standardize(inputs)
	log.Debug("reconcile: standardized", zap.Int("sources", len(inputs)), zap.Int("records", len(records)))

	groups := p.matcher.Group(ctx, records)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "reconcile: run")
	}

	results := make([]model.Result, 0, len(groups))
	for i, g := range groups {
		cons, err := p.predictor.Predict(g)
		if err != nil {
			log.Warn("reconcile: skipping group", zap.Int("group", i), zap.Error(err))
			continue
		}
		results = append(results, model.Result{
			Members:   p.scorer.Score(g, cons),
			Consensus: cons,
		})
	}

	log.Info("reconcile: run complete",
		zap.Int("records", len(records)),
		zap.Int("groups", len(groups)),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// RunBatch runs independent reconciliations in parallel. Results keep the
// order of batches. The first failing run cancels the rest.
func (p *Pipeline) RunBatch(ctx context.Context, batches [][]SourceRaw) ([][]model.Result, error) {
	out := make([][]model.Result, len(batches))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, batch := range batches {
		g.Go(func() error {
			res, err := p.Run(gCtx, batch)
			if err != nil {
				return eris.Wrapf(err, "reconcile: batch %d", i)
			}
			out[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
