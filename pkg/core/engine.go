/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Decode engine for protodec. Runs captures through a bounded worker pool,
caches results in the store, traces each job with OpenTelemetry, notifies reporters and
merges decoded messages into a recovered schema.
*/

package core

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/protodec/pkg/capture"
	"github.com/kleascm/protodec/pkg/config"
	"github.com/kleascm/protodec/pkg/inference"
	"github.com/kleascm/protodec/pkg/logging"
	"github.com/kleascm/protodec/pkg/scanner"
	"github.com/kleascm/protodec/pkg/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// EngineConfig controls an Engine
type EngineConfig struct {
	Workers    int
	Mode       Mode
	Scan       scanner.Options
	Shards     int
	CorpusSize int

	InferenceMode string
	Package       string
}

// DefaultEngineConfig decodes whole captures on GOMAXPROCS workers.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Workers:       runtime.GOMAXPROCS(0),
		Mode:          ModeDecode,
		CorpusSize:    10000,
		InferenceMode: inference.ModeAuto,
		Package:       inference.DefaultPackage,
	}
}

// EngineConfigFrom derives an EngineConfig from loaded configuration.
func EngineConfigFrom(cfg *config.Config) (EngineConfig, error) {
	mode, err := ParseMode(cfg.Engine.Mode)
	if err != nil {
		return EngineConfig{}, err
	}
	if cfg.Scan.All && mode == ModeScan {
		mode = ModeScanAll
	}
	return EngineConfig{
		Workers:       cfg.Engine.Workers,
		Mode:          mode,
		Scan:          scanner.Options{MinSize: cfg.Scan.MinSize},
		Shards:        cfg.Scan.Shards,
		CorpusSize:    cfg.Engine.CorpusSize,
		InferenceMode: cfg.Inference.Mode,
		Package:       cfg.Inference.Package,
	}, nil
}

// Option customizes an Engine
type Option func(*Engine)

// WithStore caches results in s.
func WithStore(s *store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithReporter adds a reporter.
func WithReporter(r Reporter) Option {
	return func(e *Engine) { e.reporters = append(e.reporters, r) }
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTracer sets the tracer used for job spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// Engine decodes captures
type Engine struct {
	config    EngineConfig
	corpus    *Corpus
	stats     *Stats
	store     *store.Store
	reporters []Reporter
	logger    *logging.Logger
	tracer    trace.Tracer
	infer     inference.InferenceEngine

	pool chan *Worker
}

// NewEngine validates cfg and builds an engine with its worker pool.
func NewEngine(cfg EngineConfig, opts ...Option) (*Engine, error) {
	if cfg.Workers < 1 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeDecode
	}
	if cfg.InferenceMode == "" {
		cfg.InferenceMode = inference.ModeAuto
	}
	infer := inference.NewEngine(cfg.InferenceMode, cfg.Package)
	if infer == nil {
		return nil, fmt.Errorf("unknown inference mode %q", cfg.InferenceMode)
	}

	e := &Engine{
		config: cfg,
		corpus: NewCorpus(cfg.CorpusSize),
		stats:  NewStats(),
		infer:  infer,
		pool:   make(chan *Worker, cfg.Workers),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.Default()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("protodec/core")
	}
	for i := 0; i < cfg.Workers; i++ {
		e.pool <- NewWorker(i, cfg.Scan, cfg.Shards)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() EngineConfig { return e.config }

// Stats returns current counters.
func (e *Engine) Stats() StatsSnapshot {
	snap := e.stats.Snapshot()
	snap.Unique = int64(e.corpus.Size())
	return snap
}

// Seen returns an earlier capture with the same content, or nil.
func (e *Engine) Seen(digest string) *capture.Capture { return e.corpus.Get(digest) }

// Run decodes every capture using the engine's mode. Results keep input order.
// Per-capture failures are reported in each Result; only cancellation fails the run.
func (e *Engine) Run(ctx context.Context, captures []*capture.Capture) ([]*Result, error) {
	return e.RunMode(ctx, captures, e.config.Mode)
}

// RunMode is Run with an explicit decode mode.
func (e *Engine) RunMode(ctx context.Context, captures []*capture.Capture, mode Mode) ([]*Result, error) {
	results := make([]*Result, len(captures))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cap(e.pool))
	for i, c := range captures {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r, err := e.Process(gctx, c, mode)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := e.Stats()
	e.logger.LogStats(snap.Captures, snap.Decoded, snap.Failures, map[string]interface{}{
		"unique":     snap.Unique,
		"spans":      snap.Spans,
		"cache_hits": snap.CacheHits,
	})
	return results, nil
}

// Process decodes one capture. The error is non-nil only when ctx is done.
func (e *Engine) Process(ctx context.Context, c *capture.Capture, mode Mode) (*Result, error) {
	if mode == "" {
		mode = e.config.Mode
	}
	ctx, span := e.tracer.Start(ctx, "protodec.decode", trace.WithAttributes(
		attribute.String("capture.id", c.ID.String()),
		attribute.String("capture.digest", c.Digest),
		attribute.Int("capture.size", c.Size()),
		attribute.String("decode.mode", string(mode)),
	))
	defer span.End()

	e.stats.addCapture()
	e.corpus.Add(c)

	job := &Job{ID: uuid.NewString(), Capture: c, Mode: mode}
	key := e.cacheKey(mode, c.Digest)

	result, err := e.cached(ctx, key, job)
	if err != nil {
		return nil, err
	}
	if result == nil {
		w := <-e.pool
		result = w.Execute(ctx, job)
		e.pool <- w

		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		e.remember(ctx, key, result)
	}

	span.SetAttributes(
		attribute.Int("decode.spans", len(result.Spans)),
		attribute.Bool("decode.cached", result.Cached),
	)
	if result.Err != nil {
		e.stats.addFailure()
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Error)
		for _, r := range e.reporters {
			r.OnCaptureFailed(result)
		}
		return result, nil
	}

	e.stats.addDecoded()
	e.stats.addSpans(len(result.Spans))
	for _, r := range e.reporters {
		r.OnCaptureDecoded(result)
	}
	return result, nil
}

func (e *Engine) cacheKey(mode Mode, digest string) string {
	m := string(mode)
	if mode != ModeDecode && e.config.Scan.MinSize > 1 {
		m = fmt.Sprintf("%s@%d", mode, e.config.Scan.MinSize)
	}
	return store.Key(m, digest)
}

// cached rebuilds a result from the store. It returns nil on a miss.
func (e *Engine) cached(ctx context.Context, key string, job *Job) (*Result, error) {
	if e.store == nil {
		return nil, nil
	}
	start := time.Now()
	rec, err := e.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warning("Result store read failed", map[string]interface{}{"key": key, "error": err.Error()})
		return nil, nil
	}

	c := job.Capture
	result := &Result{
		JobID:     job.ID,
		CaptureID: c.ID.String(),
		Origin:    c.Origin,
		Digest:    c.Digest,
		Size:      c.Size(),
		Mode:      job.Mode,
		Cached:    true,
	}
	if rec.Error != "" {
		result.Err = errors.New(rec.Error)
		result.Error = rec.Error
	} else if err := result.fill(c.Data, rec.Spans); err != nil {
		// Stale record; decode again.
		return nil, nil
	} else {
		result.Dump = rec.Dump
	}
	result.Duration = time.Since(start)
	e.stats.addCacheHit()
	return result, nil
}

func (e *Engine) remember(ctx context.Context, key string, r *Result) {
	if e.store == nil {
		return
	}
	rec := &store.Record{
		CaptureID: r.CaptureID,
		Mode:      string(r.Mode),
		Spans:     r.Spans,
		Dump:      r.Dump,
		Error:     r.Error,
	}
	if err := e.store.Put(ctx, key, rec); err != nil {
		e.logger.Warning("Result store write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

// Infer recovers a schema from raw message samples.
func (e *Engine) Infer(samples [][]byte) (*inference.Schema, error) {
	s, err := e.infer.InferStructure(samples)
	if err != nil {
		return nil, err
	}
	e.logger.LogSchema(e.infer.Format(), len(samples), s.Messages(), nil)
	return s, nil
}

// InferAll merges every decoded message in results into one schema.
func (e *Engine) InferAll(results []*Result) (*inference.Schema, error) {
	var samples [][]byte
	for _, r := range results {
		if r == nil || !r.OK() {
			continue
		}
		samples = append(samples, r.Payloads...)
	}
	if len(samples) == 0 {
		return nil, inference.ErrNoSamples
	}
	return e.Infer(samples)
}
