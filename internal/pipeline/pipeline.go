package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/climate-report/internal/domain"
	"github.com/couchcryptid/climate-report/internal/observability"
)

// ErrNoUsableInput is returned by Run when no source contributed a single
// observation.
var ErrNoUsableInput = errors.New("no usable input: no source produced a valid record")

// ReasonCapacityExceeded labels observations dropped because the table was full.
const ReasonCapacityExceeded domain.Reason = "capacity_exceeded"

// Source outcomes, also used as metric labels.
const (
	OutcomeAggregated = "aggregated"
	OutcomeEmpty      = "empty"
	OutcomeUnreadable = "unreadable"
	OutcomeFailed     = "failed"
)

// SourceStats summarizes what happened to one input source.
type SourceStats struct {
	Name     string
	Lines    uint64
	Accepted uint64
	Rejected map[domain.Reason]uint64
	OpenErr  error
	ReadErr  error
	Duration time.Duration
}

// Succeeded reports whether the source contributed at least one observation.
func (s SourceStats) Succeeded() bool {
	return s.Accepted > 0
}

// Outcome classifies the source for logging and metrics.
func (s SourceStats) Outcome() string {
	switch {
	case s.OpenErr != nil:
		return OutcomeUnreadable
	case s.ReadErr != nil:
		return OutcomeFailed
	case s.Accepted == 0:
		return OutcomeEmpty
	default:
		return OutcomeAggregated
	}
}

// TotalRejected sums rejections across reasons.
func (s SourceStats) TotalRejected() uint64 {
	var n uint64
	for _, c := range s.Rejected {
		n += c
	}
	return n
}

// Result is the outcome of a full aggregation run.
type Result struct {
	Sources []SourceStats
	Regions int
}

// Succeeded counts sources that contributed observations.
func (r Result) Succeeded() int {
	n := 0
	for _, s := range r.Sources {
		if s.Succeeded() {
			n++
		}
	}
	return n
}

// Aggregator feeds TDV sources through the parser into an aggregation table.
// Sources are processed one at a time, in order; Run must not be called
// concurrently.
type Aggregator struct {
	table         *domain.Table
	maxLineLength int
	logger        *slog.Logger
	metrics       *observability.Metrics
	ready         atomic.Bool
	dropped       map[string]struct{}
}

// New creates an Aggregator writing into table. A non-positive maxLineLength
// selects domain.DefaultMaxLineLength.
func New(table *domain.Table, maxLineLength int, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	if maxLineLength <= 0 {
		maxLineLength = domain.DefaultMaxLineLength
	}
	return &Aggregator{
		table:         table,
		maxLineLength: maxLineLength,
		logger:        logger,
		metrics:       metrics,
		dropped:       make(map[string]struct{}),
	}
}

// Table exposes the aggregation table for read-out after Run.
func (a *Aggregator) Table() *domain.Table {
	return a.table
}

// CheckReadiness returns nil once a run has completed with usable input.
func (a *Aggregator) CheckReadiness(_ context.Context) error {
	if !a.ready.Load() {
		return errors.New("aggregation has not completed")
	}
	return nil
}

// Run aggregates every source in order. Sources that cannot be opened or
// read are logged and skipped; observations already applied from a failing
// source are kept. Run returns ErrNoUsableInput when no source succeeded, or
// the context error when cancelled between lines.
func (a *Aggregator) Run(ctx context.Context, sources []Source) (Result, error) {
	a.metrics.Running.Set(1)
	defer a.metrics.Running.Set(0)

	var res Result
	for _, src := range sources {
		stats, err := a.processSource(ctx, src)
		res.Sources = append(res.Sources, stats)
		a.recordSource(stats)
		if err != nil {
			res.Regions = a.table.Len()
			return res, fmt.Errorf("aggregate %s: %w", src.Name(), err)
		}
	}
	res.Regions = a.table.Len()

	if res.Succeeded() == 0 {
		return res, ErrNoUsableInput
	}
	a.ready.Store(true)
	return res, nil
}

// processSource returns a non-nil error only for context cancellation.
func (a *Aggregator) processSource(ctx context.Context, src Source) (SourceStats, error) {
	stats := SourceStats{Name: src.Name(), Rejected: make(map[domain.Reason]uint64)}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	start := time.Now()

	rc, err := src.Open()
	if err != nil {
		stats.OpenErr = err
		stats.Duration = time.Since(start)
		return stats, nil
	}
	defer rc.Close()

	a.logger.Info("opening source", "source", stats.Name)

	readErr := EachLine(rc, a.maxLineLength, func(line string, overflow bool) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Lines++
		a.metrics.LinesRead.Inc()
		if overflow {
			a.reject(&stats, domain.ReasonLineTooLong, domain.ErrLineTooLong)
			return nil
		}
		a.handleLine(&stats, line)
		return nil
	})
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(readErr, ctxErr) {
		stats.Duration = time.Since(start)
		return stats, ctxErr
	}
	stats.ReadErr = readErr
	stats.Duration = time.Since(start)
	return stats, nil
}

func (a *Aggregator) handleLine(stats *SourceStats, line string) {
	obs, err := domain.ParseLine(line, a.maxLineLength)
	if err != nil {
		a.reject(stats, domain.ReasonOf(err), err)
		return
	}

	// Apply fails only when the table is full.
	if err := a.table.Apply(obs); err != nil {
		a.dropForCapacity(stats, obs.Region, err)
		return
	}

	stats.Accepted++
	a.metrics.RecordsAccepted.Inc()
	a.metrics.RegionsTracked.Set(float64(a.table.Len()))
}

func (a *Aggregator) reject(stats *SourceStats, reason domain.Reason, err error) {
	stats.Rejected[reason]++
	a.metrics.RecordsRejected.WithLabelValues(string(reason)).Inc()
	a.logger.Debug("skipping line", "source", stats.Name, "line", stats.Lines, "reason", reason, "error", err)
}

func (a *Aggregator) dropForCapacity(stats *SourceStats, region string, err error) {
	stats.Rejected[ReasonCapacityExceeded]++
	a.metrics.RecordsRejected.WithLabelValues(string(ReasonCapacityExceeded)).Inc()
	if _, seen := a.dropped[region]; seen {
		return
	}
	a.dropped[region] = struct{}{}
	a.logger.Warn("region table full, dropping observations", "source", stats.Name, "region", region, "error", err)
}

func (a *Aggregator) recordSource(stats SourceStats) {
	outcome := stats.Outcome()
	a.metrics.Sources.WithLabelValues(outcome).Inc()
	a.metrics.SourceDuration.Observe(stats.Duration.Seconds())

	switch outcome {
	case OutcomeUnreadable:
		a.logger.Error("unable to open source", "source", stats.Name, "error", stats.OpenErr)
	case OutcomeFailed:
		a.logger.Error("error reading source", "source", stats.Name, "error", stats.ReadErr,
			"accepted", stats.Accepted)
	default:
		a.logger.Info("source processed",
			"source", stats.Name,
			"outcome", outcome,
			"lines", stats.Lines,
			"accepted", stats.Accepted,
			"rejected", stats.TotalRejected(),
			"duration", stats.Duration,
		)
	}
}
