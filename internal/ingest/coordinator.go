// Package ingest loads parsed catalog records into a store with a pool of
// concurrent workers while keeping exactly one row per product name.
//
// The store offers only a separate existence check and insert. Two workers
// that check the same new name at the same time would both see it missing
// and both insert it. The Coordinator prevents that by running every
// check-then-insert under a lock scoped to the record's name: workers on
// different names run in parallel, and workers on the same name take turns.
// The first to get the lock inserts and every later one sees the row and
// skips.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
	"github.com/JonMunkholm/catalogimport/internal/keylock"
	"github.com/JonMunkholm/catalogimport/internal/logging"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the worker pool size when Options.Workers is not positive.
const DefaultWorkers = 3

// Store is the part of the product store the Coordinator needs.
type Store interface {
	Exists(ctx context.Context, name string) (bool, error)
	Insert(ctx context.Context, name string, price decimal.Decimal) error
}

// Distribution decides how records reach workers.
type Distribution string

const (
	// DistributeQueue feeds records through a shared queue; each record is
	// handled by exactly one worker.
	DistributeQueue Distribution = "queue"

	// DistributeReplicate hands every worker the full record list. The
	// per-name lock keeps the result identical to DistributeQueue; only the
	// amount of redundant work differs.
	DistributeReplicate Distribution = "replicate"
)

// Options configures a Coordinator.
type Options struct {
	Workers      int
	Distribution Distribution
}

// Outcome is the terminal state of one record.
type Outcome int

const (
	// OutcomeSkipped means a row with the name already existed.
	OutcomeSkipped Outcome = iota
	// OutcomeInserted means this attempt created the row.
	OutcomeInserted
)

func (o Outcome) String() string {
	if o == OutcomeInserted {
		return "inserted"
	}
	return "skipped"
}

// Result summarises a run. When Run fails, it reflects the work finished
// before the failure.
type Result struct {
	Records  int
	Inserted int64
	Skipped  int64
	Duration time.Duration
}

// Coordinator runs deduplicating ingestion against a Store.
type Coordinator struct {
	store        Store
	locks        *keylock.Locker
	workers      int
	distribution Distribution
}

// NewCoordinator creates a Coordinator. Unset options take their defaults:
// DefaultWorkers workers and DistributeQueue.
func NewCoordinator(store Store, opts Options) *Coordinator {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	distribution := opts.Distribution
	if distribution != DistributeReplicate {
		distribution = DistributeQueue
	}

	return &Coordinator{
		store:        store,
		locks:        keylock.New(),
		workers:      workers,
		distribution: distribution,
	}
}

// Ingest stores rec unless a row with its name already exists. The
// existence check and the insert happen under rec.Name's lock, which is
// released before Ingest returns on every path.
func (c *Coordinator) Ingest(ctx context.Context, rec catalog.Record) (Outcome, error) {
	unlock, err := c.locks.Lock(ctx, rec.Name)
	if err != nil {
		return OutcomeSkipped, err
	}
	defer unlock()

	exists, err := c.store.Exists(ctx, rec.Name)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("check %q: %w", rec.Name, err)
	}
	if exists {
		return OutcomeSkipped, nil
	}

	if err := c.store.Insert(ctx, rec.Name, rec.Price); err != nil {
		return OutcomeSkipped, fmt.Errorf("insert %q: %w", rec.Name, err)
	}
	return OutcomeInserted, nil
}

// Run ingests records with the configured worker pool and blocks until every
// worker has finished.
//
// A store error stops the worker that hit it and cancels the others; they
// stop before their next record. There is no retry. The first error is
// returned, and rows for records not yet handled are left unwritten. Run
// also stops early when ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context, records []catalog.Record) (Result, error) {
	start := time.Now()
	r := &run{c: c}

	g, gctx := errgroup.WithContext(ctx)

	switch c.distribution {
	case DistributeReplicate:
		for id := 1; id <= c.workers; id++ {
			g.Go(func() error {
				return r.replicated(gctx, id, records)
			})
		}

	default:
		queue := make(chan catalog.Record)
		g.Go(func() error {
			defer close(queue)
			for _, rec := range records {
				select {
				case queue <- rec:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
		for id := 1; id <= c.workers; id++ {
			g.Go(func() error {
				return r.queued(gctx, id, queue)
			})
		}
	}

	err := g.Wait()

	result := Result{
		Records:  len(records),
		Inserted: r.inserted.Load(),
		Skipped:  r.skipped.Load(),
		Duration: time.Since(start),
	}

	logging.FromContext(ctx).Debug("ingestion finished",
		"workers", c.workers,
		"distribution", string(c.distribution),
		"records", result.Records,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"duration", result.Duration,
	)

	return result, err
}

// run holds the state shared by the workers of one Run.
type run struct {
	c *Coordinator

	// known holds names that have a row, so repeated names skip the lock and
	// the store round trip. Rows are never removed during a run.
	known sync.Map

	inserted atomic.Int64
	skipped  atomic.Int64
}

func (r *run) queued(ctx context.Context, id int, queue <-chan catalog.Record) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-queue:
			if !ok {
				return nil
			}
			if err := r.process(ctx, id, rec); err != nil {
				return err
			}
		}
	}
}

func (r *run) replicated(ctx context.Context, id int, records []catalog.Record) error {
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.process(ctx, id, rec); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) process(ctx context.Context, id int, rec catalog.Record) error {
	if _, ok := r.known.Load(rec.Name); ok {
		r.skipped.Add(1)
		return nil
	}

	outcome, err := r.c.Ingest(ctx, rec)
	if err != nil {
		logging.WithFields(ctx, "worker", id).Warn("worker stopped", "name", rec.Name, "error", err)
		return fmt.Errorf("worker %d: %w", id, err)
	}

	r.known.Store(rec.Name, struct{}{})
	if outcome == OutcomeInserted {
		r.inserted.Add(1)
	} else {
		r.skipped.Add(1)
	}

	logging.WithFields(ctx, "worker", id).Debug("record "+outcome.String(), "name", rec.Name)
	return nil
}
