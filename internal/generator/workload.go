package generator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/adyalab/isocheck/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Minimum/maximum operations per generated transaction, tunable the same
// way frodo/generator.py's MIN_TXN_SIZE/MAX_TXN_SIZE are (there as module
// constants with a TODO to make them configurable; made configurable here
// instead, via Config).
const (
	defaultMinTxnSize = 3
	defaultMaxTxnSize = 10
)

// Config mirrors gen_history's keyword arguments, restricted to the
// subset this checker's CLI actually exposes (spec.md §6's flag list).
type Config struct {
	Connections       int
	Objects           int
	Tables            []string
	TransactionLimit  int
	AbortRate         float64
	WriteRate         float64
	PredicateReadRate float64
	ForUpdate         bool
	IsolationLevel    string
	Seed              int64
	MinTxnSize        int
	MaxTxnSize        int

	// RunID tags this workload for logging and cross-run correlation, the
	// way tinySQL's storage package stamps generated identifiers with
	// google/uuid (internal/storage/uuid_helpers.go) rather than a
	// hand-rolled counter. Left empty, Generate assigns one.
	RunID string
}

func (c Config) withDefaults() Config {
	if c.MinTxnSize == 0 {
		c.MinTxnSize = defaultMinTxnSize
	}
	if c.MaxTxnSize == 0 {
		c.MaxTxnSize = defaultMaxTxnSize
	}
	if c.TransactionLimit == 0 {
		c.TransactionLimit = 10 * c.Connections
	}
	if c.RunID == "" {
		c.RunID = uuid.NewString()
	}
	return c
}

// txnJob is one generated transaction awaiting execution: the ordered
// list of operations a single connection worker must run back to back.
type txnJob struct {
	id  int64
	ops []domain.Operation
}

// Generate runs a full workload across conns and returns the resulting
// history, ready for history.NewIndex. It follows gen_history's shape: an
// isolated init transaction that writes every object once (like every other
// write, each init write takes a fresh value from the recorder's counter, so
// objects start as one-element vectors such as [1], not [0]), a pool of
// randomly generated concurrent transactions fanned out across conns, and
// an isolated final transaction that reads every object -- satisfying
// spec.md §3 Invariant 2 (first/last transactions run in isolation).
//
// Unlike the Python original's dynamic queue-refill loop (which also
// supports an open-ended time limit), this port always generates exactly
// cfg.TransactionLimit transactions up front: the checker's CLI only
// exposes a transaction count (spec.md §6), not a time budget.
func Generate(ctx context.Context, cfg Config, conns []Conn, nemesis Nemesis) ([]domain.HistoryElem, error) {
	cfg = cfg.withDefaults()
	if len(conns) == 0 {
		return nil, fmt.Errorf("generator: need at least one connection")
	}
	if cfg.Objects < 1 {
		return nil, fmt.Errorf("generator: need at least one object")
	}
	if len(cfg.Tables) == 0 {
		return nil, fmt.Errorf("generator: need at least one table")
	}

	rnd := rand.New(rand.NewSource(cfg.Seed))
	objs := partitionObjects(cfg.Objects, cfg.Tables, rnd)
	rec := NewRecorder(0)

	// Initial transaction: writes every object's first version, run alone
	// on conns[0] before any concurrent work starts.
	initID := rec.NextTxnID()
	initOps := genInitTxn(objs)
	if err := runTxn(ctx, rec, conns[0], initID, initOps); err != nil {
		return nil, fmt.Errorf("generator: init transaction: %w", err)
	}

	jobs := make(chan txnJob, cfg.TransactionLimit)
	for i := 0; i < cfg.TransactionLimit; i++ {
		id := rec.NextTxnID()
		ops := genTransaction(rnd, id, objs, cfg, id-initID)
		jobs <- txnJob{id: id, ops: ops}
	}
	close(jobs)

	var nemesisWG sync.WaitGroup
	nemesisCtx, cancelNemesis := context.WithCancel(ctx)
	if nemesis != nil {
		nemesisWG.Add(1)
		go func() {
			defer nemesisWG.Done()
			for nemesisCtx.Err() == nil {
				if err := nemesis.Inject(nemesisCtx); err != nil {
					return
				}
			}
		}()
	}

	// One goroutine per connection, joined with errgroup the way
	// erigon-lib's aggregator fans work out across workers
	// (state/aggregator_v3.go). The group is used without a derived
	// context, so it only joins the workers; each worker watches ctx itself.
	var g errgroup.Group
	for connID, conn := range conns {
		connID, conn := connID, conn
		g.Go(func() error {
			for job := range jobs {
				if ctx.Err() != nil {
					return nil
				}
				_ = runConnTxn(ctx, rec, conn, int64(connID), job)
			}
			return nil
		})
	}
	_ = g.Wait()

	cancelNemesis()
	if nemesis != nil {
		nemesisWG.Wait()
		_ = nemesis.Heal(ctx)
	}

	// Final transaction: reads every object, run alone on conns[0] after
	// every worker has finished.
	finalID := rec.NextTxnID()
	finalOps := genFinalTxn(objs)
	if err := runTxn(ctx, rec, conns[0], finalID, finalOps); err != nil {
		return nil, fmt.Errorf("generator: final transaction: %w", err)
	}

	return rec.Elems(), nil
}

// partitionObjects randomly distributes n object ids across tables,
// mirroring gen_history's partition_ids.
func partitionObjects(n int, tables []string, rnd *rand.Rand) []domain.Object {
	counts := make(map[string]int, len(tables))
	for _, t := range tables {
		counts[t] = 1
	}
	for total := len(tables); total < n; total++ {
		counts[tables[rnd.Intn(len(tables))]]++
	}

	var objs []domain.Object
	for _, t := range tables {
		for i := 0; i < counts[t]; i++ {
			objs = append(objs, domain.Object{ID: int64(len(objs)), Table: t})
		}
	}
	return objs
}

func genInitTxn(objs []domain.Object) []domain.Operation {
	ops := []domain.Operation{
		{Kind: domain.OpSetIsolation, IsolationLevel: "serializable"},
		{Kind: domain.OpBegin},
	}
	for _, o := range objs {
		ops = append(ops, domain.Operation{Kind: domain.OpWrite, Object: o, Value: 0})
	}
	ops = append(ops, domain.Operation{Kind: domain.OpCommit})
	return ops
}

func genFinalTxn(objs []domain.Object) []domain.Operation {
	ops := []domain.Operation{
		{Kind: domain.OpSetIsolation, IsolationLevel: "serializable"},
		{Kind: domain.OpBegin},
	}
	for _, o := range objs {
		ops = append(ops, domain.Operation{Kind: domain.OpRead, Object: o})
	}
	ops = append(ops, domain.Operation{Kind: domain.OpCommit})
	return ops
}

// genTransaction generates one random operation sequence, following
// gen_history's gen_transaction: a run of between cfg.MinTxnSize and
// cfg.MaxTxnSize randomly chosen reads/writes/predicate-reads, closed by a
// commit or an artificial rollback per cfg.AbortRate.
func genTransaction(rnd *rand.Rand, txnID int64, objs []domain.Object, cfg Config, seq int64) []domain.Operation {
	size := cfg.MinTxnSize
	if cfg.MaxTxnSize > cfg.MinTxnSize {
		size += rnd.Intn(cfg.MaxTxnSize - cfg.MinTxnSize + 1)
	}

	ops := []domain.Operation{
		{Kind: domain.OpSetIsolation, IsolationLevel: cfg.IsolationLevel},
		{Kind: domain.OpBegin},
	}

	// Approximates the average object size at this point in the test, so
	// predicate-read thresholds are likely to select a non-empty,
	// non-total subset -- same heuristic as AVG_OBJECT_SIZE in
	// gen_transaction.
	avgWritesPerObjPerTxn := (cfg.WriteRate * 0.5 * float64(cfg.MinTxnSize+cfg.MaxTxnSize)) / float64(len(objs))
	avgObjSize := int(avgWritesPerObjPerTxn * float64(seq))

	for i := 0; i < size; i++ {
		ops = append(ops, genOp(rnd, objs, cfg, avgObjSize)...)
	}

	if rnd.Float64() < cfg.AbortRate {
		ops = append(ops, domain.Operation{Kind: domain.OpRollback})
	} else {
		ops = append(ops, domain.Operation{Kind: domain.OpCommit})
	}
	return ops
}

func genOp(rnd *rand.Rand, objs []domain.Object, cfg Config, avgObjSize int) []domain.Operation {
	r := rnd.Float64()
	switch {
	case r < cfg.WriteRate:
		obj := objs[rnd.Intn(len(objs))]
		return []domain.Operation{
			{Kind: domain.OpRead, Object: obj, ForUpdate: cfg.ForUpdate},
			{Kind: domain.OpWrite, Object: obj},
		}
	case r < cfg.WriteRate+cfg.PredicateReadRate:
		lo, hi := int(float64(avgObjSize)*0.85), int(float64(avgObjSize)*1.35)
		if hi <= lo {
			hi = lo + 1
		}
		threshold := lo
		if hi > lo {
			threshold = lo + rnd.Intn(hi-lo)
		}
		if threshold < 0 {
			threshold = 0
		}
		return []domain.Operation{
			{Kind: domain.OpPredicateRead, Tables: cfg.Tables, Threshold: threshold, ForUpdate: cfg.ForUpdate},
		}
	default:
		obj := objs[rnd.Intn(len(objs))]
		return []domain.Operation{{Kind: domain.OpRead, Object: obj, ForUpdate: cfg.ForUpdate}}
	}
}

// runTxn runs ops on conn under txnID, recording every element, stopping
// at the first operation error -- the single-connection path used for the
// isolated init/final transactions.
func runTxn(ctx context.Context, rec *Recorder, conn Conn, txnID int64, ops []domain.Operation) error {
	return runConnTxn(ctx, rec, conn, 0, txnJob{id: txnID, ops: ops})
}

// runConnTxn executes one transaction's operations on conn, recording a
// HistoryElem per invocation. A write's OpWrite operation is assigned its
// globally unique value from rec immediately before execution, not when
// the transaction is generated. A predicate read additionally yields one synthetic read
// HistoryElem per object it returned, matching process_txn's expansion of
// PREDICATE_READ results into individual reads.
func runConnTxn(ctx context.Context, rec *Recorder, conn Conn, connID int64, job txnJob) error {
	for i, op := range job.ops {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if op.Kind == domain.OpWrite {
			op.Value = rec.NextValue()
			job.ops[i] = op
		}

		res, err := conn.Execute(ctx, op)
		if err != nil {
			conn.ProcessException(err)
			rec.Record(domain.HistoryElem{
				Op:     op,
				Result: domain.Result{Kind: domain.ResultError, Err: err},
				ConnID: connID,
				TxnID:  job.id,
			})
			return err
		}

		rec.Record(domain.HistoryElem{Op: op, Result: res, ConnID: connID, TxnID: job.id})

		if op.Kind == domain.OpPredicateRead {
			for _, ov := range res.Values {
				rec.Record(domain.HistoryElem{
					Op:     domain.Operation{Kind: domain.OpRead, Object: domain.Object{ID: ov.ObjectID}},
					Result: domain.Result{Kind: domain.ResultValue, Value: ov.Vector},
					ConnID: connID,
					TxnID:  job.id,
				})
			}
		}
	}
	return nil
}
