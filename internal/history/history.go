// Package history indexes a recorded operation log into a queryable
// structure: transaction state classification, version-chain queries, and
// read/write provenance. Every query is a pure function of the underlying
// log; results that are expensive to recompute are memoized behind a
// sync.RWMutex, mirroring the teacher's storage.MVCCManager convention of
// guarding per-manager caches even when the surrounding contract is
// single-threaded, so a *Index can later be shared across concurrent
// checker.Check calls without surprises.
package history

import (
	"fmt"
	"sync"

	"github.com/adyalab/isocheck/internal/checkerr"
	"github.com/adyalab/isocheck/internal/domain"
)

type objVerKey struct {
	objID, version int64
}

// Index is an immutable operation log plus memoized derived queries.
type Index struct {
	elems          []domain.HistoryElem
	firstTxn       int64
	lastTxn        int64

	mu            sync.RWMutex
	txnStateCache map[int64]TxnState
	whoWroteCache map[objVerKey]domain.HistoryElem
	whoReadCache  map[objVerKey][]domain.HistoryElem
	traceCache    map[int64][]domain.HistoryElem
}

// NewIndex builds an Index over a recorded log. The log must be non-empty;
// the first and last elements are assumed (per the generator's contract) to
// belong to transactions that ran in isolation.
func NewIndex(elems []domain.HistoryElem) (*Index, error) {
	if len(elems) == 0 {
		return nil, fmt.Errorf("empty history: %w", checkerr.ErrMalformedHistory)
	}

	first := elems[0].TxnID
	last := elems[len(elems)-1].TxnID
	if last < first {
		return nil, fmt.Errorf("last transaction T%d has a smaller id than first T%d: %w", last, first, checkerr.ErrMalformedHistory)
	}

	return &Index{
		elems:         elems,
		firstTxn:      first,
		lastTxn:       last,
		txnStateCache: make(map[int64]TxnState),
		whoWroteCache: make(map[objVerKey]domain.HistoryElem),
		whoReadCache:  make(map[objVerKey][]domain.HistoryElem),
		traceCache:    make(map[int64][]domain.HistoryElem),
	}, nil
}

// Len returns the number of elements in the log.
func (ix *Index) Len() int { return len(ix.elems) }

// All returns every element in the log, in source order.
func (ix *Index) All() []domain.HistoryElem { return ix.elems }

// TxnRange returns the (first, last) transaction ids observed in the log.
func (ix *Index) TxnRange() (first, last int64) { return ix.firstTxn, ix.lastTxn }

// ObjectIDs returns the object ids touched by the first transaction, which
// by contract initializes every object in the test.
func (ix *Index) ObjectIDs() []int64 {
	var ids []int64
	seen := make(map[int64]bool)
	for _, el := range ix.elems {
		if el.TxnID != ix.firstTxn {
			continue
		}
		if el.Op.Kind != domain.OpWrite && el.Op.Kind != domain.OpRead {
			continue
		}
		if !seen[el.Op.Object.ID] {
			seen[el.Op.Object.ID] = true
			ids = append(ids, el.Op.Object.ID)
		}
	}
	return ids
}

// GetObservedTxn recovers the ordered sub-sequence of elements tagged with
// txnID.
func (ix *Index) GetObservedTxn(txnID int64) (*ObservedTxn, error) {
	var elems []domain.HistoryElem
	for _, el := range ix.elems {
		if el.TxnID == txnID {
			elems = append(elems, el)
		}
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("T%d never appears in the history: %w", txnID, checkerr.ErrNotFound)
	}
	return &ObservedTxn{id: txnID, elems: elems}, nil
}

// TxnState classifies the outcome of txnID from its last observed element,
// per §3's Transaction state rules: a successful commit is COMMITTED, a
// successful rollback (or a failed operation other than commit/rollback)
// is ABORTED, and a commit or
// rollback that itself failed -- or a transaction with no terminal
// operation at all -- is INDETERMINATE.
func (ix *Index) TxnState(txnID int64) (TxnState, error) {
	ix.mu.RLock()
	if st, ok := ix.txnStateCache[txnID]; ok {
		ix.mu.RUnlock()
		return st, nil
	}
	ix.mu.RUnlock()

	if txnID < ix.firstTxn || txnID > ix.lastTxn {
		return 0, fmt.Errorf("T%d outside accepted range [%d,%d]: %w", txnID, ix.firstTxn, ix.lastTxn, checkerr.ErrMalformedHistory)
	}

	var last *domain.HistoryElem
	for i := len(ix.elems) - 1; i >= 0; i-- {
		if ix.elems[i].TxnID == txnID {
			last = &ix.elems[i]
			break
		}
	}
	if last == nil {
		return 0, fmt.Errorf("T%d never wrote to the history: %w", txnID, checkerr.ErrNotFound)
	}

	var st TxnState
	switch {
	case last.Op.Kind == domain.OpCommit && !last.IsError():
		st = TxnCommitted
	case last.Op.Kind == domain.OpRollback && !last.IsError():
		st = TxnAborted
	case last.IsError() && last.Op.Kind != domain.OpCommit && last.Op.Kind != domain.OpRollback:
		st = TxnAborted
	default:
		st = TxnIndeterminate
	}

	ix.mu.Lock()
	ix.txnStateCache[txnID] = st
	ix.mu.Unlock()
	return st, nil
}

// FinalVersion returns the last read value observed for objID.
func (ix *Index) FinalVersion(objID int64) ([]int64, error) {
	for i := len(ix.elems) - 1; i >= 0; i-- {
		el := ix.elems[i]
		if el.Op.Kind == domain.OpRead && el.Op.Object.ID == objID {
			if el.IsError() {
				return nil, fmt.Errorf("last read of object %d returned an error: %w", objID, el.Result.Err)
			}
			return el.Result.Value, nil
		}
	}
	return nil, fmt.Errorf("object %d does not exist: %w", objID, checkerr.ErrNotFound)
}

// CommittedVersions returns the set of full value vectors appended by
// committed transactions to objID: one vector per contributing
// transaction, the installed one -- intermediate writes by the same
// transaction are suppressed.
func (ix *Index) CommittedVersions(objID int64) ([][]int64, error) {
	byTxn := make(map[int64]domain.HistoryElem)
	order := make([]int64, 0)
	for _, el := range ix.elems {
		if el.Op.Kind != domain.OpWrite || el.Op.Object.ID != objID || el.IsError() {
			continue
		}
		st, err := ix.TxnState(el.TxnID)
		if err != nil {
			return nil, err
		}
		if st != TxnCommitted {
			continue
		}
		if _, ok := byTxn[el.TxnID]; !ok {
			order = append(order, el.TxnID)
		}
		byTxn[el.TxnID] = el
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("object %d was never written: %w", objID, checkerr.ErrNotFound)
	}

	vers := make([][]int64, 0, len(order))
	for _, txnID := range order {
		vers = append(vers, byTxn[txnID].Result.ValueWritten)
	}
	return vers, nil
}

// WhoWrote returns the history element whose write appended the integer
// version to object objID. No inference is made on whether the version was
// ever installed.
func (ix *Index) WhoWrote(objID, version int64) (domain.HistoryElem, error) {
	key := objVerKey{objID, version}
	ix.mu.RLock()
	if el, ok := ix.whoWroteCache[key]; ok {
		ix.mu.RUnlock()
		return el, nil
	}
	ix.mu.RUnlock()

	for _, el := range ix.elems {
		if el.Op.Kind == domain.OpWrite && el.Op.Object.ID == objID && el.Op.Value == version {
			ix.mu.Lock()
			ix.whoWroteCache[key] = el
			ix.mu.Unlock()
			return el, nil
		}
	}
	return domain.HistoryElem{}, fmt.Errorf("version %d was never written for object %d: %w", version, objID, checkerr.ErrNotFound)
}

// WhoRead returns every successful item-read of objID whose result vector
// ends in version.
func (ix *Index) WhoRead(objID, version int64) ([]domain.HistoryElem, error) {
	key := objVerKey{objID, version}
	ix.mu.RLock()
	if els, ok := ix.whoReadCache[key]; ok {
		ix.mu.RUnlock()
		return els, nil
	}
	ix.mu.RUnlock()

	reads := ix.ReadsFrom(objID)
	var matched []domain.HistoryElem
	for _, el := range reads {
		v := el.Result.Value
		if len(v) > 0 && v[len(v)-1] == version {
			matched = append(matched, el)
		}
	}

	ix.mu.Lock()
	ix.whoReadCache[key] = matched
	ix.mu.Unlock()
	return matched, nil
}

// Trace returns, deduplicated by contributed integer, the write history
// element behind every integer that appears in some committed version of
// objID, in the order the committed version vectors list them. Writes whose
// integers appear in no committed version (such as aborted writes no
// committed transaction built on) are not included.
func (ix *Index) Trace(objID int64) ([]domain.HistoryElem, error) {
	ix.mu.RLock()
	if tr, ok := ix.traceCache[objID]; ok {
		ix.mu.RUnlock()
		return tr, nil
	}
	ix.mu.RUnlock()

	committed, err := ix.CommittedVersions(objID)
	if err != nil {
		return nil, err
	}

	checked := make(map[int64]bool)
	var trace []domain.HistoryElem
	for _, ver := range committed {
		for _, v := range ver {
			if checked[v] {
				continue
			}
			el, err := ix.WhoWrote(objID, v)
			if err != nil {
				return nil, err
			}
			trace = append(trace, el)
			checked[v] = true
		}
	}

	ix.mu.Lock()
	ix.traceCache[objID] = trace
	ix.mu.Unlock()
	return trace, nil
}

// ReadsFrom returns every successful item-read of objID.
func (ix *Index) ReadsFrom(objID int64) []domain.HistoryElem {
	var reads []domain.HistoryElem
	for _, el := range ix.elems {
		if el.Op.Kind == domain.OpRead && el.Op.Object.ID == objID && !el.IsError() {
			reads = append(reads, el)
		}
	}
	return reads
}

// IsAbortedVer reports whether version belongs to an aborted transaction.
func (ix *Index) IsAbortedVer(objID, version int64) (bool, error) {
	el, err := ix.WhoWrote(objID, version)
	if err != nil {
		return false, err
	}
	st, err := ix.TxnState(el.TxnID)
	if err != nil {
		return false, err
	}
	return st == TxnAborted, nil
}

// IsInstalledVer reports whether version is the last committed write by its
// writing transaction -- i.e. it survives to the final state of the object,
// as opposed to an intermediate value the same transaction overwrote.
func (ix *Index) IsInstalledVer(objID, version int64) (bool, error) {
	aborted, err := ix.IsAbortedVer(objID, version)
	if err != nil {
		return false, err
	}
	if aborted {
		return false, nil
	}

	trace, err := ix.Trace(objID)
	if err != nil {
		return false, err
	}
	for i, el := range trace {
		if el.Op.Value != version {
			continue
		}
		for _, later := range trace[i+1:] {
			if later.TxnID == el.TxnID {
				return false, nil
			}
		}
		st, err := ix.TxnState(el.TxnID)
		if err != nil {
			return false, err
		}
		return st == TxnCommitted, nil
	}
	return false, nil
}

// IsIntermediateVer reports whether version was written (and then
// overwritten) by a transaction that went on to commit.
func (ix *Index) IsIntermediateVer(objID, version int64) (bool, error) {
	aborted, err := ix.IsAbortedVer(objID, version)
	if err != nil {
		return false, err
	}
	if aborted {
		return false, nil
	}
	installed, err := ix.IsInstalledVer(objID, version)
	if err != nil {
		return false, err
	}
	if installed {
		return false, nil
	}
	el, err := ix.WhoWrote(objID, version)
	if err != nil {
		return false, err
	}
	st, err := ix.TxnState(el.TxnID)
	if err != nil {
		return false, err
	}
	return st == TxnCommitted, nil
}
