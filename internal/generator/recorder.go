package generator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/adyalab/isocheck/internal/domain"
)

// Recorder is the shared append-only history log every connection worker
// writes to, guarded by a single mutex -- the same "one manager, one lock"
// idiom as storage.MVCCManager's commitLog, scaled down to a plain slice
// since the generator has no need for MVCC-style visibility here.
type Recorder struct {
	mu    sync.Mutex
	elems []domain.HistoryElem

	nextTxnID atomic.Int64
	nextValue atomic.Int64 // the obj_ver counter from frodo/generator.py
}

// NewRecorder creates an empty recorder. firstTxnID is the id the caller
// intends to assign to the first (isolated, initializing) transaction.
func NewRecorder(firstTxnID int64) *Recorder {
	r := &Recorder{}
	r.nextTxnID.Store(firstTxnID)
	return r
}

// NextTxnID hands out the next monotonically increasing transaction id.
func (r *Recorder) NextTxnID() int64 { return r.nextTxnID.Add(1) - 1 }

// NextValue hands out the next globally unique integer to append on a
// write, mirroring obj_ver's role: unique across the whole test, not
// ordered per object.
func (r *Recorder) NextValue() int64 { return r.nextValue.Add(1) }

// Record appends one history element, stamping Resp with the current time
// if the caller left it zero.
func (r *Recorder) Record(el domain.HistoryElem) {
	if el.Resp == 0 {
		el.Resp = nowSeconds()
	}
	r.mu.Lock()
	r.elems = append(r.elems, el)
	r.mu.Unlock()
}

// Elems returns a snapshot of every element recorded so far, in the order
// Record was called.
func (r *Recorder) Elems() []domain.HistoryElem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.HistoryElem(nil), r.elems...)
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
