// Package noncyclical detects the two non-cyclical Adya anomalies: G1a
// (a transaction observes a value written by a transaction that aborted)
// and G1b (a transaction observes an intermediate value its writer later
// overwrote before committing). Neither needs the Direct Serialization
// Graph -- both are single passes over each object's read set.
package noncyclical

import (
	"fmt"

	"github.com/adyalab/isocheck/internal/anomaly"
	"github.com/adyalab/isocheck/internal/domain"
	"github.com/adyalab/isocheck/internal/history"
)

// Anomaly is a single G1a or G1b witness: a reader that observed a version
// written by writer, which either aborted (G1a) or was superseded within
// its own transaction before that transaction committed (G1b).
type Anomaly struct {
	kind   anomaly.Kind
	reader domain.HistoryElem
	writer domain.HistoryElem

	readerTxn *history.ObservedTxn
	writerTxn *history.ObservedTxn
}

var _ anomaly.Anomaly = (*Anomaly)(nil)

// Kind returns anomaly.G1A or anomaly.G1B.
func (a *Anomaly) Kind() anomaly.Kind { return a.kind }

// Txns returns the reader's and the writer's transactions.
func (a *Anomaly) Txns() []*history.ObservedTxn { return []*history.ObservedTxn{a.readerTxn, a.writerTxn} }

// Explanation renders the two-line witness: what the reader saw, and why
// the version it saw should never have been visible.
func (a *Anomaly) Explanation() []string {
	reason := "is an intermediate value"
	if a.kind == anomaly.G1A {
		reason = "aborted"
	}
	return []string{
		fmt.Sprintf("T%d reads r(%d) -> %v", a.reader.TxnID, a.reader.Op.Object.ID, a.reader.Result.Value),
		fmt.Sprintf("%d -> %v was written by T%d which %s", a.writer.Op.Object.ID, a.writer.Result.ValueWritten, a.writer.TxnID, reason),
	}
}

// FindG1A scans every object's read set for reads of a version written by
// an aborted transaction (other than the reader itself).
func FindG1A(hist *history.Index) ([]*Anomaly, error) {
	return find(hist, anomaly.G1A, hist.IsAbortedVer)
}

// FindG1B scans every object's read set for reads of a version that was
// later overwritten by its own (committed) writer -- an intermediate value
// that should never have been externally visible.
func FindG1B(hist *history.Index) ([]*Anomaly, error) {
	return find(hist, anomaly.G1B, hist.IsIntermediateVer)
}

func find(hist *history.Index, kind anomaly.Kind, predicate func(objID, version int64) (bool, error)) ([]*Anomaly, error) {
	var out []*Anomaly
	for _, objID := range hist.ObjectIDs() {
		for _, el := range hist.ReadsFrom(objID) {
			if len(el.Result.Value) == 0 {
				continue
			}
			ver := el.Result.Value[len(el.Result.Value)-1]

			match, err := predicate(objID, ver)
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}

			writer, err := hist.WhoWrote(objID, ver)
			if err != nil {
				return nil, err
			}
			if writer.TxnID == el.TxnID {
				continue
			}

			readerTxn, err := hist.GetObservedTxn(el.TxnID)
			if err != nil {
				return nil, err
			}
			writerTxn, err := hist.GetObservedTxn(writer.TxnID)
			if err != nil {
				return nil, err
			}

			out = append(out, &Anomaly{
				kind: kind, reader: el, writer: writer,
				readerTxn: readerTxn, writerTxn: writerTxn,
			})
		}
	}
	return out, nil
}
