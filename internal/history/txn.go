package history

import (
	"fmt"

	"github.com/adyalab/isocheck/internal/domain"
)

// ObservedTxn is a transaction recovered from a history as the ordered
// sub-sequence of elements tagged with its id.
type ObservedTxn struct {
	id    int64
	elems []domain.HistoryElem
}

// ID returns the transaction id.
func (t *ObservedTxn) ID() int64 { return t.id }

// Elems returns the ordered operations observed for this transaction.
func (t *ObservedTxn) Elems() []domain.HistoryElem { return t.elems }

func (t *ObservedTxn) String() string {
	s := fmt.Sprintf("T%d:", t.id)
	for _, el := range t.elems {
		if el.Op.Kind == domain.OpSetIsolation {
			continue
		}
		s += fmt.Sprintf(" %s", el.Op.Kind)
	}
	return s
}

// TxnState classifies the outcome of a transaction.
type TxnState int

const (
	// TxnCommitted means the last element is a successful commit.
	TxnCommitted TxnState = iota
	// TxnAborted means the last element is a successful rollback, or a
	// failed operation other than commit/rollback.
	TxnAborted
	// TxnIndeterminate means the commit or rollback itself failed, or the
	// transaction never reached a terminal operation.
	TxnIndeterminate
)

func (s TxnState) String() string {
	switch s {
	case TxnCommitted:
		return "COMMITTED"
	case TxnAborted:
		return "ABORTED"
	case TxnIndeterminate:
		return "INDETERMINATE"
	default:
		return fmt.Sprintf("TxnState(%d)", int(s))
	}
}
