// Package depgraph derives the Adya dependency edges (write-write,
// write-read, item read-write, predicate read-write) that hold between
// committed transactions in a history.
package depgraph

import (
	"fmt"

	"github.com/adyalab/isocheck/internal/domain"
	"github.com/adyalab/isocheck/internal/history"
	"github.com/samber/lo"
)

// EdgeType names one of the four dependency kinds the extractor produces.
type EdgeType int

const (
	WW EdgeType = iota
	WR
	RW
	PRW
)

func (t EdgeType) String() string {
	switch t {
	case WW:
		return "ww"
	case WR:
		return "wr"
	case RW:
		return "rw"
	case PRW:
		return "prw"
	default:
		return fmt.Sprintf("EdgeType(%d)", int(t))
	}
}

// Dependency is one outgoing edge from the transaction whose operations
// were scanned to produce it: the edge kind, the target transaction, the
// object it pertains to, and the version prefix that witnesses it.
type Dependency struct {
	Type     EdgeType
	TargetID int64
	ObjectID int64
	Version  []int64
}

func longestVersion(vers [][]int64, val int64) []int64 {
	var longest []int64
	for _, ver := range vers {
		if !contains(ver, val) {
			continue
		}
		if len(ver) > len(longest) {
			longest = ver
		}
	}
	return longest
}

func contains(v []int64, val int64) bool { return lo.Contains(v, val) }

func indexOf(v []int64, val int64) int { return lo.IndexOf(v, val) }

func isPrefix(a, b []int64) bool {
	if len(a) > len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Extract finds the dependencies originating from txnID, a transaction
// already known to be COMMITTED. Edges are only emitted when their target
// transaction is also COMMITTED.
func Extract(idx *history.Index, txnID int64) ([]Dependency, error) {
	txn, err := idx.GetObservedTxn(txnID)
	if err != nil {
		return nil, err
	}

	var deps []Dependency
	for _, el := range txn.Elems() {
		switch el.Op.Kind {
		case domain.OpWrite:
			committed, err := idx.CommittedVersions(el.Op.Object.ID)
			if err != nil {
				return nil, err
			}
			ver := longestVersion(committed, el.Op.Value)
			if len(ver) == 0 {
				return nil, fmt.Errorf("no committed version of object %d contains value %d", el.Op.Object.ID, el.Op.Value)
			}
			i := indexOf(ver, el.Op.Value)
			if i+1 < len(ver) {
				target, err := idx.WhoWrote(el.Op.Object.ID, ver[i+1])
				if err != nil {
					return nil, err
				}
				deps = append(deps, Dependency{
					Type: WW, TargetID: target.TxnID, ObjectID: el.Op.Object.ID,
					Version: append([]int64(nil), ver[:i+2]...),
				})
			}

			readers, err := idx.WhoRead(el.Op.Object.ID, el.Op.Value)
			if err != nil {
				return nil, err
			}
			for _, reader := range readers {
				deps = append(deps, Dependency{
					Type: WR, TargetID: reader.TxnID, ObjectID: el.Op.Object.ID,
					Version: append([]int64(nil), ver[:i+1]...),
				})
			}

		case domain.OpRead:
			if el.IsError() || len(el.Result.Value) == 0 {
				continue
			}
			val := el.Result.Value[len(el.Result.Value)-1]
			committed, err := idx.CommittedVersions(el.Op.Object.ID)
			if err != nil {
				return nil, err
			}
			ver := longestVersion(committed, val)
			if len(ver) == 0 {
				// val is in no committed version (e.g. an aborted write), so
				// there is no committed successor to anti-depend on.
				continue
			}
			i := indexOf(ver, val)
			if i+1 < len(ver) {
				target, err := idx.WhoWrote(el.Op.Object.ID, ver[i+1])
				if err != nil {
					return nil, err
				}
				deps = append(deps, Dependency{
					Type: RW, TargetID: target.TxnID, ObjectID: el.Op.Object.ID,
					Version: append([]int64(nil), ver[:i+2]...),
				})
			}

		case domain.OpPredicateRead:
			if el.IsError() {
				continue
			}
			boundaryLen := el.Op.Threshold
			for _, other := range idx.All() {
				if other.Op.Kind != domain.OpWrite || other.IsError() {
					continue
				}
				if len(other.Result.ValueWritten) != boundaryLen+1 {
					continue
				}
				if !inTables(other.Op.Object.Table, el.Op.Tables) {
					continue
				}
				matched := false
				for _, row := range el.Result.Values {
					if isPrefix(other.Result.ValueWritten, row.Vector) {
						matched = true
						break
					}
				}
				if matched {
					continue
				}
				deps = append(deps, Dependency{
					Type: PRW, TargetID: other.TxnID, ObjectID: other.Op.Object.ID,
					Version: append([]int64(nil), other.Result.ValueWritten...),
				})
			}
		}
	}

	result := deps[:0]
	for _, d := range deps {
		st, err := idx.TxnState(d.TargetID)
		if err != nil {
			return nil, err
		}
		if st == history.TxnCommitted {
			result = append(result, d)
		}
	}
	return result, nil
}

func inTables(table string, tables []string) bool {
	for _, t := range tables {
		if t == table {
			return true
		}
	}
	return false
}
