package dsg

import (
	"fmt"

	"github.com/adyalab/isocheck/internal/anomaly"
	"github.com/adyalab/isocheck/internal/depgraph"
	"github.com/adyalab/isocheck/internal/history"
)

// CyclicalAnomaly is a single witness: an ordered node cycle together with
// one concrete edge per adjacent pair (a node cycle may admit several edge
// cycles when two transactions are linked by edges of more than one type).
type CyclicalAnomaly struct {
	g         *Graph
	nodeCycle []*Node
	edgeCycle []*Edge
	finalTxn  *history.ObservedTxn
}

var _ anomaly.Anomaly = (*CyclicalAnomaly)(nil)

// Kind classifies the anomaly's minimal type from its edge-type sequence.
func (a *CyclicalAnomaly) Kind() anomaly.Kind {
	k, err := anomaly.ClassifyCycle(a.edgeTypes())
	if err != nil {
		// classification failing on a cycle this package itself produced is
		// an internal invariant violation; surface it loudly rather than
		// silently mislabeling the witness.
		panic(fmt.Sprintf("dsg: %v", err))
	}
	return k
}

func (a *CyclicalAnomaly) edgeTypes() []depgraph.EdgeType {
	types := make([]depgraph.EdgeType, len(a.edgeCycle))
	for i, e := range a.edgeCycle {
		types[i] = e.Type
	}
	return types
}

// Txns returns every transaction involved: the cycle's, plus the history's
// final transaction (the boundary against which the cycle is ultimately
// judged) if it is not already part of the cycle.
func (a *CyclicalAnomaly) Txns() []*history.ObservedTxn {
	txns := make([]*history.ObservedTxn, 0, len(a.nodeCycle)+1)
	var sawFinal bool
	for _, n := range a.nodeCycle {
		txns = append(txns, n.Txn)
		if n.Txn.ID() == a.finalTxn.ID() {
			sawFinal = true
		}
	}
	if !sawFinal {
		txns = append(txns, a.finalTxn)
	}
	return txns
}

// Explanation renders one line per dependency in "T_i < T_j, because ..."
// form, the last line prefixed "But" to mark the contradiction, followed by
// a closing summary line.
func (a *CyclicalAnomaly) Explanation() []string {
	msgs := make([]string, len(a.nodeCycle))
	for i, orig := range a.nodeCycle {
		edge := a.edgeCycle[i]
		msg, err := a.explainDependency(orig, edge)
		if err != nil {
			panic(fmt.Sprintf("dsg: %v", err))
		}
		msgs[i] = msg
	}
	msgs[len(msgs)-1] = "But " + msgs[len(msgs)-1]
	msgs = append(msgs, "This means we have a cycle (and an anomaly)")
	return msgs
}

func (a *CyclicalAnomaly) explainDependency(orig *Node, edge *Edge) (string, error) {
	deps, err := a.g.dependencies(orig)
	if err != nil {
		return "", err
	}

	var found *depgraph.Dependency
	for i := range deps {
		d := deps[i]
		if d.Type == edge.Type && d.TargetID == edge.Target.Txn.ID() {
			found = &d
			break
		}
	}
	if found == nil {
		return "", fmt.Errorf("the %s dependency from T%d to T%d could not be recovered", edge.Type, orig.Txn.ID(), edge.Target.Txn.ID())
	}

	ver := found.Version
	var depMsg string
	switch edge.Type {
	case depgraph.WW:
		depMsg = fmt.Sprintf("T%d wrote version %v and T%d wrote version %v [object %d] (Write dependency)",
			orig.Txn.ID(), ver[:len(ver)-1], edge.Target.Txn.ID(), ver, found.ObjectID)
	case depgraph.WR:
		depMsg = fmt.Sprintf("T%d wrote version %v and T%d read version %v [object %d] (Read dependency)",
			orig.Txn.ID(), ver, edge.Target.Txn.ID(), ver, found.ObjectID)
	case depgraph.RW:
		depMsg = fmt.Sprintf("T%d read version %v and T%d wrote version %v [object %d] (Item Anti dependency)",
			orig.Txn.ID(), ver[:len(ver)-1], edge.Target.Txn.ID(), ver, found.ObjectID)
	case depgraph.PRW:
		depMsg = fmt.Sprintf("T%d didn't read the object because it was too small (required len > %d), and T%d wrote the first version which matched: %v [object %d] (Predicate Anti dependency)",
			orig.Txn.ID(), len(ver)-1, edge.Target.Txn.ID(), ver, found.ObjectID)
	}

	return fmt.Sprintf("T%d < T%d, because %s", orig.Txn.ID(), edge.Target.Txn.ID(), depMsg), nil
}

// AnomalyIter is a pull iterator over classified cycle witnesses. It walks
// a list FindAnomalies has already built in full; stopping early saves no
// enumeration or classification work.
type AnomalyIter struct {
	witnesses []*CyclicalAnomaly
	pos       int
}

// Next advances the iterator and returns the next witness, or io.EOF.
func (it *AnomalyIter) Next() (*CyclicalAnomaly, error) {
	if it.pos >= len(it.witnesses) {
		return nil, errEOF
	}
	w := it.witnesses[it.pos]
	it.pos++
	return w, nil
}

// FindAnomalies enumerates every cyclical anomaly witness whose minimal
// kind's implication closure intersects the requested kinds. A single node
// cycle may yield several witnesses when its transactions are linked by
// more than one edge type.
func (g *Graph) FindAnomalies(kinds []anomaly.Kind) (*AnomalyIter, error) {
	cycleIter, err := g.FindCycles(kinds)
	if err != nil {
		return nil, err
	}

	requested := make(map[anomaly.Kind]bool, len(kinds))
	for _, k := range kinds {
		requested[k] = true
	}

	_, lastID := g.hist.TxnRange()
	finalTxn, err := g.hist.GetObservedTxn(lastID)
	if err != nil {
		return nil, err
	}

	var witnesses []*CyclicalAnomaly
	for {
		nodeCycle, err := cycleIter.Next()
		if err == errEOF {
			break
		}
		if err != nil {
			return nil, err
		}

		for _, edgeCycle := range expandEdgeCycles(nodeCycle) {
			w := &CyclicalAnomaly{g: g, nodeCycle: nodeCycle, edgeCycle: edgeCycle, finalTxn: finalTxn}
			kind := w.Kind()
			for _, c := range anomaly.Closure(kind) {
				if requested[c] {
					witnesses = append(witnesses, w)
					break
				}
			}
		}
	}

	return &AnomalyIter{witnesses: witnesses}, nil
}

// expandEdgeCycles turns a node cycle into every edge cycle it admits: the
// cartesian product, across adjacent node pairs, of the (possibly several)
// distinctly-typed edges directly connecting them.
func expandEdgeCycles(nodeCycle []*Node) [][]*Edge {
	n := len(nodeCycle)
	if n == 0 {
		return nil
	}

	options := make([][]*Edge, n)
	for i, u := range nodeCycle {
		v := nodeCycle[(i+1)%n]
		var edges []*Edge
		for _, e := range u.edges {
			if e.Target.Txn.ID() == v.Txn.ID() {
				edges = append(edges, e)
			}
		}
		options[i] = edges
	}

	combos := [][]*Edge{{}}
	for _, opts := range options {
		if len(opts) == 0 {
			return nil
		}
		var next [][]*Edge
		for _, combo := range combos {
			for _, e := range opts {
				extended := append(append([]*Edge(nil), combo...), e)
				next = append(next, extended)
			}
		}
		combos = next
	}
	return combos
}
