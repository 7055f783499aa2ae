// Package dsg builds the Direct Serialization Graph of a history: a typed
// directed multigraph over committed transactions, and exposes simple-cycle
// enumeration and anomaly classification as pull iterators. The iterators
// are not lazy: every cycle (and every witness) is computed before the
// first Next call.
package dsg

import (
	"fmt"
	"sort"
	"sync"

	"github.com/adyalab/isocheck/internal/anomaly"
	"github.com/adyalab/isocheck/internal/depgraph"
	"github.com/adyalab/isocheck/internal/history"
)

// Node is a committed transaction in the graph.
type Node struct {
	Txn   *history.ObservedTxn
	edges []*Edge
}

func (n *Node) String() string { return fmt.Sprintf("T%d", n.Txn.ID()) }

// Edges returns every outgoing edge from n.
func (n *Node) Edges() []*Edge { return n.edges }

func (n *Node) addEdge(etype depgraph.EdgeType, target *Node) {
	if n.Txn.ID() == target.Txn.ID() {
		return // self-loops are never recorded
	}
	for _, e := range n.edges {
		if e.Type == etype && e.Target.Txn.ID() == target.Txn.ID() {
			return // parallel edges of the same type between the same endpoints collapse
		}
	}
	n.edges = append(n.edges, &Edge{Type: etype, Target: target})
}

// Edge is a directed, typed dependency from its owning Node to Target.
type Edge struct {
	Type   depgraph.EdgeType
	Target *Node
}

// Graph is the Direct Serialization Graph built from a history's committed
// transactions.
type Graph struct {
	hist  *history.Index
	nodes []*Node
	byID  map[int64]*Node

	mu         sync.RWMutex
	depCache   map[int64][]depgraph.Dependency
	cycleCache map[string][][]*Node
}

// Build constructs the DSG: every committed transaction becomes a node, and
// every dependency the extractor finds between committed transactions
// becomes an edge.
func Build(hist *history.Index) (*Graph, error) {
	g := &Graph{
		hist:       hist,
		byID:       make(map[int64]*Node),
		depCache:   make(map[int64][]depgraph.Dependency),
		cycleCache: make(map[string][][]*Node),
	}

	first, last := hist.TxnRange()
	for txnID := first; txnID <= last; txnID++ {
		st, err := hist.TxnState(txnID)
		if err != nil {
			return nil, err
		}
		if st != history.TxnCommitted {
			continue
		}
		txn, err := hist.GetObservedTxn(txnID)
		if err != nil {
			return nil, err
		}
		node := &Node{Txn: txn}
		g.nodes = append(g.nodes, node)
		g.byID[txnID] = node
	}
	sort.Slice(g.nodes, func(i, j int) bool { return g.nodes[i].Txn.ID() < g.nodes[j].Txn.ID() })

	for _, node := range g.nodes {
		deps, err := g.dependencies(node)
		if err != nil {
			return nil, err
		}
		for _, d := range deps {
			target, ok := g.byID[d.TargetID]
			if !ok {
				continue
			}
			node.addEdge(d.Type, target)
		}
	}
	return g, nil
}

// Node returns the graph node for txnID.
func (g *Graph) Node(txnID int64) (*Node, error) {
	n, ok := g.byID[txnID]
	if !ok {
		return nil, fmt.Errorf("transaction T%d does not exist in the graph", txnID)
	}
	return n, nil
}

// Nodes returns every node in the graph, ordered by transaction id.
func (g *Graph) Nodes() []*Node { return g.nodes }

func (g *Graph) dependencies(node *Node) ([]depgraph.Dependency, error) {
	g.mu.RLock()
	if d, ok := g.depCache[node.Txn.ID()]; ok {
		g.mu.RUnlock()
		return d, nil
	}
	g.mu.RUnlock()

	deps, err := depgraph.Extract(g.hist, node.Txn.ID())
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.depCache[node.Txn.ID()] = deps
	g.mu.Unlock()
	return deps, nil
}

// Neighbours returns the successor set of node restricted to edge types
// present in mask.
func (n *Node) Neighbours(mask map[depgraph.EdgeType]bool) []*Node {
	seen := make(map[int64]bool)
	var out []*Node
	for _, e := range n.edges {
		if !mask[e.Type] {
			continue
		}
		if seen[e.Target.Txn.ID()] {
			continue
		}
		seen[e.Target.Txn.ID()] = true
		out = append(out, e.Target)
	}
	return out
}

func edgeMask(kinds []anomaly.Kind) map[depgraph.EdgeType]bool {
	mask := make(map[depgraph.EdgeType]bool)
	for _, k := range kinds {
		for _, et := range anomaly.EdgeTypes(k) {
			mask[et] = true
		}
	}
	return mask
}

func cacheKey(kinds []anomaly.Kind) string {
	sorted := anomaly.SortedKeys(kinds)
	s := ""
	for _, k := range sorted {
		s += fmt.Sprintf("%d,", int(k))
	}
	return s
}
