package dsg

import (
	"fmt"
	"io"

	"github.com/adyalab/isocheck/internal/anomaly"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

var errEOF = io.EOF

// buildProjection constructs the gonum graph restricted to the requested
// edge mask.
func (g *Graph) buildProjection(maskFn func(n *Node) []*Node) *simple.DirectedGraph {
	dg := simple.NewDirectedGraph()
	for _, n := range g.nodes {
		dg.AddNode(simple.Node(n.Txn.ID()))
	}
	for _, n := range g.nodes {
		for _, target := range maskFn(n) {
			if !dg.HasEdgeFromTo(n.Txn.ID(), target.Txn.ID()) {
				dg.SetEdge(simple.Edge{F: simple.Node(n.Txn.ID()), T: simple.Node(target.Txn.ID())})
			}
		}
	}
	return dg
}

// adjacency extracts a plain adjacency list from a gonum directed graph, the
// representation Johnson's algorithm operates on.
func adjacency(dg graph.Directed) map[int64][]int64 {
	adj := make(map[int64][]int64)
	it := dg.Nodes()
	for it.Next() {
		id := it.Node().ID()
		adj[id] = nil
	}
	it.Reset()
	for it.Next() {
		id := it.Node().ID()
		succ := dg.From(id)
		for succ.Next() {
			adj[id] = append(adj[id], succ.Node().ID())
		}
	}
	return adj
}

// johnsonSimpleCycles enumerates every simple cycle in dg using Johnson's
// 1975 algorithm (SCC decomposition plus a blocked DFS per candidate root),
// since gonum's graph/topo package ships Tarjan SCC and topological sort but
// not simple-cycle enumeration itself.
func johnsonSimpleCycles(dg graph.Directed) [][]int64 {
	adj := adjacency(dg)

	var allNodes []int64
	for id := range adj {
		allNodes = append(allNodes, id)
	}
	sortInt64s(allNodes)

	var cycles [][]int64

	for _, s := range allNodes {
		sub := subgraphFrom(adj, s)
		scc := sccContaining(sub, s)
		if len(scc) < 1 {
			continue
		}
		sccSet := toSet(scc)

		blocked := make(map[int64]bool)
		blockMap := make(map[int64]map[int64]bool)
		var stack []int64

		var unblock func(n int64)
		unblock = func(n int64) {
			blocked[n] = false
			for b := range blockMap[n] {
				delete(blockMap[n], b)
				if blocked[b] {
					unblock(b)
				}
			}
		}

		var circuit func(v int64) bool
		circuit = func(v int64) bool {
			found := false
			stack = append(stack, v)
			blocked[v] = true

			for _, w := range adj[v] {
				if !sccSet[w] {
					continue
				}
				if w == s {
					cyc := append([]int64(nil), stack...)
					cycles = append(cycles, cyc)
					found = true
				} else if !blocked[w] {
					if circuit(w) {
						found = true
					}
				}
			}

			if found {
				unblock(v)
			} else {
				for _, w := range adj[v] {
					if !sccSet[w] {
						continue
					}
					if blockMap[w] == nil {
						blockMap[w] = make(map[int64]bool)
					}
					blockMap[w][v] = true
				}
			}

			stack = stack[:len(stack)-1]
			return found
		}

		circuit(s)
	}

	return cycles
}

func subgraphFrom(adj map[int64][]int64, minID int64) map[int64][]int64 {
	sub := make(map[int64][]int64)
	for id, succs := range adj {
		if id < minID {
			continue
		}
		var filtered []int64
		for _, s := range succs {
			if s >= minID {
				filtered = append(filtered, s)
			}
		}
		sub[id] = filtered
	}
	return sub
}

// sccContaining returns the strongly connected component of root within
// sub, computed with a direct two-pass reachability test (adequate for the
// graph sizes this checker operates on).
func sccContaining(sub map[int64][]int64, root int64) []int64 {
	fwd := reachableFrom(sub, root)
	rev := reverse(sub)
	bwd := reachableFrom(rev, root)

	var scc []int64
	for n := range fwd {
		if bwd[n] {
			scc = append(scc, n)
		}
	}
	return scc
}

func reachableFrom(adj map[int64][]int64, root int64) map[int64]bool {
	seen := map[int64]bool{root: true}
	queue := []int64{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, m := range adj[n] {
			if !seen[m] {
				seen[m] = true
				queue = append(queue, m)
			}
		}
	}
	return seen
}

func reverse(adj map[int64][]int64) map[int64][]int64 {
	rev := make(map[int64][]int64)
	for n := range adj {
		rev[n] = nil
	}
	for n, succs := range adj {
		for _, m := range succs {
			rev[m] = append(rev[m], n)
		}
	}
	return rev
}

func toSet(ids []int64) map[int64]bool {
	m := make(map[int64]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func sortInt64s(s []int64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// CycleIter is a pull-style iterator over simple node cycles, in the idiom
// of database/sql/driver.Rows: Next returns io.EOF once exhausted. It walks
// a list FindCycles has already enumerated in full; it does not enumerate
// on demand.
type CycleIter struct {
	cycles [][]*Node
	pos    int
}

// Next advances the iterator and returns the next cycle, or io.EOF.
func (it *CycleIter) Next() ([]*Node, error) {
	if it.pos >= len(it.cycles) {
		return nil, errEOF
	}
	c := it.cycles[it.pos]
	it.pos++
	return c, nil
}

// FindCycles enumerates simple node cycles in the subgraph induced by the
// union of edge types of the requested anomaly kinds. Results are memoized
// keyed by the sorted tuple of requested kinds.
func (g *Graph) FindCycles(kinds []anomaly.Kind) (*CycleIter, error) {
	key := cacheKey(kinds)
	g.mu.RLock()
	if cached, ok := g.cycleCache[key]; ok {
		g.mu.RUnlock()
		return &CycleIter{cycles: cached}, nil
	}
	g.mu.RUnlock()

	mask := edgeMask(kinds)
	maskFn := func(n *Node) []*Node { return n.Neighbours(mask) }

	dg := g.buildProjection(maskFn)
	rawCycles := johnsonSimpleCycles(dg)

	var cycles [][]*Node
	for _, rc := range rawCycles {
		var nodeCycle []*Node
		for _, id := range rc {
			n, err := g.Node(id)
			if err != nil {
				return nil, fmt.Errorf("cycle references unknown node: %w", err)
			}
			nodeCycle = append(nodeCycle, n)
		}
		cycles = append(cycles, nodeCycle)
	}

	g.mu.Lock()
	g.cycleCache[key] = cycles
	g.mu.Unlock()

	return &CycleIter{cycles: cycles}, nil
}
