// Package dotgraph renders a Direct Serialization Graph (or a subset of
// its cycles) as Graphviz DOT, mirroring frodo/cycle.py's list_to_dot /
// dump_dot / dump_dots: solid arrows for WW/WR, dashed arrows for RW/PRW
// (the same visual convention Adya's thesis uses), edge labels the
// dependency kind (ww, wr, rw or prw).
package dotgraph

import (
	"fmt"
	"strings"

	"github.com/adyalab/isocheck/internal/anomaly"
	"github.com/adyalab/isocheck/internal/depgraph"
	"github.com/adyalab/isocheck/internal/dsg"
)

type stmt struct {
	from, to int64
	etype    depgraph.EdgeType
}

func listToDot(stmts []stmt) string {
	var solid, dashed []string
	for _, s := range stmts {
		line := fmt.Sprintf("\tT%d -> T%d [label=%s];", s.from, s.to, s.etype)
		if s.etype == depgraph.RW || s.etype == depgraph.PRW {
			dashed = append(dashed, line)
		} else {
			solid = append(solid, line)
		}
	}
	return fmt.Sprintf("\ndigraph DSG {\n%s\nedge [style=dashed]\n%s\n}\n",
		strings.Join(solid, "\n"), strings.Join(dashed, "\n"))
}

// Dump renders the DSG as DOT. If full is true every committed
// transaction's edges are included; otherwise only nodes that participate
// in some cycle matching kinds are shown.
func Dump(g *dsg.Graph, kinds []anomaly.Kind, full bool) (string, error) {
	var stmts []stmt

	if full {
		for _, n := range g.Nodes() {
			for _, e := range n.Edges() {
				stmts = append(stmts, stmt{from: n.Txn.ID(), to: e.Target.Txn.ID(), etype: e.Type})
			}
		}
		return listToDot(stmts), nil
	}

	it, err := g.FindCycles(kinds)
	if err != nil {
		return "", err
	}
	cycleNodes := make(map[int64]bool)
	for {
		c, err := it.Next()
		if err != nil {
			break
		}
		for _, n := range c {
			cycleNodes[n.Txn.ID()] = true
		}
	}

	for _, n := range g.Nodes() {
		if !cycleNodes[n.Txn.ID()] {
			continue
		}
		for _, e := range n.Edges() {
			if !cycleNodes[e.Target.Txn.ID()] {
				continue
			}
			stmts = append(stmts, stmt{from: n.Txn.ID(), to: e.Target.Txn.ID(), etype: e.Type})
		}
	}
	return listToDot(stmts), nil
}

// DumpCycles renders one DOT graph per node cycle matching kinds.
func DumpCycles(g *dsg.Graph, kinds []anomaly.Kind) ([]string, error) {
	it, err := g.FindCycles(kinds)
	if err != nil {
		return nil, err
	}

	var dots []string
	for {
		cycle, err := it.Next()
		if err != nil {
			break
		}
		inCycle := make(map[int64]bool, len(cycle))
		for _, n := range cycle {
			inCycle[n.Txn.ID()] = true
		}

		var stmts []stmt
		for _, n := range cycle {
			for _, e := range n.Edges() {
				if !inCycle[e.Target.Txn.ID()] {
					continue
				}
				stmts = append(stmts, stmt{from: n.Txn.ID(), to: e.Target.Txn.ID(), etype: e.Type})
			}
		}
		dots = append(dots, listToDot(stmts))
	}
	return dots, nil
}
