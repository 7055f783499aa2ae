package dsg_test

import (
	"testing"

	"github.com/adyalab/isocheck/internal/anomaly"
	"github.com/adyalab/isocheck/internal/dsg"
	"github.com/adyalab/isocheck/internal/history"
	"github.com/adyalab/isocheck/internal/historyfixture"
)

func TestFindCyclesG0(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G0())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	g, err := dsg.Build(idx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	it, err := g.FindCycles([]anomaly.Kind{anomaly.G0})
	if err != nil {
		t.Fatalf("FindCycles: %v", err)
	}

	var cycles [][]int64
	for {
		c, err := it.Next()
		if err != nil {
			break
		}
		var ids []int64
		for _, n := range c {
			ids = append(ids, n.Txn.ID())
		}
		cycles = append(cycles, ids)
	}

	if len(cycles) != 1 {
		t.Fatalf("expected exactly one node cycle, got %v", cycles)
	}
	if len(cycles[0]) != 2 {
		t.Fatalf("expected a 2-node cycle, got %v", cycles[0])
	}
}

func TestFindAnomaliesG0(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G0())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	g, err := dsg.Build(idx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	it, err := g.FindAnomalies([]anomaly.Kind{anomaly.G0})
	if err != nil {
		t.Fatalf("FindAnomalies: %v", err)
	}

	w, err := it.Next()
	if err != nil {
		t.Fatalf("expected at least one witness, got error: %v", err)
	}
	if w.Kind() != anomaly.G0 {
		t.Errorf("expected G0, got %v", w.Kind())
	}
	expl := w.Explanation()
	if len(expl) < 2 {
		t.Fatalf("expected a multi-line explanation, got %v", expl)
	}
	if expl[len(expl)-2][:4] != "But " {
		t.Errorf("expected the penultimate line to be prefixed with \"But \", got %q", expl[len(expl)-2])
	}
}

// TestG2VisibleOnlyUnderFullMask confirms the cycle in the G2 fixture is
// reported when PRW edges are in scope (PL-3/G2) but not when the edge mask
// is restricted to item dependencies only (PL-2.99/G2-item), since the
// cycle only closes through a PRW edge.
func TestG2VisibleOnlyUnderFullMask(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G2())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	g, err := dsg.Build(idx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	itemOnly, err := g.FindAnomalies([]anomaly.Kind{anomaly.G2Item})
	if err != nil {
		t.Fatalf("FindAnomalies(item-only): %v", err)
	}
	if _, err := itemOnly.Next(); err == nil {
		t.Errorf("expected no item-only witness for the G2 fixture, got one")
	}

	full, err := g.FindAnomalies([]anomaly.Kind{anomaly.G2})
	if err != nil {
		t.Fatalf("FindAnomalies(full): %v", err)
	}
	w, err := full.Next()
	if err != nil {
		t.Fatalf("expected a witness under the full edge mask, got error: %v", err)
	}
	if w.Kind() != anomaly.G2 {
		t.Errorf("expected G2, got %v", w.Kind())
	}
}

// TestG2ItemClassifiesAsGSingleItem confirms the minimal-type algorithm
// picks the most specific matched kind (GSingleItem), while the witness is
// still reported under a request for the broader G2Item, since GSingleItem
// implies it.
func TestG2ItemClassifiesAsGSingleItem(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G2Item())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	g, err := dsg.Build(idx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	it, err := g.FindAnomalies([]anomaly.Kind{anomaly.G2Item})
	if err != nil {
		t.Fatalf("FindAnomalies: %v", err)
	}
	w, err := it.Next()
	if err != nil {
		t.Fatalf("expected a witness, got error: %v", err)
	}
	if w.Kind() != anomaly.GSingleItem {
		t.Errorf("expected the minimal type GSingleItem, got %v", w.Kind())
	}
}
