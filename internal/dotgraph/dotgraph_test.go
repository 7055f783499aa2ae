package dotgraph_test

import (
	"strings"
	"testing"

	"github.com/adyalab/isocheck/internal/anomaly"
	"github.com/adyalab/isocheck/internal/dotgraph"
	"github.com/adyalab/isocheck/internal/dsg"
	"github.com/adyalab/isocheck/internal/history"
	"github.com/adyalab/isocheck/internal/historyfixture"
)

func TestDumpFull(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G0())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	g, err := dsg.Build(idx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	dot, err := dotgraph.Dump(g, nil, true)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if !strings.Contains(dot, "digraph DSG") {
		t.Errorf("expected a digraph header, got:\n%s", dot)
	}
	if !strings.Contains(dot, "T1 -> T2") && !strings.Contains(dot, "T2 -> T1") {
		t.Errorf("expected an edge between T1 and T2, got:\n%s", dot)
	}
}

func TestDumpCyclesOnly(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G0())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	g, err := dsg.Build(idx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	dots, err := dotgraph.DumpCycles(g, []anomaly.Kind{anomaly.G0})
	if err != nil {
		t.Fatalf("DumpCycles: %v", err)
	}
	if len(dots) != 1 {
		t.Fatalf("expected exactly one cycle DOT, got %d", len(dots))
	}
}
