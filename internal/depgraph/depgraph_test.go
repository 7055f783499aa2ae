package depgraph_test

import (
	"testing"

	"github.com/adyalab/isocheck/internal/depgraph"
	"github.com/adyalab/isocheck/internal/history"
	"github.com/adyalab/isocheck/internal/historyfixture"
)

func TestExtractG0HasWWCycle(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G0())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	deps1, err := depgraph.Extract(idx, 1)
	if err != nil {
		t.Fatalf("Extract(T1): %v", err)
	}
	var sawWWto2 bool
	for _, d := range deps1 {
		if d.Type == depgraph.WW && d.TargetID == 2 {
			sawWWto2 = true
		}
	}
	if !sawWWto2 {
		t.Errorf("expected a WW dependency from T1 to T2, got %+v", deps1)
	}

	deps2, err := depgraph.Extract(idx, 2)
	if err != nil {
		t.Fatalf("Extract(T2): %v", err)
	}
	var sawWWto1 bool
	for _, d := range deps2 {
		if d.Type == depgraph.WW && d.TargetID == 1 {
			sawWWto1 = true
		}
	}
	if !sawWWto1 {
		t.Errorf("expected a WW dependency from T2 to T1, got %+v", deps2)
	}
}

func TestExtractG1cHasWRCycle(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G1c())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	deps2, err := depgraph.Extract(idx, 2)
	if err != nil {
		t.Fatalf("Extract(T2): %v", err)
	}
	var sawWRto1 bool
	for _, d := range deps2 {
		if d.Type == depgraph.WR && d.TargetID == 1 {
			sawWRto1 = true
		}
	}
	if !sawWRto1 {
		t.Errorf("expected a WR dependency from T2 to T1, got %+v", deps2)
	}
}
