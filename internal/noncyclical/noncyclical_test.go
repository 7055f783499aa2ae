package noncyclical_test

import (
	"testing"

	"github.com/adyalab/isocheck/internal/anomaly"
	"github.com/adyalab/isocheck/internal/history"
	"github.com/adyalab/isocheck/internal/historyfixture"
	"github.com/adyalab/isocheck/internal/noncyclical"
)

func TestFindG1AReportsOne(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G1a())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	g1a, err := noncyclical.FindG1A(idx)
	if err != nil {
		t.Fatalf("FindG1A: %v", err)
	}
	if len(g1a) != 1 {
		t.Fatalf("expected exactly one G1a anomaly, got %d", len(g1a))
	}
	if g1a[0].Kind() != anomaly.G1A {
		t.Errorf("expected Kind()==G1A, got %v", g1a[0].Kind())
	}

	g1b, err := noncyclical.FindG1B(idx)
	if err != nil {
		t.Fatalf("FindG1B: %v", err)
	}
	if len(g1b) != 0 {
		t.Errorf("expected no G1b anomalies in the G1a fixture, got %d", len(g1b))
	}
}

func TestFindG1BReportsOne(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G1b())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	g1b, err := noncyclical.FindG1B(idx)
	if err != nil {
		t.Fatalf("FindG1B: %v", err)
	}
	if len(g1b) != 1 {
		t.Fatalf("expected exactly one G1b anomaly, got %d", len(g1b))
	}
	if g1b[0].Kind() != anomaly.G1B {
		t.Errorf("expected Kind()==G1B, got %v", g1b[0].Kind())
	}

	g1a, err := noncyclical.FindG1A(idx)
	if err != nil {
		t.Fatalf("FindG1A: %v", err)
	}
	if len(g1a) != 0 {
		t.Errorf("expected no G1a anomalies in the G1b fixture, got %d", len(g1a))
	}
}
