package checker_test

import (
	"context"
	"testing"

	"github.com/adyalab/isocheck/internal/checker"
	"github.com/adyalab/isocheck/internal/history"
	"github.com/adyalab/isocheck/internal/historyfixture"
	"github.com/adyalab/isocheck/internal/isolation"
)

func TestCheckG0UnderPL1(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G0())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	anomalies, err := checker.Check(context.Background(), idx, isolation.PL1, checker.Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(anomalies) == 0 {
		t.Fatal("expected PL-1 to report the G0 cycle, got none")
	}
}

func TestCheckG0UnderPL0NeverReports(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G0())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	anomalies, err := checker.Check(context.Background(), idx, isolation.PL0, checker.Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(anomalies) != 0 {
		t.Errorf("expected PL-0 to proscribe nothing, got %d anomalies", len(anomalies))
	}
}

func TestCheckG2UnderPL3VsPL299(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G2())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	full, err := checker.Check(context.Background(), idx, isolation.PL3, checker.Options{})
	if err != nil {
		t.Fatalf("Check(PL3): %v", err)
	}
	if len(full) == 0 {
		t.Error("expected PL-3 to report the G2 cycle")
	}

	itemOnly, err := checker.Check(context.Background(), idx, isolation.PL299, checker.Options{})
	if err != nil {
		t.Fatalf("Check(PL299): %v", err)
	}
	if len(itemOnly) != 0 {
		t.Errorf("expected PL-2.99 to miss the PRW-closed G2 cycle, got %d anomalies", len(itemOnly))
	}
}

func TestCheckG1aUnderPL2(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G1a())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	anomalies, err := checker.Check(context.Background(), idx, isolation.PL2, checker.Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(anomalies) != 1 {
		t.Fatalf("expected exactly one G1a anomaly under PL-2, got %d", len(anomalies))
	}
}

func TestCheckRespectsLimit(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G0())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	anomalies, err := checker.Check(context.Background(), idx, isolation.PL1, checker.Options{Limit: 1})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(anomalies) > 1 {
		t.Errorf("expected at most 1 anomaly with Limit=1, got %d", len(anomalies))
	}
}

func TestCheckCancelledContext(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G0())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = checker.Check(ctx, idx, isolation.PL1, checker.Options{})
	if err == nil {
		t.Error("expected a cancelled context to surface an error")
	}
}
