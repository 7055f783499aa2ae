package witness_test

import (
	"context"
	"strings"
	"testing"

	"github.com/adyalab/isocheck/internal/checker"
	"github.com/adyalab/isocheck/internal/history"
	"github.com/adyalab/isocheck/internal/historyfixture"
	"github.com/adyalab/isocheck/internal/isolation"
	"github.com/adyalab/isocheck/internal/witness"
)

func TestRenderIncludesAnomalyTypeAndBoxing(t *testing.T) {
	idx, err := history.NewIndex(historyfixture.G0())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	anomalies, err := checker.Check(context.Background(), idx, isolation.PL1, checker.Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(anomalies) == 0 {
		t.Fatal("expected at least one anomaly")
	}

	rendered := witness.Render(anomalies[0])
	if !strings.HasPrefix(rendered, "+--------------------------") {
		t.Errorf("expected the box's opening rule, got:\n%s", rendered)
	}
	if !strings.Contains(rendered, "Anomaly type:") {
		t.Errorf("expected an \"Anomaly type:\" line, got:\n%s", rendered)
	}
	if !strings.HasSuffix(rendered, "+--------------------------") {
		t.Errorf("expected the box's closing rule, got:\n%s", rendered)
	}
}
