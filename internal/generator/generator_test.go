package generator_test

import (
	"context"
	"testing"

	"github.com/adyalab/isocheck/internal/generator"
	"github.com/adyalab/isocheck/internal/history"
)

func TestGenerateProducesIndexableHistory(t *testing.T) {
	cfg := generator.Config{
		Connections:       3,
		Objects:           8,
		Tables:            []string{"t0", "t1"},
		TransactionLimit:  20,
		AbortRate:         0.15,
		WriteRate:         0.33,
		PredicateReadRate: 0.10,
		IsolationLevel:    "serializable",
		Seed:              42,
	}

	store := generator.NewStore()
	conns := make([]generator.Conn, cfg.Connections)
	for i := range conns {
		conns[i] = generator.NewConn(store)
	}

	elems, err := generator.Generate(context.Background(), cfg, conns, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(elems) == 0 {
		t.Fatal("expected a non-empty history")
	}

	idx, err := history.NewIndex(elems)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	first, last := idx.TxnRange()
	if first != 0 {
		t.Errorf("expected the first transaction to be id 0, got %d", first)
	}
	if last <= first {
		t.Errorf("expected more than one transaction, got range [%d,%d]", first, last)
	}
}

func TestGenerateRequiresAConnection(t *testing.T) {
	cfg := generator.Config{Objects: 4, Tables: []string{"t0"}}
	if _, err := generator.Generate(context.Background(), cfg, nil, nil); err == nil {
		t.Error("expected an error with no connections")
	}
}

func TestConnDropNemesisHealsOnRequest(t *testing.T) {
	c := generator.NewConn(generator.NewStore())
	dc := c.(generator.Disconnecter)
	n := generator.NewConnDropNemesis([]generator.Disconnecter{dc}, 0, 0, 1)

	dc.Disconnect()
	if c.IsConnected() {
		t.Fatal("expected the connection to be disconnected")
	}
	if err := n.Heal(context.Background()); err != nil {
		t.Fatalf("Heal: %v", err)
	}
	if !c.IsConnected() {
		t.Error("expected Heal to reconnect the connection")
	}
}
