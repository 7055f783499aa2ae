package historyio_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/adyalab/isocheck/internal/domain"
	"github.com/adyalab/isocheck/internal/historyfixture"
	"github.com/adyalab/isocheck/internal/historyio"
)

func TestRoundTripNDJSON(t *testing.T) {
	elems := historyfixture.G0()

	var buf bytes.Buffer
	if err := historyio.Write(&buf, elems, historyio.FormatNDJSON); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := historyio.Read(&buf, historyio.FormatNDJSON)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != len(elems) {
		t.Fatalf("expected %d elements, got %d", len(elems), len(got))
	}
	for i := range elems {
		if got[i].TxnID != elems[i].TxnID || got[i].Op.Kind != elems[i].Op.Kind {
			t.Errorf("element %d: got %+v, want %+v", i, got[i], elems[i])
		}
	}
}

func TestRoundTripGob(t *testing.T) {
	elems := historyfixture.G0()

	var buf bytes.Buffer
	if err := historyio.Write(&buf, elems, historyio.FormatGob); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := historyio.Read(&buf, historyio.FormatGob)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != len(elems) {
		t.Fatalf("expected %d elements, got %d", len(elems), len(got))
	}
}

func TestRoundTripPreservesErrorMessage(t *testing.T) {
	elems := []domain.HistoryElem{
		{
			Op:     domain.Operation{Kind: domain.OpRead, Object: domain.Object{ID: 1, Table: "t"}},
			Result: domain.Result{Kind: domain.ResultError, Err: errors.New("boom")},
			TxnID:  1,
		},
	}

	var buf bytes.Buffer
	if err := historyio.Write(&buf, elems, historyio.FormatNDJSON); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := historyio.Read(&buf, historyio.FormatNDJSON)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 1 || got[0].Result.Err == nil || got[0].Result.Err.Error() != "boom" {
		t.Errorf("expected the error message to round-trip, got %+v", got)
	}
}
