package isolation_test

import (
	"testing"

	"github.com/adyalab/isocheck/internal/anomaly"
	"github.com/adyalab/isocheck/internal/isolation"
)

func TestParseIsolationLevel(t *testing.T) {
	cases := map[string]isolation.Level{
		"":                         isolation.PL0,
		"PL-0":                     isolation.PL0,
		"pl-2":                     isolation.PL2,
		"PL-2.99":                  isolation.PL299,
		"PL-3":                     isolation.PL3,
		"PL-SS":                    isolation.PLSS,
		"serializable":             isolation.PL3,
		"strict serializable":      isolation.PLSS,
		"repeatable read":          isolation.PL299,
		"read committed":           isolation.PL2,
		"read uncommitted":         isolation.PL1,
		"snapshot isolation":       isolation.PLSI,
		"monotonic snapshot reads": isolation.PLMSR,
	}
	for in, want := range cases {
		got, err := isolation.ParseIsolationLevel(in)
		if err != nil {
			t.Errorf("ParseIsolationLevel(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseIsolationLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseIsolationLevelUnknown(t *testing.T) {
	if _, err := isolation.ParseIsolationLevel("nonsense"); err == nil {
		t.Error("expected an error for an unrecognized isolation level string")
	}
}

func TestProscribedPL299(t *testing.T) {
	kinds, err := isolation.Proscribed(isolation.PL299)
	if err != nil {
		t.Fatalf("Proscribed(PL299): %v", err)
	}
	var sawG1, sawG2Item bool
	for _, k := range kinds {
		if k == anomaly.G1 {
			sawG1 = true
		}
		if k == anomaly.G2Item {
			sawG2Item = true
		}
	}
	if !sawG1 || !sawG2Item {
		t.Errorf("expected PL-2.99 to proscribe {G1, G2Item}, got %v", kinds)
	}
}

func TestProscribedPLSSUnmapped(t *testing.T) {
	if _, err := isolation.Proscribed(isolation.PLSS); err == nil {
		t.Error("expected PL-SS to have no proscription mapping, matching the source's missing table entry")
	}
}
