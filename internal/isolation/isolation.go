// Package isolation names Adya's isolation levels, maps free-form level
// strings onto them, and maps each level onto the set of anomaly kinds it
// proscribes.
package isolation

import (
	"fmt"
	"strings"

	"github.com/adyalab/isocheck/internal/anomaly"
)

// Level is one point in Adya's isolation hierarchy.
type Level int

const (
	PL0 Level = iota
	PL1
	PL2
	PLCS
	PL2L
	PLMSR
	PL2Plus
	PLFCV
	PLSI
	PL299
	PL3U
	PL3
	PLSS
)

var names = map[Level]string{
	PL0:     "PL-0",
	PL1:     "PL-1",
	PL2:     "PL-2",
	PLCS:    "PL-CS - Cursor Stability",
	PL2L:    "PL-2L - Monotonic View",
	PLMSR:   "PL-MSR - Monotonic Snapshot Reads",
	PL2Plus: "PL-2+ - Consistent View",
	PLFCV:   "PL-FCV - Forward Consistent View",
	PLSI:    "PL-SI - Snapshot Isolation",
	PL299:   "PL-2.99 - Repeatable Read",
	PL3U:    "PL-3U - Update Serializability",
	PL3:     "PL-3 - Full Serializability",
	PLSS:    "PL-SS - Strict Serializability",
}

func (l Level) String() string {
	if s, ok := names[l]; ok {
		return s
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseIsolationLevel converts a free-form level string -- an Adya label
// ("PL-2", "PL-3") or a vernacular name ("read committed", "serializable")
// -- into a Level. An empty or too-short string defaults to PL0, per the
// source's treatment of a missing --isolation flag.
func ParseIsolationLevel(s string) (Level, error) {
	if len(s) < 2 {
		return PL0, nil
	}

	s = strings.ToUpper(strings.TrimSpace(s))
	if strings.HasPrefix(s, "PL") {
		suffix := s[2:]
		switch {
		case strings.Contains(suffix, "SS"):
			return PLSS, nil
		case strings.Contains(suffix, "3U"):
			return PL3U, nil
		case strings.Contains(suffix, "99"):
			return PL299, nil
		case strings.Contains(suffix, "SI"):
			return PLSI, nil
		case strings.Contains(suffix, "FCV"):
			return PLFCV, nil
		case strings.Contains(suffix, "+") || strings.Contains(suffix, "PLUS"):
			return PL2Plus, nil
		case strings.Contains(suffix, "MSR"):
			return PLMSR, nil
		case strings.Contains(suffix, "CS"):
			return PLCS, nil
		case strings.Contains(suffix, "2L"):
			return PL2L, nil
		case strings.HasSuffix(suffix, "3"):
			return PL3, nil
		case strings.HasSuffix(suffix, "2"):
			return PL2, nil
		case strings.HasSuffix(suffix, "1"):
			return PL1, nil
		case strings.HasSuffix(suffix, "0"):
			return PL0, nil
		default:
			return 0, fmt.Errorf("unknown PL isolation level: %s", s)
		}
	}

	switch {
	case strings.Contains(s, "CURSOR") && strings.Contains(s, "STABILITY"):
		return PLCS, nil
	case strings.Contains(s, "MONOTONIC") && strings.Contains(s, "VIEW"):
		return PL2L, nil
	case strings.Contains(s, "MONOTONIC") && strings.Contains(s, "SNAPSHOT") && strings.Contains(s, "READS"):
		return PLMSR, nil
	case strings.Contains(s, "CONSISTENT") && strings.Contains(s, "VIEW"):
		if strings.Contains(s, "FORWARD") {
			return PLFCV, nil
		}
		return PL2Plus, nil
	case strings.Contains(s, "SNAPSHOT") && strings.Contains(s, "ISOLATION"):
		return PLSI, nil
	case strings.Contains(s, "REPEATABLE") && strings.Contains(s, "READ"):
		return PL299, nil
	case strings.Contains(s, "SERIALIZIBILITY") || strings.Contains(s, "SERIALIZABLE"):
		switch {
		case strings.Contains(s, "UPDATE"):
			return PL3U, nil
		case strings.Contains(s, "STRICT"):
			return PLSS, nil
		default:
			return PL3, nil
		}
	case strings.Contains(s, "READ"):
		switch {
		case strings.Contains(s, "UNCOMMITTED"):
			return PL1, nil
		case strings.Contains(s, "COMMITTED"):
			return PL2, nil
		}
	}

	return 0, fmt.Errorf("unknown isolation level: %s", s)
}

// Proscribed returns the anomaly kinds level forbids. G1 (the union of
// G1a/G1b/G1c) always stands in for the non-cyclical detector plus the G1c
// cyclical class; cyclical-only kinds are interpreted by a DSG edge mask.
//
// PL3's entry is listed once here; the source table assigns it twice with
// an identical value (a harmless duplicate key), preserved in spirit by
// simply not introducing a second, divergent mapping. PL-SS has no entry
// in the source's mapping table at all (a bare dict lookup would raise
// KeyError) -- faithfully surfaced here as an error rather than silently
// reusing PL-3's proscription, since PL-SS additionally requires real-time
// ordering edges the DSG as specified does not construct (§9).
func Proscribed(level Level) ([]anomaly.Kind, error) {
	switch level {
	case PL0:
		return nil, nil
	case PL1:
		return []anomaly.Kind{anomaly.G0}, nil
	case PL2:
		return []anomaly.Kind{anomaly.G1}, nil
	case PLCS:
		return []anomaly.Kind{anomaly.G1, anomaly.GCursor}, nil
	case PL2L:
		return []anomaly.Kind{anomaly.G1, anomaly.GMonotonic}, nil
	case PLMSR:
		return []anomaly.Kind{anomaly.G1, anomaly.GMSR}, nil
	case PL2Plus:
		return []anomaly.Kind{anomaly.G1, anomaly.GSingle}, nil
	case PLFCV:
		return []anomaly.Kind{anomaly.G1, anomaly.GSIb}, nil
	case PLSI:
		return []anomaly.Kind{anomaly.G1, anomaly.GSI}, nil
	case PL299:
		return []anomaly.Kind{anomaly.G1, anomaly.G2Item}, nil
	case PL3U:
		return []anomaly.Kind{anomaly.G1, anomaly.GUpdate}, nil
	case PL3:
		return []anomaly.Kind{anomaly.G1, anomaly.G2}, nil
	default:
		return nil, fmt.Errorf("isolation level %s has no proscription mapping", level)
	}
}
