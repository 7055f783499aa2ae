// Package anomaly holds the taxonomy of Adya isolation phenomena: the
// cyclical classes (G0, G1c, G2-item, G-single, G-single-item, G2, plus the
// declared-but-unimplemented G-cursor/G-MSR(a,b)/G-SI(a,b)/G-monotonic/
// G-update), the non-cyclical G1a/G1b/G1 union, the implication graph
// between them, and minimal-type classification of a cycle's edge-type
// multiset. It is deliberately table-driven rather than class-hierarchy
// based: each kind is a map entry carrying its description, its edge mask,
// and (for cyclical kinds) its predicate, per the guidance to prefer data
// over subtype polymorphism here.
package anomaly

import (
	"fmt"
	"sort"

	"github.com/adyalab/isocheck/internal/checkerr"
	"github.com/adyalab/isocheck/internal/depgraph"
	"github.com/adyalab/isocheck/internal/history"
)

// Kind names one anomaly class in Adya's hierarchy.
type Kind int

const (
	G0 Kind = iota
	G1C
	G2Item
	GSingle
	GSingleItem
	G2
	GCursor
	GMSRa
	GMSRb
	GMSR
	GMonotonic
	GSIa
	GSIb
	GSI
	GUpdate
	G1A
	G1B
	G1 // union marker: G1A ∪ G1B ∪ G1C
)

var descriptions = map[Kind]string{
	G0:          "G0: write cycles",
	G1C:         "G1c: circular information flow",
	G2Item:      "G2-item: item anti dependency cycle",
	GSingle:     "G-single: single anti dependency cycle",
	GSingleItem: "G-single-item: single item anti dependency cycle",
	G2:          "G2: anti dependency cycle",
	GCursor:     "G-cursor: labeled single anti dependency cycle",
	GMSRa:       "G-MSRa: action interference",
	GMSRb:       "G-MSRb: action missed",
	GMSR:        "G-MSR: missed serializable reads",
	GMonotonic:  "G-monotonic: monotonic reads",
	GSIa:        "G-SIa: interference",
	GSIb:        "G-SIb: missed effects",
	GSI:         "G-SI: snapshot isolation violation",
	GUpdate:     "G-update: single anti dependency cycle with update transmission",
	G1A:         "G1a: read aborted write",
	G1B:         "G1b: read intermediate write",
	G1:          "G1: dirty reads",
}

// Description returns the kind's short human description.
func (k Kind) Description() string {
	if d, ok := descriptions[k]; ok {
		return d
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) String() string { return k.Description() }

// cyclical is the predicate/edge-mask table for kinds produced by cycle
// classification. Declared-but-unimplemented kinds carry a predicate that
// always rejects and an empty edge mask, per the open design question: an
// implementer should preserve this declared-but-silent behavior rather than
// quietly dropping the class.
type cyclical struct {
	edgeTypes []depgraph.EdgeType
	predicate func(edges []depgraph.EdgeType) bool
}

func countOf(edges []depgraph.EdgeType, types ...depgraph.EdgeType) int {
	n := 0
	for _, e := range edges {
		for _, t := range types {
			if e == t {
				n++
				break
			}
		}
	}
	return n
}

func allIn(edges []depgraph.EdgeType, allowed ...depgraph.EdgeType) bool {
	for _, e := range edges {
		ok := false
		for _, a := range allowed {
			if e == a {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func unimplemented(edges []depgraph.EdgeType) bool { return false }

var cyclicalTable = map[Kind]cyclical{
	G0: {
		edgeTypes: []depgraph.EdgeType{depgraph.WW},
		predicate: func(e []depgraph.EdgeType) bool { return allIn(e, depgraph.WW) },
	},
	G1C: {
		edgeTypes: []depgraph.EdgeType{depgraph.WW, depgraph.WR},
		predicate: func(e []depgraph.EdgeType) bool { return allIn(e, depgraph.WW, depgraph.WR) },
	},
	G2Item: {
		edgeTypes: []depgraph.EdgeType{depgraph.WW, depgraph.WR, depgraph.RW},
		predicate: func(e []depgraph.EdgeType) bool {
			return allIn(e, depgraph.WW, depgraph.WR, depgraph.RW) && countOf(e, depgraph.RW) >= 1
		},
	},
	GSingle: {
		edgeTypes: []depgraph.EdgeType{depgraph.WW, depgraph.WR, depgraph.RW, depgraph.PRW},
		predicate: func(e []depgraph.EdgeType) bool {
			return allIn(e, depgraph.WW, depgraph.WR, depgraph.RW, depgraph.PRW) &&
				countOf(e, depgraph.RW, depgraph.PRW) == 1
		},
	},
	GSingleItem: {
		edgeTypes: []depgraph.EdgeType{depgraph.WW, depgraph.WR, depgraph.RW},
		predicate: func(e []depgraph.EdgeType) bool {
			return allIn(e, depgraph.WW, depgraph.WR, depgraph.RW) && countOf(e, depgraph.RW) == 1
		},
	},
	G2: {
		edgeTypes: []depgraph.EdgeType{depgraph.WW, depgraph.WR, depgraph.RW, depgraph.PRW},
		predicate: func(e []depgraph.EdgeType) bool {
			return allIn(e, depgraph.WW, depgraph.WR, depgraph.RW, depgraph.PRW) &&
				countOf(e, depgraph.RW, depgraph.PRW) >= 1
		},
	},
	GCursor:    {edgeTypes: nil, predicate: unimplemented},
	GMSRa:      {edgeTypes: nil, predicate: unimplemented},
	GMSRb:      {edgeTypes: nil, predicate: unimplemented},
	GMonotonic: {edgeTypes: nil, predicate: unimplemented},
	GSIa:       {edgeTypes: nil, predicate: unimplemented},
	GSIb:       {edgeTypes: nil, predicate: unimplemented},
	GUpdate:    {edgeTypes: nil, predicate: unimplemented},
}

func init() {
	// GMSR and GSI are the union of their (a)/(b) sub-predicates, mirroring
	// the source's GMSR/GSI identify_cycle delegating to GMSRA/GMSRB and
	// GSIA/GSIB respectively.
	cyclicalTable[GMSR] = cyclical{
		edgeTypes: nil,
		predicate: func(e []depgraph.EdgeType) bool {
			return cyclicalTable[GMSRa].predicate(e) || cyclicalTable[GMSRb].predicate(e)
		},
	}
	cyclicalTable[GSI] = cyclical{
		edgeTypes: nil,
		predicate: func(e []depgraph.EdgeType) bool {
			return cyclicalTable[GSIa].predicate(e) || cyclicalTable[GSIb].predicate(e)
		},
	}
}

// EdgeTypes returns the edge types a cyclical kind's cycles may contain,
// used to mask the DSG during enumeration. Non-cyclical kinds (G1, G1A,
// G1B) return nil.
func EdgeTypes(k Kind) []depgraph.EdgeType {
	return cyclicalTable[k].edgeTypes
}

// possibleCyclicalKinds is every class classifyCycle tests against, in the
// order the source checks them (more specific/unimplemented kinds first).
var possibleCyclicalKinds = []Kind{
	G0, G1C, GMonotonic, GCursor, GMSRa, GMSRb, GSIa, GSIb, GUpdate,
	GMSR, GSI, GSingleItem, GSingle, G2Item, G2,
}

// implies is the direct (non-transitive) implication relationship: if
// anomaly_type implies X, then detecting anomaly_type also certifies X.
var implies = map[Kind][]Kind{
	G0:          {G1C},
	G1C:         {G1},
	GMonotonic:  {G2Item},
	GCursor:     {G2Item, GSingle},
	GMSRa:       {GMSR},
	GMSRb:       {GMSR},
	GSIa:        {GSI},
	GSIb:        {GSI},
	GUpdate:     {G2},
	GMSR:        {G2},
	GSI:         {G2},
	GSingleItem: {GSingle, G2Item},
	GSingle:     {G2},
	G2Item:      {G2},
	G2:          nil,
	G1A:         {G1},
	G1B:         {G1},
	G1:          nil,
}

// Implies returns the kinds directly implied by k.
func Implies(k Kind) []Kind { return implies[k] }

// Closure returns the transitive closure of Implies starting from k,
// including k itself.
func Closure(k Kind) []Kind {
	seen := map[Kind]bool{k: true}
	queue := []Kind{k}
	result := []Kind{k}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range Implies(cur) {
			if !seen[next] {
				seen[next] = true
				result = append(result, next)
				queue = append(queue, next)
			}
		}
	}
	return result
}

func closureContains(k, target Kind) bool {
	for _, c := range Closure(k) {
		if c == target {
			return true
		}
	}
	return false
}

// ClassifyCycle determines the minimal anomaly kind that a cycle's ordered
// edge-type multiset witnesses. It is an internal invariant that exactly
// one minimal kind exists among the matched candidates; callers should
// treat a violation (0 or >1 minimal kinds) as an internal error.
func ClassifyCycle(edges []depgraph.EdgeType) (Kind, error) {
	var matched []Kind
	for _, k := range possibleCyclicalKinds {
		if cyclicalTable[k].predicate(edges) {
			matched = append(matched, k)
		}
	}
	if len(matched) == 0 {
		return 0, fmt.Errorf("edge multiset %v matches no known anomaly kind: %w", edges, checkerr.ErrInternalInvariant)
	}

	var minimal []Kind
	for i, k := range matched {
		isImpliedByOther := false
		for j, other := range matched {
			if i == j {
				continue
			}
			if closureContains(other, k) {
				isImpliedByOther = true
				break
			}
		}
		if !isImpliedByOther {
			minimal = append(minimal, k)
		}
	}

	if len(minimal) != 1 {
		return 0, fmt.Errorf("cycle with edges %v has %d minimal kinds, expected exactly 1: %v: %w", edges, len(minimal), minimal, checkerr.ErrInternalInvariant)
	}
	return minimal[0], nil
}

// Anomaly is a reported isolation violation: both cyclical (dsg package) and
// non-cyclical (noncyclical package) witnesses implement it.
type Anomaly interface {
	Kind() Kind
	Txns() []*history.ObservedTxn
	Explanation() []string
}

// SortedKeys returns ks sorted for deterministic cache-key construction
// (mirrors the source's sorting requested anomaly types before memoizing
// cycle lookups by them).
func SortedKeys(ks []Kind) []Kind {
	out := append([]Kind(nil), ks...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
