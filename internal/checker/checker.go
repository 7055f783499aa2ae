// Package checker orchestrates the full isolation check: it runs the
// non-cyclical detector when G1 is proscribed, enumerates cyclical
// witnesses from the Direct Serialization Graph over the union of the
// proscribed classes' edge masks, and reports every witness whose minimal
// type's implication closure intersects what the level proscribes.
package checker

import (
	"context"
	"fmt"

	"github.com/adyalab/isocheck/internal/anomaly"
	"github.com/adyalab/isocheck/internal/dsg"
	"github.com/adyalab/isocheck/internal/history"
	"github.com/adyalab/isocheck/internal/isolation"
	"github.com/adyalab/isocheck/internal/noncyclical"
)

// Options tunes a Check call; the zero value runs unbounded.
type Options struct {
	// Limit stops anomaly collection once this many witnesses have been
	// found. Zero means unlimited.
	Limit int
}

// Check decides whether hist is admissible under level, returning every
// witnessed violation. ctx is checked between witnesses, so a long
// enumeration over a large history can be cancelled without waiting for it
// to run to completion.
func Check(ctx context.Context, hist *history.Index, level isolation.Level, opts Options) ([]anomaly.Anomaly, error) {
	proscribed, err := isolation.Proscribed(level)
	if err != nil {
		return nil, err
	}
	proscribedSet := make(map[anomaly.Kind]bool, len(proscribed))
	for _, k := range proscribed {
		proscribedSet[k] = true
	}

	var witnesses []anomaly.Anomaly

	if proscribedSet[anomaly.G1] {
		g1a, err := noncyclical.FindG1A(hist)
		if err != nil {
			return nil, fmt.Errorf("finding G1a anomalies: %w", err)
		}
		for _, a := range g1a {
			witnesses = append(witnesses, a)
			if opts.Limit > 0 && len(witnesses) >= opts.Limit {
				return witnesses, nil
			}
		}

		g1b, err := noncyclical.FindG1B(hist)
		if err != nil {
			return nil, fmt.Errorf("finding G1b anomalies: %w", err)
		}
		for _, a := range g1b {
			witnesses = append(witnesses, a)
			if opts.Limit > 0 && len(witnesses) >= opts.Limit {
				return witnesses, nil
			}
		}
	}

	cyclicalKinds := cyclicalOnly(proscribed)

	graph, err := dsg.Build(hist)
	if err != nil {
		return nil, fmt.Errorf("building the Direct Serialization Graph: %w", err)
	}

	it, err := graph.FindAnomalies(cyclicalKinds)
	if err != nil {
		return nil, fmt.Errorf("enumerating cyclical anomalies: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return witnesses, err
		}

		w, err := it.Next()
		if err != nil {
			break
		}
		witnesses = append(witnesses, w)
		if opts.Limit > 0 && len(witnesses) >= opts.Limit {
			break
		}
	}

	return witnesses, nil
}

// cyclicalOnly replaces the G1 union marker with its cyclical member G1c,
// leaving only kinds the DSG can enumerate cycles for.
func cyclicalOnly(kinds []anomaly.Kind) []anomaly.Kind {
	var out []anomaly.Kind
	for _, k := range kinds {
		if k == anomaly.G1 {
			out = append(out, anomaly.G1C)
			continue
		}
		out = append(out, k)
	}
	return out
}
