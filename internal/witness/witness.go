// Package witness renders an anomaly.Anomaly into the boxed, human-readable
// report format: the anomaly's description, the transactions involved, and
// its ordered explanation.
package witness

import (
	"fmt"
	"strings"

	"github.com/adyalab/isocheck/internal/anomaly"
)

// Render formats a as the teacher's "+----/| Anomaly type: .../+----" box.
func Render(a anomaly.Anomaly) string {
	var txns []string
	for _, t := range a.Txns() {
		txns = append(txns, "\t "+t.String())
	}

	var steps []string
	for i, m := range a.Explanation() {
		steps = append(steps, fmt.Sprintf("\t %d: %s", i+1, m))
	}

	var b strings.Builder
	b.WriteString("+--------------------------\n")
	fmt.Fprintf(&b, "| Anomaly type: %s\n", a.Kind().Description())
	b.WriteString("|\n")
	b.WriteString("| Let:\n")
	b.WriteString("|" + strings.Join(txns, "\n|") + "\n")
	b.WriteString("|\n")
	b.WriteString("| Then:\n")
	b.WriteString("|" + strings.Join(steps, "\n|") + "\n")
	b.WriteString("+--------------------------")
	return b.String()
}

// RenderAll renders every anomaly, each box separated by a blank line.
func RenderAll(anomalies []anomaly.Anomaly) string {
	var parts []string
	for _, a := range anomalies {
		parts = append(parts, Render(a))
	}
	return strings.Join(parts, "\n\n")
}
