// Package historyio (de)serializes a recorded history. The default format
// is newline-delimited JSON, one domain.HistoryElem per line, chosen for
// its streamability: a writer can append element-by-element as a
// generator produces them, and a reader can process the file without
// holding it entirely in memory. A gob-based binary codec is offered as a
// denser alternative, in the spirit of the teacher's own whole-snapshot
// encoding/gob use.
package historyio

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"

	"github.com/adyalab/isocheck/internal/domain"
)

// Format selects the on-disk encoding.
type Format int

const (
	// FormatNDJSON writes one JSON object per line.
	FormatNDJSON Format = iota
	// FormatGob writes a single gob-encoded slice.
	FormatGob
)

// Write serializes elems to w in the requested format.
func Write(w io.Writer, elems []domain.HistoryElem, format Format) error {
	switch format {
	case FormatNDJSON:
		return writeNDJSON(w, elems)
	case FormatGob:
		return gob.NewEncoder(w).Encode(elems)
	default:
		return fmt.Errorf("historyio: unknown format %d", format)
	}
}

func writeNDJSON(w io.Writer, elems []domain.HistoryElem) error {
	enc := json.NewEncoder(w)
	for _, el := range elems {
		if err := enc.Encode(el); err != nil {
			return fmt.Errorf("historyio: encoding element for T%d: %w", el.TxnID, err)
		}
	}
	return nil
}

// Read deserializes a history previously written by Write in the same
// format.
func Read(r io.Reader, format Format) ([]domain.HistoryElem, error) {
	switch format {
	case FormatNDJSON:
		return readNDJSON(r)
	case FormatGob:
		var elems []domain.HistoryElem
		if err := gob.NewDecoder(r).Decode(&elems); err != nil {
			return nil, fmt.Errorf("historyio: gob decode: %w", err)
		}
		return elems, nil
	default:
		return nil, fmt.Errorf("historyio: unknown format %d", format)
	}
}

func readNDJSON(r io.Reader) ([]domain.HistoryElem, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var elems []domain.HistoryElem
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var el domain.HistoryElem
		if err := json.Unmarshal(line, &el); err != nil {
			return nil, fmt.Errorf("historyio: decoding line %d: %w", len(elems)+1, err)
		}
		elems = append(elems, el)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("historyio: scanning: %w", err)
	}
	return elems, nil
}
