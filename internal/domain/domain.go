// Package domain holds the value types that describe a single client/server
// interaction with the system under test: the operations a transaction
// issues, the results the system returns for them, and the objects those
// operations touch. Everything here is an immutable value type; nothing in
// this package performs I/O or owns mutable state.
package domain

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
)

// OpKind names the tagged variant an Operation carries.
type OpKind int

const (
	OpSetIsolation OpKind = iota
	OpBegin
	OpCommit
	OpRollback
	OpRead
	OpWrite
	OpPredicateRead
)

func (k OpKind) String() string {
	switch k {
	case OpSetIsolation:
		return "set-isolation"
	case OpBegin:
		return "begin"
	case OpCommit:
		return "commit"
	case OpRollback:
		return "rollback"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpPredicateRead:
		return "predicate-read"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// Object identifies a row observed by the system under test: a non-negative
// integer id scoped to a logical table label.
type Object struct {
	ID    int64
	Table string
}

func (o Object) String() string { return fmt.Sprintf("%s#%d", o.Table, o.ID) }

// Operation is a single invocation issued inside a transaction. Which fields
// are meaningful depends on Kind:
//
//	OpWrite          -> Object, Value
//	OpRead           -> Object, ForUpdate
//	OpPredicateRead  -> Tables, Threshold
//	OpSetIsolation   -> IsolationLevel (a string; parsed by internal/isolation)
//	Begin/Commit/Rollback carry no payload.
type Operation struct {
	Kind           OpKind
	Object         Object
	Value          int64
	ForUpdate      bool
	Tables         []string
	Threshold      int
	IsolationLevel string
}

// ResultKind tags the shape of a Result.
type ResultKind int

const (
	// ResultEmptyOK is a successful operation with no payload (begin,
	// commit, rollback, set-isolation, write).
	ResultEmptyOK ResultKind = iota
	// ResultValue is a successful item read: a single version vector.
	ResultValue
	// ResultValues is a successful predicate read: (object id, vector)
	// pairs for every row matching the predicate.
	ResultValues
	// ResultError is a failed operation carrying an opaque error.
	ResultError
)

// ObjectVersion pairs an object id with the version vector a predicate read
// observed for it.
type ObjectVersion struct {
	ObjectID int64
	Vector   []int64
}

// Result is the outcome the system under test reported for one Operation.
type Result struct {
	Kind         ResultKind
	Value        []int64         // populated when Kind == ResultValue
	Values       []ObjectVersion // populated when Kind == ResultValues
	Err          error           // populated when Kind == ResultError
	ValueWritten []int64         // for writes: the full vector actually appended, set at execution time
}

// HistoryElem is a single record in the operation log: one operation, its
// result, and the bookkeeping needed to reconstruct transaction membership
// and ordering.
type HistoryElem struct {
	Op       Operation
	Result   Result
	ConnID   int64
	TxnID    int64
	Invoc    float64 // invocation timestamp
	Resp     float64 // response timestamp
}

// IsError reports whether the element's result was an error.
func (h HistoryElem) IsError() bool { return h.Result.Kind == ResultError }

// resultWire is Result's JSON encoding: Err, an interface, is flattened to
// its message string since the concrete error type carries no information
// the checker reconstructs from.
type resultWire struct {
	Kind         ResultKind
	Value        []int64         `json:",omitempty"`
	Values       []ObjectVersion `json:",omitempty"`
	Err          string          `json:",omitempty"`
	ValueWritten []int64         `json:",omitempty"`
}

// MarshalJSON flattens Err to its message string.
func (r Result) MarshalJSON() ([]byte, error) {
	w := resultWire{Kind: r.Kind, Value: r.Value, Values: r.Values, ValueWritten: r.ValueWritten}
	if r.Err != nil {
		w.Err = r.Err.Error()
	}
	return json.Marshal(w)
}

// UnmarshalJSON reconstructs Err as an opaque error carrying the recorded
// message.
func (r *Result) UnmarshalJSON(data []byte) error {
	var w resultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Kind = w.Kind
	r.Value = w.Value
	r.Values = w.Values
	r.ValueWritten = w.ValueWritten
	if w.Err != "" {
		r.Err = errors.New(w.Err)
	}
	return nil
}

// GobEncode flattens Err to its message string, for the same reason
// MarshalJSON does: gob cannot encode the unexported, unregistered
// concrete type behind a bare errors.New error.
func (r Result) GobEncode() ([]byte, error) {
	w := resultWire{Kind: r.Kind, Value: r.Value, Values: r.Values, ValueWritten: r.ValueWritten}
	if r.Err != nil {
		w.Err = r.Err.Error()
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode reconstructs Err as an opaque error carrying the recorded
// message.
func (r *Result) GobDecode(data []byte) error {
	var w resultWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	r.Kind = w.Kind
	r.Value = w.Value
	r.Values = w.Values
	r.ValueWritten = w.ValueWritten
	if w.Err != "" {
		r.Err = errors.New(w.Err)
	}
	return nil
}
