// Package generator produces synthetic concurrent histories that exercise
// the checker: a pool of simulated connections, each driving a sequence of
// begin/read/write/predicate-read/commit-or-rollback operations against a
// shared in-memory object store, with every invocation/response pair
// recorded as a domain.HistoryElem. It is the external "workload generator"
// collaborator described by the core's interfaces, not part of the checker
// itself.
//
// Grounded on frodo/generator.py's gen_history, reworked from Python's
// multiprocessing.Queue producer/consumer pair into goroutines and
// channels, and on frodo/db.py's DBConn abstraction -- re-scoped from a SQL
// connection (execute(sql) -> rows) to a domain-operation connection
// (Execute(Operation) -> Result), since this checker's core only needs to
// observe typed operations and results, not SQL text.
package generator

import (
	"context"

	"github.com/adyalab/isocheck/internal/domain"
)

// Conn is the DB collaborator interface from the core's external
// interfaces: a connection abstraction the generator drives and the
// checker never calls. Execute runs a single domain.Operation and returns
// the Result the system under test produced for it.
type Conn interface {
	// Execute runs op against the connection's current transaction (or,
	// for Begin/SetIsolation, establishes it) and returns the observed
	// result.
	Execute(ctx context.Context, op domain.Operation) (domain.Result, error)

	// Reset abandons any in-progress transaction on this connection,
	// simulating the connection drop a nemesis injects.
	Reset() error

	// IsConnected reports whether the connection is currently usable.
	IsConnected() bool

	// ProcessException lets the connection react to an operation error,
	// e.g. by marking itself disconnected.
	ProcessException(err error)
}
