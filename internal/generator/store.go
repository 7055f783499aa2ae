package generator

import (
	"context"
	"fmt"
	"sync"

	"github.com/adyalab/isocheck/internal/domain"
)

// versionChain is an object's append-only vector plus the table it was
// created under, mirroring storage.RowVersion's XMin/Data pairing but
// keyed on the checker's version-vector model instead of a row snapshot.
type versionChain struct {
	table  string
	vector []int64
}

// Store is the shared, in-memory object backing every connection in a
// generated workload: every object is an append-only integer vector,
// guarded by a single sync.RWMutex, the same per-manager locking idiom
// storage.MVCCManager uses for activeTxs/commitLog. It implements no
// isolation or conflict detection of its own -- its job is to generate
// histories for the checker to classify, not to enforce correctness
// itself.
type Store struct {
	mu      sync.RWMutex
	objects map[int64]*versionChain
}

// NewStore creates an empty, shared object store.
func NewStore() *Store {
	return &Store{objects: make(map[int64]*versionChain)}
}

func (s *Store) read(objID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain, ok := s.objects[objID]
	if !ok {
		return nil, fmt.Errorf("generator: object %d does not exist", objID)
	}
	return append([]int64(nil), chain.vector...), nil
}

func (s *Store) write(obj domain.Object, value int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain, ok := s.objects[obj.ID]
	if !ok {
		chain = &versionChain{table: obj.Table}
		s.objects[obj.ID] = chain
	}
	chain.vector = append(chain.vector, value)
	return append([]int64(nil), chain.vector...), nil
}

// predicateRead implements the generator-emitted predicate: return
// (id, vector) for every object belonging to one of tables whose vector
// length exceeds threshold -- the Go-side semantics of spec.md §6's
// "number of comma-separated components of value exceeds k".
func (s *Store) predicateRead(tables []string, threshold int) []domain.ObjectVersion {
	want := make(map[string]bool, len(tables))
	for _, t := range tables {
		want[t] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ObjectVersion
	for id, chain := range s.objects {
		if !want[chain.table] || len(chain.vector) <= threshold {
			continue
		}
		out = append(out, domain.ObjectVersion{ObjectID: id, Vector: append([]int64(nil), chain.vector...)})
	}
	return out
}

// conn is a single simulated connection into a shared Store, implementing
// Conn. Its transaction bookkeeping (isolation level, connectedness) is
// private to this connection, while object data lives in the Store every
// conn shares -- matching tinySQL's split between a per-connection
// TxContext and a shared MVCCManager/MVCCTable.
type conn struct {
	store *Store

	mu        sync.Mutex
	connected bool
	isolation string
}

// NewConn returns a new connection onto the shared store.
func NewConn(store *Store) Conn {
	return &conn{store: store, connected: true}
}

// Execute implements Conn.
func (c *conn) Execute(ctx context.Context, op domain.Operation) (domain.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return domain.Result{}, fmt.Errorf("generator: connection is not connected")
	}

	switch op.Kind {
	case domain.OpSetIsolation:
		c.isolation = op.IsolationLevel
		return domain.Result{Kind: domain.ResultEmptyOK}, nil

	case domain.OpBegin, domain.OpCommit, domain.OpRollback:
		return domain.Result{Kind: domain.ResultEmptyOK}, nil

	case domain.OpRead:
		vec, err := c.store.read(op.Object.ID)
		if err != nil {
			return domain.Result{}, err
		}
		return domain.Result{Kind: domain.ResultValue, Value: vec}, nil

	case domain.OpWrite:
		vec, err := c.store.write(op.Object, op.Value)
		if err != nil {
			return domain.Result{}, err
		}
		return domain.Result{Kind: domain.ResultEmptyOK, ValueWritten: vec}, nil

	case domain.OpPredicateRead:
		vals := c.store.predicateRead(op.Tables, op.Threshold)
		return domain.Result{Kind: domain.ResultValues, Values: vals}, nil

	default:
		return domain.Result{}, fmt.Errorf("generator: unknown operation kind %v", op.Kind)
	}
}

// Reset implements Conn: a dropped connection has no in-progress
// transaction once it resumes.
func (c *conn) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isolation = ""
	return nil
}

// IsConnected implements Conn.
func (c *conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ProcessException implements Conn. The connection never disconnects
// itself on an application-level error (e.g. object-not-found); only
// Disconnect does.
func (c *conn) ProcessException(err error) {}

// Disconnect marks the connection unusable, the effect a nemesis's fault
// injection has.
func (c *conn) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

// Reconnect restores a disconnected connection, the effect healing has.
func (c *conn) Reconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
}
