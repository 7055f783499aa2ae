package generator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Nemesis is a pluggable fault injector, ported from frodo/nemesis.py's
// abstract base class: Inject introduces a fault and must return quickly
// (the driver loop calls it repeatedly, so it must not block
// unboundedly); Heal makes the system ready to be inspected once the
// workload finishes.
type Nemesis interface {
	Inject(ctx context.Context) error
	Heal(ctx context.Context) error
}

// Disconnecter is the subset of Conn a nemesis needs to drop and restore a
// connection; the connections NewConn returns satisfy it.
type Disconnecter interface {
	Disconnect()
	Reconnect()
}

// ConnDropNemesis periodically disconnects a random connection and
// reconnects it shortly after, simulating the flaky-network fault
// frodo.nemesis targets. Scheduling follows the same ticker-driven idiom
// as storage.RateLimiter's token refill rather than a true Poisson
// process, which the Python original does not implement either (its
// nemeses are user-supplied subclasses; frodo ships no concrete one).
type ConnDropNemesis struct {
	conns    []Disconnecter
	interval time.Duration
	downFor  time.Duration
	rnd      *rand.Rand
}

// NewConnDropNemesis builds a nemesis that drops one of conns roughly
// every interval, holding it down for downFor before healing it.
func NewConnDropNemesis(conns []Disconnecter, interval, downFor time.Duration, seed int64) *ConnDropNemesis {
	return &ConnDropNemesis{
		conns:    conns,
		interval: interval,
		downFor:  downFor,
		rnd:      rand.New(rand.NewSource(seed)),
	}
}

// Inject disconnects one random connection, waits downFor (bounded by
// ctx), then reconnects it. A single call never blocks past
// interval+downFor, keeping it compatible with a caller-driven loop.
func (n *ConnDropNemesis) Inject(ctx context.Context) error {
	if len(n.conns) == 0 {
		return nil
	}
	select {
	case <-time.After(n.interval):
	case <-ctx.Done():
		return ctx.Err()
	}

	victim := n.conns[n.rnd.Intn(len(n.conns))]
	victim.Disconnect()

	select {
	case <-time.After(n.downFor):
	case <-ctx.Done():
	}
	victim.Reconnect()
	return ctx.Err()
}

// Heal reconnects every connection unconditionally, in case Inject left
// one down when the workload finished.
func (n *ConnDropNemesis) Heal(ctx context.Context) error {
	for _, c := range n.conns {
		c.Reconnect()
	}
	return nil
}

// CronNemesis schedules connection drops on a real CRON expression instead
// of ConnDropNemesis's fixed ticker, for operators who want fault injection
// on a wall-clock schedule (e.g. "every 2 minutes", "at the top of the
// hour"). Grounded directly on storage.Scheduler's use of
// github.com/robfig/cron/v3 (internal/storage/scheduler.go): a
// cron.New(cron.WithSeconds()) instance running AddFunc callbacks, started
// and stopped the same way storage.Scheduler.Start/Stop drive theirs.
type CronNemesis struct {
	conns   []Disconnecter
	downFor time.Duration
	rnd     *rand.Rand

	mu  sync.Mutex
	c   *cron.Cron
	ctx context.Context
}

// NewCronNemesis builds a nemesis that drops a random connection on every
// firing of expr (six-field CRON with a leading seconds field, or a
// descriptor such as "@every 1m"; same parser storage.Scheduler configures:
// Second|Minute|Hour|Dom|Month|Dow|Descriptor; plain five-field expressions
// are rejected), holding it down for downFor before reconnecting it.
func NewCronNemesis(conns []Disconnecter, expr string, downFor time.Duration, seed int64) (*CronNemesis, error) {
	n := &CronNemesis{
		conns:   conns,
		downFor: downFor,
		rnd:     rand.New(rand.NewSource(seed)),
		c:       cron.New(cron.WithSeconds()),
	}
	if _, err := n.c.AddFunc(expr, n.fire); err != nil {
		return nil, fmt.Errorf("generator: invalid nemesis schedule %q: %w", expr, err)
	}
	return n, nil
}

func (n *CronNemesis) fire() {
	n.mu.Lock()
	ctx := n.ctx
	n.mu.Unlock()
	if len(n.conns) == 0 || ctx == nil {
		return
	}
	victim := n.conns[n.rnd.Intn(len(n.conns))]
	victim.Disconnect()
	select {
	case <-time.After(n.downFor):
	case <-ctx.Done():
	}
	victim.Reconnect()
}

// Inject starts the cron scheduler on first call and blocks until ctx is
// cancelled, matching the driver loop's "call Inject repeatedly" contract
// by treating a single call as "run until told to stop" instead -- the
// scheduler itself owns the firing cadence from here on.
func (n *CronNemesis) Inject(ctx context.Context) error {
	n.mu.Lock()
	n.ctx = ctx
	n.mu.Unlock()
	n.c.Start()
	<-ctx.Done()
	return ctx.Err()
}

// Heal stops the scheduler and reconnects every connection unconditionally.
func (n *CronNemesis) Heal(ctx context.Context) error {
	stopCtx := n.c.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	for _, c := range n.conns {
		c.Reconnect()
	}
	return nil
}
