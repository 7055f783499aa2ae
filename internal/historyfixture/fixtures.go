// Package historyfixture builds the literal history fixtures for the seven
// worked scenarios named in the checker's testable-properties section, so
// the history, dsg, noncyclical and checker packages can all assert against
// the same ground truth without duplicating scenario construction.
package historyfixture

import "github.com/adyalab/isocheck/internal/domain"

const table = "tab"

func obj(id int64) domain.Object { return domain.Object{ID: id, Table: table} }

type builder struct {
	elems []domain.HistoryElem
	t     float64
}

func (b *builder) tick() (float64, float64) {
	b.t++
	invoc := b.t
	b.t += 0.5
	return invoc, b.t
}

func (b *builder) push(txn, conn int64, op domain.Operation, res domain.Result) {
	invoc, resp := b.tick()
	b.elems = append(b.elems, domain.HistoryElem{
		Op: op, Result: res, ConnID: conn, TxnID: txn, Invoc: invoc, Resp: resp,
	})
}

func (b *builder) begin(txn int64) {
	b.push(txn, txn, domain.Operation{Kind: domain.OpBegin}, domain.Result{Kind: domain.ResultEmptyOK})
}

func (b *builder) commit(txn int64) {
	b.push(txn, txn, domain.Operation{Kind: domain.OpCommit}, domain.Result{Kind: domain.ResultEmptyOK})
}

func (b *builder) rollback(txn int64) {
	b.push(txn, txn, domain.Operation{Kind: domain.OpRollback}, domain.Result{Kind: domain.ResultEmptyOK})
}

func (b *builder) write(txn, objID, value int64, written []int64) {
	op := domain.Operation{Kind: domain.OpWrite, Object: obj(objID), Value: value}
	res := domain.Result{Kind: domain.ResultEmptyOK, ValueWritten: written}
	b.push(txn, txn, op, res)
}

func (b *builder) read(txn, objID int64, value []int64) {
	op := domain.Operation{Kind: domain.OpRead, Object: obj(objID)}
	res := domain.Result{Kind: domain.ResultValue, Value: value}
	b.push(txn, txn, op, res)
}

func (b *builder) predicateRead(txn int64, tables []string, threshold int, values []domain.ObjectVersion) {
	op := domain.Operation{Kind: domain.OpPredicateRead, Tables: tables, Threshold: threshold}
	res := domain.Result{Kind: domain.ResultValues, Values: values}
	b.push(txn, txn, op, res)
}

func initObject(b *builder, txn, objID int64) {
	b.begin(txn)
	b.write(txn, objID, 0, []int64{0})
	b.commit(txn)
}

// G0 builds: T1 writes [0,1]; T2 writes [0,1,2] then [0,1,2,3]; T1 writes
// [0,1,2,3,4]; all commit; T3 reads [0,1,2,3,4]. Expected: one G0 cycle
// T1<->T2 via WW(1->2) and WW(3->4).
func G0() []domain.HistoryElem {
	b := &builder{}
	initObject(b, 0, 1)
	b.begin(1)
	b.write(1, 1, 1, []int64{0, 1})
	b.begin(2)
	b.write(2, 1, 2, []int64{0, 1, 2})
	b.write(2, 1, 3, []int64{0, 1, 2, 3})
	b.commit(2)
	b.write(1, 1, 4, []int64{0, 1, 2, 3, 4})
	b.commit(1)
	b.begin(3)
	b.read(3, 1, []int64{0, 1, 2, 3, 4})
	b.commit(3)
	return b.elems
}

// G1c builds: T1 writes [0,1]; T2 writes [0,1,2]; T1 reads [0,1,2]; both
// commit; T3 reads [0,1,2]. Expected: cycle T1->T2 (WW), T2->T1 (WR).
func G1c() []domain.HistoryElem {
	b := &builder{}
	initObject(b, 0, 1)
	b.begin(1)
	b.write(1, 1, 1, []int64{0, 1})
	b.begin(2)
	b.write(2, 1, 2, []int64{0, 1, 2})
	b.commit(2)
	b.read(1, 1, []int64{0, 1, 2})
	b.commit(1)
	b.begin(3)
	b.read(3, 1, []int64{0, 1, 2})
	b.commit(3)
	return b.elems
}

// G2 builds: T0 writes [0]; T1 writes [0,1]; T2 writes [0,1,2] then
// predicate-reads with threshold 3 returning empty; T3 writes [0,1,2,3] (the
// boundary write the predicate missed) then reads the stale [0]. Expected
// cycle T1->T2 (WW), T2->T3 (PRW), T3->T1 (RW): classifies as G2 and is
// reported under PL-3 but not under PL-2.99, since the PRW edge that closes
// the cycle is outside the item-only (WW/WR/RW) projection PL-2.99 uses.
func G2() []domain.HistoryElem {
	b := &builder{}
	initObject(b, 0, 1)
	b.begin(1)
	b.write(1, 1, 1, []int64{0, 1})
	b.commit(1)
	b.begin(2)
	b.write(2, 1, 2, []int64{0, 1, 2})
	b.predicateRead(2, []string{table}, 3, nil)
	b.commit(2)
	b.begin(3)
	b.write(3, 1, 3, []int64{0, 1, 2, 3})
	b.read(3, 1, []int64{0})
	b.commit(3)
	return b.elems
}

// G2Item builds: T1 writes [0,1]; T2 writes [0,1,2], reads [0,1,2]; T3
// writes [0,1,2,3], reads [0]; all commit. Expected: RW edge T3->T1 via the
// next-write lookup, classified as G2-item under PL-2.99.
func G2Item() []domain.HistoryElem {
	b := &builder{}
	initObject(b, 0, 1)
	b.begin(1)
	b.write(1, 1, 1, []int64{0, 1})
	b.commit(1)
	b.begin(2)
	b.write(2, 1, 2, []int64{0, 1, 2})
	b.read(2, 1, []int64{0, 1, 2})
	b.commit(2)
	b.begin(3)
	b.write(3, 1, 3, []int64{0, 1, 2, 3})
	b.read(3, 1, []int64{0})
	b.commit(3)
	return b.elems
}

// G1a builds: T1 writes [0,1], rolls back; T2 reads [0,1], commits.
// Expected: one G1a anomaly, no G1b.
func G1a() []domain.HistoryElem {
	b := &builder{}
	initObject(b, 0, 1)
	b.begin(1)
	b.write(1, 1, 1, []int64{0, 1})
	b.rollback(1)
	b.begin(2)
	b.read(2, 1, []int64{0, 1})
	b.commit(2)
	return b.elems
}

// G1b builds: T1 writes [0,1] then [0,1,2], commits; T2 reads the
// intermediate value [0,1], commits. Expected: one G1b anomaly, no G1a.
func G1b() []domain.HistoryElem {
	b := &builder{}
	initObject(b, 0, 1)
	b.begin(1)
	b.write(1, 1, 1, []int64{0, 1})
	b.write(1, 1, 2, []int64{0, 1, 2})
	b.commit(1)
	b.begin(2)
	b.read(2, 1, []int64{0, 1})
	b.commit(2)
	return b.elems
}
