// Package engine wires the pager, B+tree, transaction, statistics, and
// planner packages into the single entry point callers use: a Table that
// executes Insert/Select/Update/Delete statements and a handful of meta
// operations (spec §4.5, §6).
package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"vqlitedb/pager"
	"vqlitedb/planner"
	"vqlitedb/stats"
	"vqlitedb/table"
	"vqlitedb/txn"
)

// ResultCode classifies the outcome of a statement (spec §6).
type ResultCode string

const (
	Success      ResultCode = "success"
	DuplicateKey ResultCode = "duplicate_key"
	TableFull    ResultCode = "table_full"
	KeyNotFound  ResultCode = "key_not_found"
	Error        ResultCode = "error"
)

// Result is the outcome of any dispatched statement.
type Result struct {
	Code    ResultCode
	Rows    []table.Row
	Message string
}

func errResult(err error) Result {
	if errors.Is(err, pager.ErrTableFull) {
		return Result{Code: TableFull, Message: err.Error()}
	}
	return Result{Code: Error, Message: err.Error()}
}

// Table is the façade over one open data file: pager, B+tree, the single
// transaction slot, cached statistics, and an optional background analyze
// scheduler.
type Table struct {
	pager     *pager.Pager
	tx        *txn.Transaction
	tree      *table.BTree
	stats     stats.TableStats
	scheduler *stats.Scheduler
	log       *zap.SugaredLogger
}

// Open opens (creating if necessary) the page file at path.
func Open(path string, analyzeCronSpec string, log *zap.SugaredLogger) (*Table, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	p, err := pager.Open(path, log)
	if err != nil {
		return nil, err
	}
	fresh := p.NumPages() == 0
	tx := txn.New(p, log)
	bt, err := table.NewBTree(tx, fresh)
	if err != nil {
		return nil, err
	}
	t := &Table{pager: p, tx: tx, tree: bt, log: log}

	if !fresh {
		if _, err := t.Analyze(); err != nil {
			return nil, fmt.Errorf("engine: analyzing on open: %w", err)
		}
	}

	if analyzeCronSpec != "" {
		t.scheduler = stats.NewScheduler(log)
		if err := t.scheduler.Start(analyzeCronSpec, func() {
			if _, err := t.Analyze(); err != nil {
				log.Errorw("scheduled analyze failed", "err", err)
			}
		}); err != nil {
			return nil, fmt.Errorf("engine: starting analyze scheduler: %w", err)
		}
	}
	return t, nil
}

// Close stops any scheduler, commits a dangling transaction, and flushes
// the pager.
func (t *Table) Close() error {
	if t.scheduler != nil {
		t.scheduler.Stop()
	}
	if err := t.tx.Close(); err != nil {
		return err
	}
	return t.pager.Close()
}

// Insert adds a row. It returns DuplicateKey if id already exists and
// TableFull if the cache bound is reached mid-split.
func (t *Table) Insert(id uint32, username, email string) Result {
	row, err := table.NewRow(id, username, email)
	if err != nil {
		return errResult(err)
	}
	dup, err := t.tree.Insert(id, row)
	if err != nil {
		return errResult(err)
	}
	if dup {
		return Result{Code: DuplicateKey, Message: fmt.Sprintf("row with id %d already exists", id)}
	}
	return Result{Code: Success}
}

// Select scans rows matching expr (nil selects every row), using the
// planner to choose a full scan, an index lookup, or a range scan.
func (t *Table) Select(expr planner.Expr) Result {
	plan := planner.Choose(expr, t.stats)
	t.log.Debugw("select plan chosen", "kind", plan.Kind, "est_cost", plan.EstCost)

	var rows []table.Row
	switch plan.Kind {
	case planner.IndexLookup:
		row, found, err := t.tree.Get(plan.LookupKey)
		if err != nil {
			return errResult(err)
		}
		if found {
			ok, err := expr.Eval(row)
			if err != nil {
				return errResult(err)
			}
			if ok {
				rows = append(rows, row)
			}
		}
		return Result{Code: Success, Rows: rows}
	case planner.RangeScan:
		cur, err := t.rangeStart(plan)
		if err != nil {
			return errResult(err)
		}
		for cur.Valid() {
			key, err := cur.Key()
			if err != nil {
				return errResult(err)
			}
			if plan.High != nil && key > *plan.High {
				break
			}
			row, err := cur.Row()
			if err != nil {
				return errResult(err)
			}
			if expr != nil {
				ok, err := expr.Eval(row)
				if err != nil {
					return errResult(err)
				}
				if !ok {
					if err := cur.Advance(); err != nil {
						return errResult(err)
					}
					continue
				}
			}
			rows = append(rows, row)
			if err := cur.Advance(); err != nil {
				return errResult(err)
			}
		}
		return Result{Code: Success, Rows: rows}
	default: // FullScan
		cur, err := t.tree.Start()
		if err != nil {
			return errResult(err)
		}
		for cur.Valid() {
			row, err := cur.Row()
			if err != nil {
				return errResult(err)
			}
			match := true
			if expr != nil {
				match, err = expr.Eval(row)
				if err != nil {
					return errResult(err)
				}
			}
			if match {
				rows = append(rows, row)
			}
			if err := cur.Advance(); err != nil {
				return errResult(err)
			}
		}
		return Result{Code: Success, Rows: rows}
	}
}

func (t *Table) rangeStart(plan planner.Plan) (*table.Cursor, error) {
	if plan.Low != nil {
		return t.tree.Find(*plan.Low)
	}
	return t.tree.Start()
}

// Update rewrites the row at id in place via mutate, leaving id itself
// unchanged. It returns KeyNotFound if no such row exists.
func (t *Table) Update(id uint32, mutate func(*table.Row)) Result {
	found, err := t.tree.UpdateInPlace(id, mutate)
	if err != nil {
		return errResult(err)
	}
	if !found {
		return Result{Code: KeyNotFound, Message: fmt.Sprintf("no row with id %d", id)}
	}
	return Result{Code: Success}
}

// UpdateWhere rewrites every row matching expr (nil matches every row) via
// mutate, leaving each row's id unchanged. Per spec §4.5, a trivial
// `id = k` WHERE goes straight to the planner's index lookup and updates in
// place; anything else walks the chosen scan, evaluating expr per row and
// updating matches without disturbing cursor iteration (UpdateInPlace never
// changes tree shape). Returns KeyNotFound if nothing matched.
func (t *Table) UpdateWhere(expr planner.Expr, mutate func(*table.Row)) Result {
	plan := planner.Choose(expr, t.stats)
	t.log.Debugw("update plan chosen", "kind", plan.Kind, "est_cost", plan.EstCost)

	if _, trivial := expr.(*planner.Basic); trivial && plan.Kind == planner.IndexLookup {
		return t.Update(plan.LookupKey, mutate)
	}

	cur, err := t.rangeStart(plan)
	if err != nil {
		return errResult(err)
	}

	matched := 0
	for cur.Valid() {
		key, err := cur.Key()
		if err != nil {
			return errResult(err)
		}
		if plan.High != nil && key > *plan.High {
			break
		}
		row, err := cur.Row()
		if err != nil {
			return errResult(err)
		}
		match := true
		if expr != nil {
			match, err = expr.Eval(row)
			if err != nil {
				return errResult(err)
			}
		}
		if match {
			if _, err := t.tree.UpdateInPlace(key, mutate); err != nil {
				return errResult(err)
			}
			matched++
		}
		if err := cur.Advance(); err != nil {
			return errResult(err)
		}
	}
	if matched == 0 {
		return Result{Code: KeyNotFound, Message: "no row matched the given WHERE clause"}
	}
	return Result{Code: Success}
}

// Delete removes the row at id. It returns KeyNotFound if no such row
// exists.
func (t *Table) Delete(id uint32) Result {
	found, err := t.tree.Delete(id)
	if err != nil {
		return errResult(err)
	}
	if !found {
		return Result{Code: KeyNotFound, Message: fmt.Sprintf("no row with id %d", id)}
	}
	return Result{Code: Success}
}

// bulkDeleteCap bounds how many matching ids DeleteWhere will accumulate
// before deleting, per spec §4.5's documented (and deliberately unoptimized)
// limit on compound-WHERE deletes.
const bulkDeleteCap = 1000

// DeleteWhere deletes every row matching expr (nil deletes every row). It
// first accumulates matching ids, up to bulkDeleteCap, then deletes them in
// descending id order so earlier deletions never invalidate a cursor still
// needed for a later one. Matches beyond the cap are left in place and
// logged, rather than silently dropped.
func (t *Table) DeleteWhere(expr planner.Expr) Result {
	sel := t.Select(expr)
	if sel.Code != Success {
		return sel
	}

	ids := make([]uint32, 0, len(sel.Rows))
	for _, row := range sel.Rows {
		ids = append(ids, row.ID)
	}
	truncated := false
	if len(ids) > bulkDeleteCap {
		t.log.Warnw("bulk delete truncated", "matched", len(ids), "cap", bulkDeleteCap)
		ids = ids[:bulkDeleteCap]
		truncated = true
	}

	// Descending order: deleting a higher id first never shifts the cell
	// index a not-yet-deleted lower id lives at within its own leaf.
	for i := len(ids) - 1; i >= 0; i-- {
		if _, err := t.tree.Delete(ids[i]); err != nil {
			return errResult(err)
		}
	}

	msg := ""
	if truncated {
		msg = fmt.Sprintf("truncated to %d of %d matching rows", bulkDeleteCap, len(sel.Rows))
	}
	return Result{Code: Success, Message: msg}
}

// BeginTransaction, Commit, and Rollback expose the table's single
// transaction slot (spec §4.4, §6).
func (t *Table) BeginTransaction() error { return t.tx.Begin() }
func (t *Table) Commit() error           { return t.tx.Commit() }
func (t *Table) Rollback() error         { return t.tx.Rollback() }

// Analyze runs a full scan to refresh cached statistics and returns them.
func (t *Table) Analyze() (stats.TableStats, error) {
	s, err := stats.Analyze(t.tree)
	if err != nil {
		return s, err
	}
	t.stats = s
	t.log.Infow("analyze complete", "run_id", s.RunID, "total_rows", s.TotalRows)
	return s, nil
}

// ShowStats renders the most recently computed statistics as YAML.
func (t *Table) ShowStats() (string, error) {
	return t.stats.YAML()
}
