// Package txn implements the shadow-paging transaction engine: each table
// owns exactly one Transaction, which behaves as a pass-through page source
// when idle (auto-commit) and buffers copy-on-write shadows while active
// (spec §4.4).
package txn

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"vqlitedb/pager"
)

// State is the lifecycle of a Transaction.
type State int

const (
	// StateIdle is auto-commit mode: reads and writes go straight to the pager.
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Transaction is the single per-table transaction slot (spec §4.4: "a table
// has at most one active transaction"). It satisfies table.PageSource.
type Transaction struct {
	pager     *pager.Pager
	state     State
	shadow    map[uint32]*pager.Page
	nextAlloc uint32
	log       *zap.SugaredLogger
}

// New wraps p. log may be nil, in which case diagnostics are discarded.
func New(p *pager.Pager, log *zap.SugaredLogger) *Transaction {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Transaction{pager: p, log: log}
}

// State reports whether a transaction is currently active.
func (tx *Transaction) State() State { return tx.state }

// Begin starts a new transaction. It errors if one is already active, since
// only one is permitted at a time.
func (tx *Transaction) Begin() error {
	if tx.state == StateActive {
		return fmt.Errorf("txn: a transaction is already active")
	}
	tx.state = StateActive
	tx.shadow = make(map[uint32]*pager.Page)
	tx.nextAlloc = tx.pager.NumPages()
	tx.log.Debugw("transaction begin", "next_alloc", tx.nextAlloc)
	return nil
}

// Commit copies every shadow page back into the pager, in ascending
// page-number order, and flushes each to disk (spec §4.4).
func (tx *Transaction) Commit() error {
	if tx.state != StateActive {
		return fmt.Errorf("txn: no active transaction to commit")
	}
	pageNums := make([]uint32, 0, len(tx.shadow))
	for pn := range tx.shadow {
		pageNums = append(pageNums, pn)
	}
	sort.Slice(pageNums, func(i, j int) bool { return pageNums[i] < pageNums[j] })

	for _, pn := range pageNums {
		shadow := tx.shadow[pn]
		dst, err := tx.pager.Get(pn)
		if err != nil {
			return fmt.Errorf("txn: commit: %w", err)
		}
		dst.Data = shadow.Data
		if err := tx.pager.Flush(pn); err != nil {
			return fmt.Errorf("txn: commit: flush page %d: %w", pn, err)
		}
	}
	tx.log.Infow("transaction committed", "pages_written", len(pageNums))
	tx.state = StateIdle
	tx.shadow = nil
	return nil
}

// Rollback discards every shadow page without touching the pager (spec §4.4).
func (tx *Transaction) Rollback() error {
	if tx.state != StateActive {
		return fmt.Errorf("txn: no active transaction to roll back")
	}
	tx.log.Infow("transaction rolled back", "pages_discarded", len(tx.shadow))
	tx.state = StateIdle
	tx.shadow = nil
	return nil
}

// Close auto-commits a still-active transaction, logging a warning that it
// did so, rather than leaving its shadow pages unwritten when the table
// closes.
func (tx *Transaction) Close() error {
	if tx.state == StateActive {
		tx.log.Warnw("closing table with an active transaction; committing")
		return tx.Commit()
	}
	return nil
}

// GetForRead returns the shadow copy of pageNum if one exists, else the
// pager's own page. It never creates a shadow.
func (tx *Transaction) GetForRead(pageNum uint32) (*pager.Page, error) {
	if tx.state == StateActive {
		if pg, ok := tx.shadow[pageNum]; ok {
			return pg, nil
		}
	}
	return tx.pager.Get(pageNum)
}

// GetForWrite returns a buffer the caller may mutate in place. Outside a
// transaction it is the pager's live page (auto-commit). Inside one, it
// materializes a copy-on-write shadow on first touch, seeded from the
// pager's current bytes when the page already exists.
func (tx *Transaction) GetForWrite(pageNum uint32) (*pager.Page, error) {
	if tx.state != StateActive {
		return tx.pager.Get(pageNum)
	}
	if pg, ok := tx.shadow[pageNum]; ok {
		return pg, nil
	}
	shadow := &pager.Page{PageNum: pageNum}
	if pageNum < tx.pager.NumPages() {
		src, err := tx.pager.Get(pageNum)
		if err != nil {
			return nil, err
		}
		shadow.Data = src.Data
	}
	tx.shadow[pageNum] = shadow
	return shadow, nil
}

// Allocate hands out the next unused page number. Outside a transaction it
// defers to the pager directly; inside one it tracks allocations locally so
// a rolled-back transaction never advances the pager's real page count.
func (tx *Transaction) Allocate() (uint32, error) {
	if tx.state != StateActive {
		return tx.pager.Allocate()
	}
	if tx.nextAlloc >= pager.MaxPages {
		return 0, fmt.Errorf("%w: page cache exhausted (max %d pages)", pager.ErrTableFull, pager.MaxPages)
	}
	pn := tx.nextAlloc
	tx.nextAlloc++
	return pn, nil
}
