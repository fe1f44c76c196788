package table

import (
	"fmt"
	"sort"

	"vqlitedb/pager"
)

// PageSource is the transaction-aware page accessor the B+tree borrows pages
// through (spec §4.4). It is satisfied by vqlitedb/txn.Transaction: when no
// transaction is active, GetForWrite writes straight to the pager's cache
// (auto-commit); when active, it materializes a shadow on first write and
// commit/rollback govern whether those shadows ever reach the pager.
type PageSource interface {
	GetForRead(pageNum uint32) (*pager.Page, error)
	GetForWrite(pageNum uint32) (*pager.Page, error)
	Allocate() (uint32, error)
}

// maxKey returns the largest key reachable under pageNum: a leaf's last cell
// key, or an internal node's max_key recursion through right_child. Per
// spec §4.2 this must never be called while a node's right_child is the
// transient InvalidPageNum sentinel.
func maxKey(src PageSource, pageNum uint32) (uint32, error) {
	pg, err := src.GetForRead(pageNum)
	if err != nil {
		return 0, err
	}
	page := pg.Data[:]
	switch nodeType(page) {
	case NodeLeaf:
		n := leafNumCells(page)
		if n == 0 {
			return 0, fmt.Errorf("table: maxKey: empty leaf page %d", pageNum)
		}
		return leafKey(page, n-1), nil
	case NodeInternal:
		rc := internalRightChild(page)
		if rc == InvalidPageNum {
			return 0, fmt.Errorf("table: maxKey: internal page %d has uninitialized right_child", pageNum)
		}
		return maxKey(src, rc)
	default:
		return 0, fmt.Errorf("table: maxKey: unknown node type on page %d", pageNum)
	}
}

// leafFindCell binary-searches a leaf for the smallest cell index whose key
// is >= target; that index either holds the matching key or is the insert
// position.
func leafFindCell(page []byte, target uint32) uint32 {
	n := leafNumCells(page)
	idx := sort.Search(int(n), func(i int) bool {
		return leafKey(page, uint32(i)) >= target
	})
	return uint32(idx)
}

// internalFindChildIndex binary-searches an internal node for the smallest
// index i with key[i] >= target; if none, the caller should use right_child.
func internalFindChildIndex(page []byte, target uint32) uint32 {
	n := internalNumKeys(page)
	idx := sort.Search(int(n), func(i int) bool {
		return internalKey(page, uint32(i)) >= target
	})
	return uint32(idx)
}

// childForKey returns the child page to descend into for target, following
// whichever of the found cell or right_child applies.
func childForKey(page []byte, target uint32) uint32 {
	n := internalNumKeys(page)
	idx := internalFindChildIndex(page, target)
	if idx < n {
		return internalChildAtCell(page, idx)
	}
	return internalRightChild(page)
}
