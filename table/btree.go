package table

import (
	"fmt"

	"vqlitedb/pager"
)

// BTree is the on-disk B+tree: leaves hold rows, internal nodes hold
// (child, separator-key) pairs plus a right_child pointer. The root always
// lives at page 0 (spec §3); there is no separate metadata page.
type BTree struct {
	src PageSource
}

// Cursor identifies a position for iteration or insertion: a leaf page
// number, a cell index within it, and whether iteration has run past the
// last row (spec §4.3.1-§4.3.3).
type Cursor struct {
	tree       *BTree
	PageNum    uint32
	CellNum    uint32
	EndOfTable bool
}

// NewBTree opens the tree over src. fresh must be true iff the underlying
// file had zero pages before this open, in which case page 0 is initialized
// as an empty leaf marked as the root.
func NewBTree(src PageSource, fresh bool) (*BTree, error) {
	t := &BTree{src: src}
	if fresh {
		pg, err := src.GetForWrite(0)
		if err != nil {
			return nil, err
		}
		initializeLeaf(pg.Data[:])
		setIsRoot(pg.Data[:], true)
	}
	return t, nil
}

// Find descends from the root and returns a cursor pointing either at the
// cell matching key, or at its insert position within the target leaf
// (spec §4.3.1).
func (t *BTree) Find(key uint32) (*Cursor, error) {
	pageNum := uint32(0)
	for {
		pg, err := t.src.GetForRead(pageNum)
		if err != nil {
			return nil, err
		}
		page := pg.Data[:]
		if nodeType(page) == NodeLeaf {
			cellNum := leafFindCell(page, key)
			return &Cursor{tree: t, PageNum: pageNum, CellNum: cellNum}, nil
		}
		pageNum = childForKey(page, key)
		if pageNum == InvalidPageNum {
			return nil, fmt.Errorf("table: descent followed an uninitialized child pointer (fatal)")
		}
	}
}

// Get looks up key directly and reports whether a row exists for it. Unlike
// Find, which may return a cursor positioned past the end of a leaf's cells
// (an insert position, not a match), Get never mistakes that position for a
// live row.
func (t *BTree) Get(key uint32) (row Row, found bool, err error) {
	cur, err := t.Find(key)
	if err != nil {
		return Row{}, false, err
	}
	pg, err := t.src.GetForRead(cur.PageNum)
	if err != nil {
		return Row{}, false, err
	}
	page := pg.Data[:]
	if cur.CellNum >= leafNumCells(page) || leafKey(page, cur.CellNum) != key {
		return Row{}, false, nil
	}
	row, err = DeserializeRow(leafValue(page, cur.CellNum))
	if err != nil {
		return Row{}, false, err
	}
	return row, true, nil
}

// Start returns a cursor at the leftmost leaf's first row.
func (t *BTree) Start() (*Cursor, error) {
	pageNum := uint32(0)
	for {
		pg, err := t.src.GetForRead(pageNum)
		if err != nil {
			return nil, err
		}
		page := pg.Data[:]
		if nodeType(page) == NodeLeaf {
			break
		}
		if internalNumKeys(page) > 0 {
			pageNum = internalChildAtCell(page, 0)
		} else {
			pageNum = internalRightChild(page)
		}
	}
	c := &Cursor{tree: t, PageNum: pageNum, CellNum: 0}
	if err := t.skipEmptyLeaves(c); err != nil {
		return nil, err
	}
	return c, nil
}

// skipEmptyLeaves advances a freshly-positioned cursor (CellNum==0) past any
// leaves left empty by a delete that didn't qualify for a merge (spec §4.3.5,
// §9): such leaves remain in the next_leaf chain with zero cells.
func (t *BTree) skipEmptyLeaves(c *Cursor) error {
	for {
		pg, err := t.src.GetForRead(c.PageNum)
		if err != nil {
			return err
		}
		page := pg.Data[:]
		if leafNumCells(page) > 0 {
			c.EndOfTable = false
			return nil
		}
		next := leafNextLeaf(page)
		if next == 0 {
			c.EndOfTable = true
			return nil
		}
		c.PageNum = next
		c.CellNum = 0
	}
}

// Advance moves the cursor to the next row in key order, following
// next_leaf across leaf boundaries (spec §4.3.3).
func (c *Cursor) Advance() error {
	if c.EndOfTable {
		return nil
	}
	pg, err := c.tree.src.GetForRead(c.PageNum)
	if err != nil {
		return err
	}
	page := pg.Data[:]
	c.CellNum++
	if c.CellNum < leafNumCells(page) {
		return nil
	}
	next := leafNextLeaf(page)
	if next == 0 {
		c.EndOfTable = true
		return nil
	}
	c.PageNum = next
	c.CellNum = 0
	return c.tree.skipEmptyLeaves(c)
}

// Valid reports whether the cursor still identifies a row.
func (c *Cursor) Valid() bool { return !c.EndOfTable }

// Key returns the key at the cursor's current position.
func (c *Cursor) Key() (uint32, error) {
	pg, err := c.tree.src.GetForRead(c.PageNum)
	if err != nil {
		return 0, err
	}
	return leafKey(pg.Data[:], c.CellNum), nil
}

// Row returns the row at the cursor's current position.
func (c *Cursor) Row() (Row, error) {
	pg, err := c.tree.src.GetForRead(c.PageNum)
	if err != nil {
		return Row{}, err
	}
	return DeserializeRow(leafValue(pg.Data[:], c.CellNum))
}

// Insert adds key/row to the tree. It returns duplicate=true (and leaves the
// tree untouched) if key already exists (spec §4.3.4).
func (t *BTree) Insert(key uint32, row Row) (duplicate bool, err error) {
	cur, err := t.Find(key)
	if err != nil {
		return false, err
	}
	pg, err := t.src.GetForRead(cur.PageNum)
	if err != nil {
		return false, err
	}
	page := pg.Data[:]
	if cur.CellNum < leafNumCells(page) && leafKey(page, cur.CellNum) == key {
		return true, nil
	}
	return false, t.leafInsert(cur.PageNum, cur.CellNum, key, row)
}

func (t *BTree) leafInsert(pageNum, cellNum, key uint32, row Row) error {
	pg, err := t.src.GetForWrite(pageNum)
	if err != nil {
		return err
	}
	page := pg.Data[:]
	n := leafNumCells(page)
	if n < LeafMaxCells {
		for i := n; i > cellNum; i-- {
			copy(leafCell(page, i), leafCell(page, i-1))
		}
		setLeafKey(page, cellNum, key)
		var buf [RowSize]byte
		if err := SerializeRow(row, buf[:]); err != nil {
			return err
		}
		copy(leafValue(page, cellNum), buf[:])
		setLeafNumCells(page, n+1)
		return nil
	}
	return t.leafSplitAndInsert(pageNum, cellNum, key, row)
}

// leafSplitAndInsert implements spec §4.3.4's leaf split: partition the 14
// cells (13 existing + 1 new) between the old (left) leaf and a freshly
// allocated right sibling, walking the virtual index from MAX down to 0 so
// in-place writes never clobber a not-yet-read source cell.
func (t *BTree) leafSplitAndInsert(oldPageNum, insertAt, key uint32, row Row) error {
	oldPg, err := t.src.GetForWrite(oldPageNum)
	if err != nil {
		return err
	}
	old := oldPg.Data[:]
	oldMax := leafKey(old, LeafMaxCells-1)
	oldParent := parent(old)
	wasRoot := isRoot(old)

	newPageNum, err := t.src.Allocate()
	if err != nil {
		return err
	}
	newPg, err := t.src.GetForWrite(newPageNum)
	if err != nil {
		return err
	}
	newNode := newPg.Data[:]
	initializeLeaf(newNode)
	setParent(newNode, oldParent)
	setLeafNextLeaf(newNode, leafNextLeaf(old))
	setLeafNextLeaf(old, newPageNum)

	var rowBuf [RowSize]byte
	if err := SerializeRow(row, rowBuf[:]); err != nil {
		return err
	}

	for i := int(LeafMaxCells); i >= 0; i-- {
		var dest []byte
		if uint32(i) >= LeafLeftSplitCount {
			dest = newNode
		} else {
			dest = old
		}
		indexInDest := uint32(i) % LeafLeftSplitCount
		destCell := leafCell(dest, indexInDest)

		switch {
		case uint32(i) == insertAt:
			setLeafKey(dest, indexInDest, key)
			copy(leafValue(dest, indexInDest), rowBuf[:])
		case uint32(i) > insertAt:
			copy(destCell, leafCell(old, uint32(i)-1))
		default:
			copy(destCell, leafCell(old, uint32(i)))
		}
	}
	setLeafNumCells(old, LeafLeftSplitCount)
	setLeafNumCells(newNode, LeafRightSplitCount)

	if wasRoot {
		return t.createNewRoot(newPageNum)
	}

	newMax := leafKey(old, LeafLeftSplitCount-1)
	parentPg, err := t.src.GetForWrite(oldParent)
	if err != nil {
		return err
	}
	updateInternalNodeKey(parentPg.Data[:], oldMax, newMax)
	return t.internalInsert(oldParent, newPageNum)
}

// internalInsert implements spec §4.3.6.
func (t *BTree) internalInsert(parentPageNum, childPageNum uint32) error {
	parentPg, err := t.src.GetForWrite(parentPageNum)
	if err != nil {
		return err
	}
	parentPage := parentPg.Data[:]
	childMax, err := maxKey(t.src, childPageNum)
	if err != nil {
		return err
	}

	n := internalNumKeys(parentPage)
	if n >= InternalMaxCells {
		return t.internalSplitAndInsert(parentPageNum, childPageNum)
	}

	if internalRightChild(parentPage) == InvalidPageNum {
		setInternalRightChild(parentPage, childPageNum)
		return t.setChildParent(childPageNum, parentPageNum)
	}

	index := internalFindChildIndex(parentPage, childMax)
	setInternalNumKeys(parentPage, n+1)
	rightChildPageNum := internalRightChild(parentPage)
	rightMax, err := maxKey(t.src, rightChildPageNum)
	if err != nil {
		return err
	}
	if childMax > rightMax {
		setInternalChildAtCell(parentPage, n, rightChildPageNum)
		setInternalKey(parentPage, n, rightMax)
		setInternalRightChild(parentPage, childPageNum)
	} else {
		for i := n; i > index; i-- {
			copy(internalCell(parentPage, i), internalCell(parentPage, i-1))
		}
		setInternalChildAtCell(parentPage, index, childPageNum)
		setInternalKey(parentPage, index, childMax)
	}
	return t.setChildParent(childPageNum, parentPageNum)
}

// internalSplitAndInsert implements spec §4.3.7.
func (t *BTree) internalSplitAndInsert(oldPageNum, childPageNum uint32) error {
	oldPg, err := t.src.GetForWrite(oldPageNum)
	if err != nil {
		return err
	}
	old := oldPg.Data[:]
	oldMax, err := maxKey(t.src, oldPageNum)
	if err != nil {
		return err
	}
	childMax, err := maxKey(t.src, childPageNum)
	if err != nil {
		return err
	}
	splittingRoot := isRoot(old)

	newPageNum, err := t.src.Allocate()
	if err != nil {
		return err
	}

	var parentPageNum uint32
	if splittingRoot {
		if err := t.createNewRoot(newPageNum); err != nil {
			return err
		}
		rootPg, err := t.src.GetForRead(0)
		if err != nil {
			return err
		}
		oldPageNum = internalChildAtCell(rootPg.Data[:], 0)
		oldPg, err = t.src.GetForWrite(oldPageNum)
		if err != nil {
			return err
		}
		old = oldPg.Data[:]
		parentPageNum = 0
	} else {
		parentPageNum = parent(old)
		newPg, err := t.src.GetForWrite(newPageNum)
		if err != nil {
			return err
		}
		initializeInternal(newPg.Data[:])
	}

	n := internalNumKeys(old)
	rightChildPageNum := internalRightChild(old)
	if err := t.internalInsert(newPageNum, rightChildPageNum); err != nil {
		return err
	}

	for i := int(n) - 1; i > int(n)/2; i-- {
		curChildPageNum := internalChildAtCell(old, uint32(i))
		if err := t.internalInsert(newPageNum, curChildPageNum); err != nil {
			return err
		}
	}

	keep := n / 2
	newRightChild := internalChildAtCell(old, keep)
	setInternalRightChild(old, newRightChild)
	setInternalNumKeys(old, keep)

	maxAfterSplit, err := maxKey(t.src, oldPageNum)
	if err != nil {
		return err
	}
	destPageNum := oldPageNum
	if childMax > maxAfterSplit {
		destPageNum = newPageNum
	}
	if err := t.internalInsert(destPageNum, childPageNum); err != nil {
		return err
	}

	newOldMax, err := maxKey(t.src, oldPageNum)
	if err != nil {
		return err
	}
	parentPg, err := t.src.GetForWrite(parentPageNum)
	if err != nil {
		return err
	}
	updateInternalNodeKey(parentPg.Data[:], oldMax, newOldMax)
	if !splittingRoot {
		if err := t.internalInsert(parentPageNum, newPageNum); err != nil {
			return err
		}
	}
	return nil
}

// updateInternalNodeKey rewrites the separator key that used to bound oldKey
// to bound newKey instead, used after a child's max key shifts post-split.
func updateInternalNodeKey(page []byte, oldKey, newKey uint32) {
	idx := internalFindChildIndex(page, oldKey)
	if idx < internalNumKeys(page) {
		setInternalKey(page, idx, newKey)
	}
}

func (t *BTree) setChildParent(childPageNum, parentPageNum uint32) error {
	pg, err := t.src.GetForWrite(childPageNum)
	if err != nil {
		return err
	}
	setParent(pg.Data[:], parentPageNum)
	return nil
}

// createNewRoot implements spec §4.3.8: relocate the current root's content
// into a fresh left-child page, reinitialize page 0 as an internal root over
// (leftChild, rightChild). When the old root was an internal node, the right
// child page is first initialized as an empty internal node, since nothing
// is copied into it.
func (t *BTree) createNewRoot(rightChildPageNum uint32) error {
	rootPg, err := t.src.GetForWrite(0)
	if err != nil {
		return err
	}
	var snapshot [pager.PageSize]byte
	copy(snapshot[:], rootPg.Data[:])
	wasInternal := nodeType(snapshot[:]) == NodeInternal

	rightPg, err := t.src.GetForWrite(rightChildPageNum)
	if err != nil {
		return err
	}
	if wasInternal {
		initializeInternal(rightPg.Data[:])
	}

	leftChildPageNum, err := t.src.Allocate()
	if err != nil {
		return err
	}
	leftPg, err := t.src.GetForWrite(leftChildPageNum)
	if err != nil {
		return err
	}
	copy(leftPg.Data[:], snapshot[:])
	setIsRoot(leftPg.Data[:], false)

	if nodeType(leftPg.Data[:]) == NodeInternal {
		left := leftPg.Data[:]
		nk := internalNumKeys(left)
		for i := uint32(0); i < nk; i++ {
			if err := t.setChildParent(internalChildAtCell(left, i), leftChildPageNum); err != nil {
				return err
			}
		}
		if rc := internalRightChild(left); rc != InvalidPageNum {
			if err := t.setChildParent(rc, leftChildPageNum); err != nil {
				return err
			}
		}
	}

	initializeInternal(rootPg.Data[:])
	setIsRoot(rootPg.Data[:], true)
	setInternalNumKeys(rootPg.Data[:], 1)
	setInternalChildAtCell(rootPg.Data[:], 0, leftChildPageNum)
	lm, err := maxKey(t.src, leftChildPageNum)
	if err != nil {
		return err
	}
	setInternalKey(rootPg.Data[:], 0, lm)
	setInternalRightChild(rootPg.Data[:], rightChildPageNum)

	if err := t.setChildParent(leftChildPageNum, 0); err != nil {
		return err
	}
	return t.setChildParent(rightChildPageNum, 0)
}

// Delete removes key from the tree, returning found=false if it is absent
// (spec §4.3.5).
func (t *BTree) Delete(key uint32) (found bool, err error) {
	cur, err := t.Find(key)
	if err != nil {
		return false, err
	}
	pg, err := t.src.GetForRead(cur.PageNum)
	if err != nil {
		return false, err
	}
	n := leafNumCells(pg.Data[:])
	if cur.CellNum >= n || leafKey(pg.Data[:], cur.CellNum) != key {
		return false, nil
	}

	wpg, err := t.src.GetForWrite(cur.PageNum)
	if err != nil {
		return false, err
	}
	wpage := wpg.Data[:]
	for i := cur.CellNum; i < n-1; i++ {
		copy(leafCell(wpage, i), leafCell(wpage, i+1))
	}
	setLeafNumCells(wpage, n-1)

	if n-1 == 0 && !isRoot(wpage) {
		if err := t.tryMergeLeftSibling(cur.PageNum); err != nil {
			return true, err
		}
	}
	return true, nil
}

// tryMergeLeftSibling implements the delete-time rebalancing policy of spec
// §4.3.5: merge with the left sibling only, and only if it has spare room.
// An empty leaf that doesn't qualify is left in place.
func (t *BTree) tryMergeLeftSibling(leafPageNum uint32) error {
	pg, err := t.src.GetForRead(leafPageNum)
	if err != nil {
		return err
	}
	parentPN := parent(pg.Data[:])
	parentPg, err := t.src.GetForRead(parentPN)
	if err != nil {
		return err
	}
	idx, ok := findChildIndex(parentPg.Data[:], leafPageNum)
	if !ok || idx == 0 {
		return nil
	}
	leftSiblingPN := internalChild(parentPg.Data[:], idx-1)
	leftPg, err := t.src.GetForRead(leftSiblingPN)
	if err != nil {
		return err
	}
	if leafNumCells(leftPg.Data[:]) >= LeafMaxCells {
		return nil
	}
	return t.mergeLeaves(leftSiblingPN, leafPageNum)
}

// mergeLeaves implements spec §4.3.5's leaf merge primitive: append right's
// cells onto left, splice out right's entry in the parent, and leave right's
// page number unreferenced (the deliberate page leak of spec §9).
func (t *BTree) mergeLeaves(leftPN, rightPN uint32) error {
	leftPg, err := t.src.GetForWrite(leftPN)
	if err != nil {
		return err
	}
	left := leftPg.Data[:]
	rightPg, err := t.src.GetForWrite(rightPN)
	if err != nil {
		return err
	}
	right := rightPg.Data[:]

	ln := leafNumCells(left)
	rn := leafNumCells(right)
	for i := uint32(0); i < rn; i++ {
		copy(leafCell(left, ln+i), leafCell(right, i))
	}
	setLeafNumCells(left, ln+rn)
	setLeafNextLeaf(left, leafNextLeaf(right))

	parentPN := parent(left)
	parentPg, err := t.src.GetForWrite(parentPN)
	if err != nil {
		return err
	}
	parentPage := parentPg.Data[:]
	return removeChildEntry(parentPage, leftPN, rightPN)
}

// removeChildEntry drops rightPN's (child,key) entry from parentPage. If
// rightPN is the parent's right_child, leftPN (its sibling, now holding the
// merged content) is promoted to right_child instead and its own bounding
// cell is dropped.
func removeChildEntry(parentPage []byte, leftPN, rightPN uint32) error {
	n := internalNumKeys(parentPage)
	idx, ok := findChildIndex(parentPage, rightPN)
	if !ok {
		return fmt.Errorf("table: merge: parent does not reference page %d (fatal)", rightPN)
	}
	if idx == n {
		leftIdx, ok := findChildIndex(parentPage, leftPN)
		if ok && leftIdx < n {
			for i := leftIdx; i < n-1; i++ {
				copy(internalCell(parentPage, i), internalCell(parentPage, i+1))
			}
		}
		setInternalRightChild(parentPage, leftPN)
		setInternalNumKeys(parentPage, n-1)
		return nil
	}
	for i := idx; i < n-1; i++ {
		copy(internalCell(parentPage, i), internalCell(parentPage, i+1))
	}
	setInternalNumKeys(parentPage, n-1)
	return nil
}

// findChildIndex returns the index at which parentPage references
// childPageNum, including internalNumKeys(parentPage) for the right_child.
func findChildIndex(parentPage []byte, childPageNum uint32) (uint32, bool) {
	n := internalNumKeys(parentPage)
	for i := uint32(0); i < n; i++ {
		if internalChildAtCell(parentPage, i) == childPageNum {
			return i, true
		}
	}
	if internalRightChild(parentPage) == childPageNum {
		return n, true
	}
	return 0, false
}

// UpdateInPlace rewrites the row stored at key via mutate, without changing
// tree shape. It returns found=false if key is absent.
func (t *BTree) UpdateInPlace(key uint32, mutate func(*Row)) (found bool, err error) {
	cur, err := t.Find(key)
	if err != nil {
		return false, err
	}
	pg, err := t.src.GetForRead(cur.PageNum)
	if err != nil {
		return false, err
	}
	if cur.CellNum >= leafNumCells(pg.Data[:]) || leafKey(pg.Data[:], cur.CellNum) != key {
		return false, nil
	}
	row, err := DeserializeRow(leafValue(pg.Data[:], cur.CellNum))
	if err != nil {
		return false, err
	}
	mutate(&row)
	row.ID = key // id is the key; mutate must not change it

	wpg, err := t.src.GetForWrite(cur.PageNum)
	if err != nil {
		return false, err
	}
	var buf [RowSize]byte
	if err := SerializeRow(row, buf[:]); err != nil {
		return false, err
	}
	copy(leafValue(wpg.Data[:], cur.CellNum), buf[:])
	return true, nil
}
