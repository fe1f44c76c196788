package table

import "fmt"

// MergeInternalNodes folds rightPN's children into leftPN, pulling the
// parent's separator key down as the boundary between the two halves, then
// splices rightPN's entry out of the parent; leftPN's entry takes over
// rightPN's separator key, since it now bounds both halves. This mirrors
// mergeLeaves but one level up the tree.
//
// The current delete path (spec §4.3.5) only ever merges leaves with their
// left sibling; an internal node emptied indirectly by leaf merges is left
// under-full rather than triggering a cascading internal merge. This
// primitive is retained, as spec §4.3.5 calls for, so a caller doing
// maintenance (e.g. a future compaction pass) can fold two sibling internal
// nodes together explicitly.
func MergeInternalNodes(src PageSource, leftPN, rightPN uint32) error {
	leftPg, err := src.GetForWrite(leftPN)
	if err != nil {
		return err
	}
	left := leftPg.Data[:]
	rightPg, err := src.GetForWrite(rightPN)
	if err != nil {
		return err
	}
	right := rightPg.Data[:]

	if nodeType(left) != NodeInternal || nodeType(right) != NodeInternal {
		return fmt.Errorf("table: MergeInternalNodes: both pages must be internal nodes")
	}

	parentPN := parent(left)
	parentPg, err := src.GetForWrite(parentPN)
	if err != nil {
		return err
	}
	parentPage := parentPg.Data[:]

	idx, ok := findChildIndex(parentPage, leftPN)
	if !ok || idx >= internalNumKeys(parentPage) {
		return fmt.Errorf("table: MergeInternalNodes: parent has no separator key bounding page %d", leftPN)
	}
	separatorKey := internalKey(parentPage, idx)

	ln := internalNumKeys(left)
	setInternalChildAtCell(left, ln, internalRightChild(left))
	setInternalKey(left, ln, separatorKey)
	ln++

	rn := internalNumKeys(right)
	for i := uint32(0); i < rn; i++ {
		childPN := internalChildAtCell(right, i)
		setInternalChildAtCell(left, ln+i, childPN)
		setInternalKey(left, ln+i, internalKey(right, i))
		if err := reparent(src, childPN, leftPN); err != nil {
			return err
		}
	}
	rightRC := internalRightChild(right)
	setInternalRightChild(left, rightRC)
	setInternalNumKeys(left, ln+rn)
	if err := reparent(src, rightRC, leftPN); err != nil {
		return err
	}

	if rIdx, ok := findChildIndex(parentPage, rightPN); ok && rIdx < internalNumKeys(parentPage) {
		setInternalKey(parentPage, idx, internalKey(parentPage, rIdx))
	}
	return removeChildEntry(parentPage, leftPN, rightPN)
}

func reparent(src PageSource, childPageNum, parentPageNum uint32) error {
	if childPageNum == InvalidPageNum {
		return nil
	}
	pg, err := src.GetForWrite(childPageNum)
	if err != nil {
		return err
	}
	setParent(pg.Data[:], parentPageNum)
	return nil
}
