package table

import (
	"fmt"
	"strings"

	"vqlitedb/pager"
)

// PrintConstants renders the fixed layout constants the split logic depends
// on, for the print_constants meta-operation (spec §6).
func PrintConstants() string {
	var b strings.Builder
	fmt.Fprintf(&b, "page size: %d\n", pager.PageSize)
	fmt.Fprintf(&b, "row size: %d\n", RowSize)
	fmt.Fprintf(&b, "common header size: %d\n", CommonHeaderSize)
	fmt.Fprintf(&b, "leaf header size: %d\n", LeafHeaderSize)
	fmt.Fprintf(&b, "leaf cell size: %d\n", LeafCellSize)
	fmt.Fprintf(&b, "leaf space for cells: %d\n", LeafSpaceForCells)
	fmt.Fprintf(&b, "leaf max cells: %d\n", LeafMaxCells)
	fmt.Fprintf(&b, "leaf left split count: %d\n", LeafLeftSplitCount)
	fmt.Fprintf(&b, "leaf right split count: %d\n", LeafRightSplitCount)
	fmt.Fprintf(&b, "internal header size: %d\n", InternalHeaderSize)
	fmt.Fprintf(&b, "internal cell size: %d\n", InternalCellSize)
	fmt.Fprintf(&b, "internal max cells: %d\n", InternalMaxCells)
	return b.String()
}

// PrintTree renders the tree rooted at page 0 depth-first, indenting each
// level, for the print_tree meta-operation (spec §6).
func (t *BTree) PrintTree() (string, error) {
	var b strings.Builder
	if err := t.printNode(&b, 0, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (t *BTree) printNode(b *strings.Builder, pageNum uint32, depth int) error {
	pg, err := t.src.GetForRead(pageNum)
	if err != nil {
		return err
	}
	page := pg.Data[:]
	indent := strings.Repeat("  ", depth)
	if nodeType(page) == NodeLeaf {
		n := leafNumCells(page)
		fmt.Fprintf(b, "%sleaf (page %d, %d cells)\n", indent, pageNum, n)
		for i := uint32(0); i < n; i++ {
			fmt.Fprintf(b, "%s  - %d\n", indent, leafKey(page, i))
		}
		return nil
	}

	n := internalNumKeys(page)
	fmt.Fprintf(b, "%sinternal (page %d, %d keys)\n", indent, pageNum, n)
	for i := uint32(0); i < n; i++ {
		if err := t.printNode(b, internalChildAtCell(page, i), depth+1); err != nil {
			return err
		}
		fmt.Fprintf(b, "%s  key %d\n", indent, internalKey(page, i))
	}
	rc := internalRightChild(page)
	if rc != InvalidPageNum {
		if err := t.printNode(b, rc, depth+1); err != nil {
			return err
		}
	}
	return nil
}
