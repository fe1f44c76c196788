package engine

import "vqlitedb/table"

// PrintTree renders the current tree structure, for debugging and tests.
func (t *Table) PrintTree() (string, error) {
	return t.tree.PrintTree()
}

// PrintConstants renders the fixed page and node layout constants.
func (t *Table) PrintConstants() string {
	return table.PrintConstants()
}
