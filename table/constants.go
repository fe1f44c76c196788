package table

import "vqlitedb/pager"

// Common node header: node_type(1) + is_root(1) + parent(4).
const (
	NodeTypeOffset   = 0
	NodeTypeSize     = 1
	IsRootOffset     = NodeTypeOffset + NodeTypeSize
	IsRootSize       = 1
	ParentOffset     = IsRootOffset + IsRootSize
	ParentSize       = 4
	CommonHeaderSize = NodeTypeSize + IsRootSize + ParentSize
)

// Leaf node header: num_cells(4) + next_leaf(4), following the common header.
const (
	LeafNumCellsOffset = CommonHeaderSize
	LeafNumCellsSize   = 4
	LeafNextLeafOffset = LeafNumCellsOffset + LeafNumCellsSize
	LeafNextLeafSize   = 4
	LeafHeaderSize     = CommonHeaderSize + LeafNumCellsSize + LeafNextLeafSize
)

// Leaf node body: cells of (key uint32, row RowSize bytes).
const (
	LeafKeySize       = 4
	LeafCellSize      = LeafKeySize + RowSize
	LeafSpaceForCells = pager.PageSize - LeafHeaderSize
	LeafMaxCells      = LeafSpaceForCells / LeafCellSize
)

// LeafLeftSplitCount/LeafRightSplitCount partition the 14 cells (13 existing
// + 1 new) produced by overflowing a full leaf during insert: left keeps the
// smaller half, right takes the rest. See spec §4.3.4.
const (
	LeafRightSplitCount = (LeafMaxCells + 1) / 2
	LeafLeftSplitCount  = (LeafMaxCells + 1) - LeafRightSplitCount
)

// Internal node header: num_keys(4) + right_child(4), following the common header.
const (
	InternalNumKeysOffset   = CommonHeaderSize
	InternalNumKeysSize     = 4
	InternalRightChildOffset = InternalNumKeysOffset + InternalNumKeysSize
	InternalRightChildSize   = 4
	InternalHeaderSize       = CommonHeaderSize + InternalNumKeysSize + InternalRightChildSize
)

// Internal node body: cells of (child_page uint32, key uint32).
//
// InternalMaxCells is deliberately fixed at 3 rather than derived from the
// page's real capacity (which would allow hundreds of (child,key) pairs):
// spec §3 calls for a small fan-out so split logic exercises even on small
// inputs. It may be made configurable by a future caller, but the default
// (and the only value this package's split logic is proven against) is 3.
const (
	InternalKeySize      = 4
	InternalChildSize    = 4
	InternalCellSize     = InternalChildSize + InternalKeySize
	InternalMaxCells     = 3
)

// NodeType tags a page as a leaf or an internal node.
type NodeType uint8

const (
	NodeLeaf NodeType = iota
	NodeInternal
)

// InvalidPageNum is the right_child sentinel for a freshly-initialized
// internal node with no children yet. It is only legal transiently during
// construction (spec §3).
const InvalidPageNum uint32 = ^uint32(0)
