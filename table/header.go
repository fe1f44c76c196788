package table

import "encoding/binary"

// The accessors below are small, bounded views over a raw page buffer: each
// reads or writes one fixed-offset field using little-endian encoding,
// whatever the host's own byte order (spec §4.2 fixes little-endian;
// cross-platform portability is not required).

func nodeType(page []byte) NodeType { return NodeType(page[NodeTypeOffset]) }

func setNodeType(page []byte, t NodeType) { page[NodeTypeOffset] = byte(t) }

func isRoot(page []byte) bool { return page[IsRootOffset] != 0 }

func setIsRoot(page []byte, v bool) {
	if v {
		page[IsRootOffset] = 1
	} else {
		page[IsRootOffset] = 0
	}
}

func parent(page []byte) uint32 {
	return binary.LittleEndian.Uint32(page[ParentOffset : ParentOffset+ParentSize])
}

func setParent(page []byte, p uint32) {
	binary.LittleEndian.PutUint32(page[ParentOffset:ParentOffset+ParentSize], p)
}

// --- leaf header ---

func leafNumCells(page []byte) uint32 {
	return binary.LittleEndian.Uint32(page[LeafNumCellsOffset : LeafNumCellsOffset+LeafNumCellsSize])
}

func setLeafNumCells(page []byte, n uint32) {
	binary.LittleEndian.PutUint32(page[LeafNumCellsOffset:LeafNumCellsOffset+LeafNumCellsSize], n)
}

func leafNextLeaf(page []byte) uint32 {
	return binary.LittleEndian.Uint32(page[LeafNextLeafOffset : LeafNextLeafOffset+LeafNextLeafSize])
}

func setLeafNextLeaf(page []byte, p uint32) {
	binary.LittleEndian.PutUint32(page[LeafNextLeafOffset:LeafNextLeafOffset+LeafNextLeafSize], p)
}

func leafCellOffset(cellNum uint32) int {
	return LeafHeaderSize + int(cellNum)*LeafCellSize
}

func leafCell(page []byte, cellNum uint32) []byte {
	off := leafCellOffset(cellNum)
	return page[off : off+LeafCellSize]
}

func leafKey(page []byte, cellNum uint32) uint32 {
	cell := leafCell(page, cellNum)
	return binary.LittleEndian.Uint32(cell[0:LeafKeySize])
}

func setLeafKey(page []byte, cellNum uint32, key uint32) {
	cell := leafCell(page, cellNum)
	binary.LittleEndian.PutUint32(cell[0:LeafKeySize], key)
}

func leafValue(page []byte, cellNum uint32) []byte {
	cell := leafCell(page, cellNum)
	return cell[LeafKeySize:LeafCellSize]
}

func initializeLeaf(page []byte) {
	setNodeType(page, NodeLeaf)
	setIsRoot(page, false)
	setLeafNumCells(page, 0)
	setLeafNextLeaf(page, 0)
}

// --- internal header ---

func internalNumKeys(page []byte) uint32 {
	return binary.LittleEndian.Uint32(page[InternalNumKeysOffset : InternalNumKeysOffset+InternalNumKeysSize])
}

func setInternalNumKeys(page []byte, n uint32) {
	binary.LittleEndian.PutUint32(page[InternalNumKeysOffset:InternalNumKeysOffset+InternalNumKeysSize], n)
}

func internalRightChild(page []byte) uint32 {
	return binary.LittleEndian.Uint32(page[InternalRightChildOffset : InternalRightChildOffset+InternalRightChildSize])
}

func setInternalRightChild(page []byte, child uint32) {
	binary.LittleEndian.PutUint32(page[InternalRightChildOffset:InternalRightChildOffset+InternalRightChildSize], child)
}

func internalCellOffset(cellNum uint32) int {
	return InternalHeaderSize + int(cellNum)*InternalCellSize
}

func internalCell(page []byte, cellNum uint32) []byte {
	off := internalCellOffset(cellNum)
	return page[off : off+InternalCellSize]
}

func internalChildAtCell(page []byte, cellNum uint32) uint32 {
	cell := internalCell(page, cellNum)
	return binary.LittleEndian.Uint32(cell[0:InternalChildSize])
}

func setInternalChildAtCell(page []byte, cellNum uint32, child uint32) {
	cell := internalCell(page, cellNum)
	binary.LittleEndian.PutUint32(cell[0:InternalChildSize], child)
}

func internalKey(page []byte, cellNum uint32) uint32 {
	cell := internalCell(page, cellNum)
	return binary.LittleEndian.Uint32(cell[InternalChildSize : InternalChildSize+InternalKeySize])
}

func setInternalKey(page []byte, cellNum uint32, key uint32) {
	cell := internalCell(page, cellNum)
	binary.LittleEndian.PutUint32(cell[InternalChildSize:InternalChildSize+InternalKeySize], key)
}

// internalChild returns child[childNum], following right_child when
// childNum equals num_keys.
func internalChild(page []byte, childNum uint32) uint32 {
	n := internalNumKeys(page)
	if childNum == n {
		return internalRightChild(page)
	}
	return internalChildAtCell(page, childNum)
}

func initializeInternal(page []byte) {
	setNodeType(page, NodeInternal)
	setIsRoot(page, false)
	setInternalNumKeys(page, 0)
	setInternalRightChild(page, InvalidPageNum)
}
