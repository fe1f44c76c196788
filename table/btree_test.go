package table

import (
	"fmt"
	"os"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"

	"vqlitedb/pager"
	"vqlitedb/txn"
)

func newTestTree(t *testing.T) *BTree {
	t.Helper()
	f, err := os.CreateTemp("", "btree_test_*.db")
	require.NoError(t, err)
	path := f.Name()
	require.NoError(t, f.Close())
	t.Cleanup(func() { os.Remove(path) })

	p, err := pager.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	tx := txn.New(p, nil)
	bt, err := NewBTree(tx, p.NumPages() == 0)
	require.NoError(t, err)
	return bt
}

func scanAll(t *testing.T, bt *BTree) []Row {
	t.Helper()
	cur, err := bt.Start()
	require.NoError(t, err)
	var rows []Row
	for cur.Valid() {
		row, err := cur.Row()
		require.NoError(t, err)
		rows = append(rows, row)
		require.NoError(t, cur.Advance())
	}
	return rows
}

func TestInsertAndFindRoundTrip(t *testing.T) {
	bt := newTestTree(t)
	row, err := NewRow(1, "alice", "alice@example.com")
	require.NoError(t, err)

	dup, err := bt.Insert(1, row)
	require.NoError(t, err)
	require.False(t, dup)

	cur, err := bt.Find(1)
	require.NoError(t, err)
	key, err := cur.Key()
	require.NoError(t, err)
	require.Equal(t, uint32(1), key)
	got, err := cur.Row()
	require.NoError(t, err)
	require.Equal(t, "alice", got.UsernameString())
	require.Equal(t, "alice@example.com", got.EmailString())
}

func TestInsertDuplicateKeyRejected(t *testing.T) {
	bt := newTestTree(t)
	row, err := NewRow(5, "bob", "bob@example.com")
	require.NoError(t, err)

	dup, err := bt.Insert(5, row)
	require.NoError(t, err)
	require.False(t, dup)

	dup, err = bt.Insert(5, row)
	require.NoError(t, err)
	require.True(t, dup)
}

func TestLeafSplitKeepsSortedOrder(t *testing.T) {
	bt := newTestTree(t)
	gofakeit.Seed(42)

	const n = 20 // > LeafMaxCells, forces at least one split
	for i := uint32(0); i < n; i++ {
		id := i + 1 // ids must be > 0
		row, err := NewRow(id, gofakeit.Username(), gofakeit.Email())
		require.NoError(t, err)
		dup, err := bt.Insert(id, row)
		require.NoError(t, err)
		require.False(t, dup)
	}

	rows := scanAll(t, bt)
	require.Len(t, rows, n)
	for i, row := range rows {
		require.Equal(t, uint32(i+1), row.ID)
	}
}

func TestManyInsertsForceInternalSplit(t *testing.T) {
	bt := newTestTree(t)

	const n = 60 // enough leaf splits to overflow the root's fan-out (InternalMaxCells=3)
	for i := uint32(0); i < n; i++ {
		id := i + 1 // ids must be > 0
		row, err := NewRow(id, fmt.Sprintf("user%d", i), fmt.Sprintf("user%d@example.com", i))
		require.NoError(t, err)
		dup, err := bt.Insert(id, row)
		require.NoError(t, err)
		require.False(t, dup)
	}

	rows := scanAll(t, bt)
	require.Len(t, rows, n)
	for i, row := range rows {
		require.Equal(t, uint32(i+1), row.ID)
		require.Equal(t, fmt.Sprintf("user%d", i), row.UsernameString())
	}

	for i := uint32(0); i < n; i++ {
		id := i + 1
		cur, err := bt.Find(id)
		require.NoError(t, err)
		key, err := cur.Key()
		require.NoError(t, err)
		require.Equal(t, id, key)
	}
}

func TestDeleteMissingKeyReportsNotFound(t *testing.T) {
	bt := newTestTree(t)
	found, err := bt.Delete(999)
	require.NoError(t, err)
	require.False(t, found)
}

func TestDeleteAndMergeWithLeftSibling(t *testing.T) {
	bt := newTestTree(t)

	const n = 40
	for i := uint32(0); i < n; i++ {
		id := i + 1 // ids must be > 0
		row, err := NewRow(id, fmt.Sprintf("u%d", id), fmt.Sprintf("u%d@x.com", id))
		require.NoError(t, err)
		_, err = bt.Insert(id, row)
		require.NoError(t, err)
	}

	// ids run 1..40; the first split lands keys 1-7 in the left leaf and
	// 8-14 in the right. Delete that whole right leaf's worth of keys so it
	// empties out and, if its left sibling has room, merges.
	for i := uint32(8); i <= 14; i++ {
		found, err := bt.Delete(i)
		require.NoError(t, err)
		require.True(t, found)
	}

	rows := scanAll(t, bt)
	require.Len(t, rows, n-7)
	seen := make(map[uint32]bool)
	for _, row := range rows {
		require.False(t, row.ID >= 8 && row.ID <= 14, "deleted id %d resurfaced", row.ID)
		seen[row.ID] = true
	}
	for i := uint32(1); i <= n; i++ {
		if i >= 8 && i <= 14 {
			continue
		}
		require.True(t, seen[i], "missing id %d after delete", i)
	}
}

func TestUpdateInPlacePreservesID(t *testing.T) {
	bt := newTestTree(t)
	row, err := NewRow(3, "old", "old@example.com")
	require.NoError(t, err)
	_, err = bt.Insert(3, row)
	require.NoError(t, err)

	found, err := bt.UpdateInPlace(3, func(r *Row) {
		nr, _ := NewRow(r.ID, "new", "new@example.com")
		*r = nr
	})
	require.NoError(t, err)
	require.True(t, found)

	cur, err := bt.Find(3)
	require.NoError(t, err)
	got, err := cur.Row()
	require.NoError(t, err)
	require.Equal(t, uint32(3), got.ID)
	require.Equal(t, "new", got.UsernameString())
}

func TestGetOnEmptyTreeReportsNotFound(t *testing.T) {
	bt := newTestTree(t)

	_, found, err := bt.Get(0)
	require.NoError(t, err)
	require.False(t, found, "empty leaf's cell 0 must not look like a match for key 0")

	_, found, err = bt.Get(42)
	require.NoError(t, err)
	require.False(t, found)
}

func TestGetReturnsMatchingRowOnly(t *testing.T) {
	bt := newTestTree(t)
	for i := uint32(1); i <= 5; i++ {
		row, err := NewRow(i, "u", "u@example.com")
		require.NoError(t, err)
		_, err = bt.Insert(i, row)
		require.NoError(t, err)
	}

	row, found, err := bt.Get(3)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint32(3), row.ID)

	_, found, err = bt.Get(99)
	require.NoError(t, err)
	require.False(t, found)
}
