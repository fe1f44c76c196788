package engine

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"vqlitedb/planner"
	"vqlitedb/table"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	f, err := os.CreateTemp("", "engine_test_*.db")
	require.NoError(t, err)
	path := f.Name()
	require.NoError(t, f.Close())
	t.Cleanup(func() { os.Remove(path) })

	tbl, err := Open(path, "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { tbl.Close() })
	return tbl
}

func TestInsertSelectDelete(t *testing.T) {
	tbl := newTestTable(t)

	res := tbl.Insert(1, "alice", "alice@example.com")
	require.Equal(t, Success, res.Code)

	res = tbl.Insert(1, "alice", "alice@example.com")
	require.Equal(t, DuplicateKey, res.Code)

	sel := tbl.Select(nil)
	require.Equal(t, Success, sel.Code)
	require.Len(t, sel.Rows, 1)

	del := tbl.Delete(1)
	require.Equal(t, Success, del.Code)

	del = tbl.Delete(1)
	require.Equal(t, KeyNotFound, del.Code)
}

func TestSelectWithWhereClause(t *testing.T) {
	tbl := newTestTable(t)
	for i := uint32(1); i <= 10; i++ {
		res := tbl.Insert(i, "u", "u@example.com")
		require.Equal(t, Success, res.Code)
	}

	sel := tbl.Select(&planner.Basic{Column: planner.ColumnID, Op: planner.OpGte, Value: "6"})
	require.Equal(t, Success, sel.Code)
	require.Len(t, sel.Rows, 5)
	for _, row := range sel.Rows {
		require.GreaterOrEqual(t, row.ID, uint32(6))
	}
}

func TestUpdateRewritesRowNotID(t *testing.T) {
	tbl := newTestTable(t)
	res := tbl.Insert(3, "old", "old@example.com")
	require.Equal(t, Success, res.Code)

	upd := tbl.Update(3, func(r *table.Row) {
		nr, _ := table.NewRow(r.ID, "new", "new@example.com")
		*r = nr
	})
	require.Equal(t, Success, upd.Code)

	sel := tbl.Select(&planner.Basic{Column: planner.ColumnID, Op: planner.OpEq, Value: "3"})
	require.Len(t, sel.Rows, 1)
	require.Equal(t, "new", sel.Rows[0].UsernameString())

	missing := tbl.Update(999, func(r *table.Row) {})
	require.Equal(t, KeyNotFound, missing.Code)
}

func TestUpdateWhereRewritesAllMatches(t *testing.T) {
	tbl := newTestTable(t)
	for i := uint32(1); i <= 10; i++ {
		res := tbl.Insert(i, "old", "old@example.com")
		require.Equal(t, Success, res.Code)
	}

	res := tbl.UpdateWhere(&planner.Basic{Column: planner.ColumnID, Op: planner.OpGte, Value: "6"},
		func(r *table.Row) {
			nr, _ := table.NewRow(r.ID, "new", "new@example.com")
			*r = nr
		})
	require.Equal(t, Success, res.Code)

	sel := tbl.Select(nil)
	require.Len(t, sel.Rows, 10)
	for _, row := range sel.Rows {
		if row.ID >= 6 {
			require.Equal(t, "new", row.UsernameString())
		} else {
			require.Equal(t, "old", row.UsernameString())
		}
	}

	missing := tbl.UpdateWhere(&planner.Basic{Column: planner.ColumnID, Op: planner.OpEq, Value: "999"}, func(r *table.Row) {})
	require.Equal(t, KeyNotFound, missing.Code)
}

func TestTransactionCommitAndRollback(t *testing.T) {
	tbl := newTestTable(t)

	require.NoError(t, tbl.BeginTransaction())
	res := tbl.Insert(1, "alice", "alice@example.com")
	require.Equal(t, Success, res.Code)
	require.NoError(t, tbl.Rollback())

	sel := tbl.Select(nil)
	require.Len(t, sel.Rows, 0)

	require.NoError(t, tbl.BeginTransaction())
	res = tbl.Insert(1, "alice", "alice@example.com")
	require.Equal(t, Success, res.Code)
	require.NoError(t, tbl.Commit())

	sel = tbl.Select(nil)
	require.Len(t, sel.Rows, 1)
}

func TestAnalyzeAndShowStats(t *testing.T) {
	tbl := newTestTable(t)
	for i := uint32(1); i <= 5; i++ {
		res := tbl.Insert(i, "u", "u@example.com")
		require.Equal(t, Success, res.Code)
	}
	s, err := tbl.Analyze()
	require.NoError(t, err)
	require.Equal(t, uint64(5), s.TotalRows)

	out, err := tbl.ShowStats()
	require.NoError(t, err)
	require.Contains(t, out, "total_rows")
}

func TestDeleteWhereRemovesMatchingRows(t *testing.T) {
	tbl := newTestTable(t)
	for i := uint32(1); i <= 20; i++ {
		res := tbl.Insert(i, "u", "u@example.com")
		require.Equal(t, Success, res.Code)
	}

	res := tbl.DeleteWhere(&planner.Basic{Column: planner.ColumnID, Op: planner.OpLt, Value: "11"})
	require.Equal(t, Success, res.Code)

	sel := tbl.Select(nil)
	require.Len(t, sel.Rows, 10)
	for _, row := range sel.Rows {
		require.GreaterOrEqual(t, row.ID, uint32(11))
	}
}

func TestReopenNonEmptyTableRecomputesStats(t *testing.T) {
	f, err := os.CreateTemp("", "engine_test_*.db")
	require.NoError(t, err)
	path := f.Name()
	require.NoError(t, f.Close())
	defer os.Remove(path)

	tbl, err := Open(path, "", nil)
	require.NoError(t, err)
	for i := uint32(1); i <= 5; i++ {
		require.Equal(t, Success, tbl.Insert(i, "u", "u@example.com").Code)
	}
	require.NoError(t, tbl.Close())

	reopened, err := Open(path, "", nil)
	require.NoError(t, err)
	defer reopened.Close()

	out, err := reopened.ShowStats()
	require.NoError(t, err)
	require.Contains(t, out, "total_rows: 5")
}

func TestPrintTreeAndConstants(t *testing.T) {
	tbl := newTestTable(t)
	res := tbl.Insert(1, "alice", "alice@example.com")
	require.Equal(t, Success, res.Code)

	tree, err := tbl.PrintTree()
	require.NoError(t, err)
	require.Contains(t, tree, "leaf")

	consts := tbl.PrintConstants()
	require.Contains(t, consts, "leaf max cells")
}
