package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vqlitedb/stats"
	"vqlitedb/table"
)

func mustRow(t *testing.T, id uint32, username, email string) table.Row {
	t.Helper()
	r, err := table.NewRow(id, username, email)
	require.NoError(t, err)
	return r
}

func TestBasicEval(t *testing.T) {
	row := mustRow(t, 7, "alice", "alice@example.com")

	e := &Basic{Column: ColumnID, Op: OpEq, Value: "7"}
	ok, err := e.Eval(row)
	require.NoError(t, err)
	require.True(t, ok)

	e2 := &Basic{Column: ColumnUsername, Op: OpEq, Value: "bob"}
	ok, err = e2.Eval(row)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAndShortCircuits(t *testing.T) {
	row := mustRow(t, 7, "alice", "alice@example.com")
	e := &And{
		Left:  &Basic{Column: ColumnID, Op: OpEq, Value: "7"},
		Right: &Basic{Column: ColumnUsername, Op: OpEq, Value: "alice"},
	}
	ok, err := e.Eval(row)
	require.NoError(t, err)
	require.True(t, ok)

	e2 := &And{
		Left:  &Basic{Column: ColumnID, Op: OpEq, Value: "8"},
		Right: &Basic{Column: ColumnUsername, Op: OpEq, Value: "alice"},
	}
	ok, err = e2.Eval(row)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOrEval(t *testing.T) {
	row := mustRow(t, 7, "alice", "alice@example.com")
	e := &Or{
		Left:  &Basic{Column: ColumnID, Op: OpEq, Value: "1"},
		Right: &Basic{Column: ColumnID, Op: OpEq, Value: "7"},
	}
	ok, err := e.Eval(row)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestChooseFullScanWithNoExpr(t *testing.T) {
	p := Choose(nil, stats.TableStats{})
	require.Equal(t, FullScan, p.Kind)
}

func TestChooseIndexLookupOnIDEquality(t *testing.T) {
	e := &Basic{Column: ColumnID, Op: OpEq, Value: "42"}
	p := Choose(e, stats.TableStats{Valid: true, TotalRows: 1000})
	require.Equal(t, IndexLookup, p.Kind)
	require.Equal(t, uint32(42), p.LookupKey)
}

func TestChooseRangeScanOnIDInequality(t *testing.T) {
	e := &Basic{Column: ColumnID, Op: OpGte, Value: "10"}
	p := Choose(e, stats.TableStats{Valid: true, TotalRows: 1000, IDMin: 0, IDMax: 999})
	require.Equal(t, RangeScan, p.Kind)
	require.NotNil(t, p.Low)
	require.Equal(t, uint32(10), *p.Low)
}

func TestChooseFallsBackToFullScanOnNonIDClause(t *testing.T) {
	e := &Basic{Column: ColumnUsername, Op: OpEq, Value: "alice"}
	p := Choose(e, stats.TableStats{Valid: true, TotalRows: 1000})
	require.Equal(t, FullScan, p.Kind)
}
