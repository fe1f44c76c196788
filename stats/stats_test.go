package stats

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"vqlitedb/pager"
	"vqlitedb/table"
	"vqlitedb/txn"
)

func newTestTree(t *testing.T) *table.BTree {
	t.Helper()
	f, err := os.CreateTemp("", "stats_test_*.db")
	require.NoError(t, err)
	path := f.Name()
	require.NoError(t, f.Close())
	t.Cleanup(func() { os.Remove(path) })

	p, err := pager.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	tx := txn.New(p, nil)
	bt, err := table.NewBTree(tx, true)
	require.NoError(t, err)
	return bt
}

func TestAnalyzeEmptyTable(t *testing.T) {
	bt := newTestTree(t)
	s, err := Analyze(bt)
	require.NoError(t, err)
	require.True(t, s.Valid)
	require.Equal(t, uint64(0), s.TotalRows)
}

func TestAnalyzeComputesRangeAndCardinality(t *testing.T) {
	bt := newTestTree(t)
	const n = 30
	for i := uint32(1); i <= n; i++ {
		row, err := table.NewRow(i, fmt.Sprintf("user%d", i), fmt.Sprintf("user%d@example.com", i))
		require.NoError(t, err)
		_, err = bt.Insert(i, row)
		require.NoError(t, err)
	}

	s, err := Analyze(bt)
	require.NoError(t, err)
	require.Equal(t, uint64(n), s.TotalRows)
	require.Equal(t, uint32(1), s.IDMin)
	require.Equal(t, uint32(n), s.IDMax)
	require.Equal(t, uint64(n), s.IDCardinality)
	// Every username/email is distinct, so the cardinality estimate should
	// land reasonably close to n for this small a sample.
	require.InDelta(t, n, s.UsernameCardinality, float64(n)/2)
}

func TestYAMLRendersValidDocument(t *testing.T) {
	bt := newTestTree(t)
	s, err := Analyze(bt)
	require.NoError(t, err)
	out, err := s.YAML()
	require.NoError(t, err)
	require.Contains(t, out, "total_rows")
	require.Contains(t, out, "run_id")
}
