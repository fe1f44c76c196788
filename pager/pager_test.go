package pager

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "pager_test_*.db")
	require.NoError(t, err)
	path := f.Name()
	require.NoError(t, f.Close())
	t.Cleanup(func() { os.Remove(path) })
	return path
}

func TestOpenEmptyFile(t *testing.T) {
	p, err := Open(tempDBPath(t), zap.NewNop().Sugar())
	require.NoError(t, err)
	defer p.Close()

	require.Equal(t, uint32(0), p.NumPages())
}

func TestGetLazilyLoadsAndBumpsNumPages(t *testing.T) {
	p, err := Open(tempDBPath(t), nil)
	require.NoError(t, err)
	defer p.Close()

	pg, err := p.Get(3)
	require.NoError(t, err)
	require.Equal(t, uint32(3), pg.PageNum)
	require.Equal(t, uint32(4), p.NumPages())
	for _, b := range pg.Data {
		require.Equal(t, byte(0), b)
	}
}

func TestFlushPersistsAcrossReopen(t *testing.T) {
	path := tempDBPath(t)

	p, err := Open(path, nil)
	require.NoError(t, err)
	pg, err := p.Get(0)
	require.NoError(t, err)
	pg.Data[0] = 0xAB
	pg.Data[PageSize-1] = 0xCD
	require.NoError(t, p.Flush(0))
	require.NoError(t, p.Close())

	p2, err := Open(path, nil)
	require.NoError(t, err)
	defer p2.Close()
	require.Equal(t, uint32(1), p2.NumPages())
	pg2, err := p2.Get(0)
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), pg2.Data[0])
	require.Equal(t, byte(0xCD), pg2.Data[PageSize-1])
}

func TestAllocateRespectsMaxPages(t *testing.T) {
	p, err := Open(tempDBPath(t), nil)
	require.NoError(t, err)
	defer p.Close()

	for i := uint32(0); i < MaxPages; i++ {
		n, err := p.Allocate()
		require.NoError(t, err)
		require.Equal(t, i, n)
		_, err = p.Get(n)
		require.NoError(t, err)
	}
	_, err = p.Allocate()
	require.ErrorIs(t, err, ErrTableFull)
}

func TestFlushUnpopulatedSlotFails(t *testing.T) {
	p, err := Open(tempDBPath(t), nil)
	require.NoError(t, err)
	defer p.Close()

	require.Error(t, p.Flush(5))
}
