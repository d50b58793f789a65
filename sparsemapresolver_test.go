package rawtar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSparseResolvePAX01(t *testing.T) {
	spans, err := (sparseMapResolver{}).resolvePAX01("0,4,12,4")
	require.NoError(t, err)
	require.Equal(t, []SparseSpan{{Offset: 0, Length: 4}, {Offset: 12, Length: 4}}, spans)
}

func TestSparseResolvePAX01Empty(t *testing.T) {
	spans, err := (sparseMapResolver{}).resolvePAX01("")
	require.NoError(t, err)
	require.Nil(t, spans)
}

func TestSparseResolvePAX01OddCount(t *testing.T) {
	_, err := (sparseMapResolver{}).resolvePAX01("0,4,12")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSparseMalformed)
}

func TestSparseNormalizeSortsAndDropsTerminator(t *testing.T) {
	in := []SparseSpan{{Offset: 12, Length: 4}, {Offset: 0, Length: 4}, {Offset: 0, Length: 0}}
	out, err := (sparseMapResolver{}).normalize(in, 20)
	require.NoError(t, err)
	require.Equal(t, []SparseSpan{{Offset: 0, Length: 4}, {Offset: 12, Length: 4}}, out)
}

func TestSparseNormalizeEmpty(t *testing.T) {
	out, err := (sparseMapResolver{}).normalize(nil, 0)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestSparseNormalizeOverlap(t *testing.T) {
	in := []SparseSpan{{Offset: 0, Length: 10}, {Offset: 5, Length: 10}}
	_, err := (sparseMapResolver{}).normalize(in, 20)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSparseMalformed)
}

func TestSparseNormalizeExceedsRealSize(t *testing.T) {
	in := []SparseSpan{{Offset: 10, Length: 20}}
	_, err := (sparseMapResolver{}).normalize(in, 20)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSparseMalformed)
}

func TestSparseResolveOldGNUNoExtension(t *testing.T) {
	blk := newGNUHeader("sparse.bin", tfGNUSparse, 8).
		realSize(20).
		sparseEntry(0, 0, 4).
		sparseEntry(1, 12, 4).
		bytes()
	var hb headerBlock
	copy(hb[:], blk)

	spans, realSize, err := (sparseMapResolver{}).resolveOldGNU(&hb, newRecordReader(&memSource{}, Config{}.withDefaults()))
	require.NoError(t, err)
	require.EqualValues(t, 20, realSize)
	require.Equal(t, []SparseSpan{{Offset: 0, Length: 4}, {Offset: 12, Length: 4}}, spans)
}
