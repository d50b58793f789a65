package rawtar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaddingTo(t *testing.T) {
	cases := []struct {
		offset, unit, want int64
	}{
		{0, 512, 0},
		{1, 512, 511},
		{512, 512, 0},
		{5120 - 1, 5120, 1},
		{2560, 5120, 2560},
		{100, 0, 0},
	}
	for _, c := range cases {
		require.Equal(t, c.want, paddingTo(c.offset, c.unit))
	}
}

func TestGetFormatV7(t *testing.T) {
	blk := newV7Header("plain.txt", tfRegular, 4).bytes()
	var hb headerBlock
	copy(hb[:], blk)
	require.Equal(t, formatV7, hb.getFormat())
}

func TestGetFormatUSTAR(t *testing.T) {
	blk := newUSTARHeader("plain.txt", tfRegular, 4).bytes()
	var hb headerBlock
	copy(hb[:], blk)
	require.Equal(t, FormatUSTAR|FormatPAX, hb.getFormat())
}

func TestGetFormatGNU(t *testing.T) {
	blk := newGNUHeader("plain.txt", tfRegular, 4).bytes()
	var hb headerBlock
	copy(hb[:], blk)
	require.Equal(t, FormatGNU, hb.getFormat())
}

func TestGetFormatBadChecksum(t *testing.T) {
	blk := newUSTARHeader("plain.txt", tfRegular, 4).bytes()
	blk[150] ^= 0xff // corrupt a byte inside the checksum-covered region
	var hb headerBlock
	copy(hb[:], blk)
	require.Equal(t, FormatUnknown, hb.getFormat())
}

func TestHeaderBlockIsZero(t *testing.T) {
	require.True(t, zeroHeaderBlock.isZero())
	blk := newV7Header("a", tfRegular, 1).bytes()
	var hb headerBlock
	copy(hb[:], blk)
	require.False(t, hb.isZero())
}
