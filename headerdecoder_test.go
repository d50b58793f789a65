package rawtar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderDecoderBasic(t *testing.T) {
	raw := newUSTARHeader("dir/file.txt", tfRegular, 42).bytes()
	var blk headerBlock
	copy(blk[:], raw)

	entry, err := (headerDecoder{Config{}.withDefaults()}).decode(&blk)
	require.NoError(t, err)
	require.Equal(t, "dir/file.txt", entry.Name)
	require.Equal(t, TypeRegular, entry.Type)
	require.EqualValues(t, 42, entry.Size)
	require.EqualValues(t, 42, entry.RealSize)
	require.Equal(t, "root", entry.Uname)
}

func TestHeaderDecoderBadChecksum(t *testing.T) {
	raw := newUSTARHeader("f", tfRegular, 1).bytes()
	raw[150] ^= 0xff // corrupt checksum so getFormat fails
	var blk headerBlock
	copy(blk[:], raw)

	_, err := (headerDecoder{Config{}.withDefaults()}).decode(&blk)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrHeaderMalformed)
}

func TestHeaderDecoderLenientDecaysOverflow(t *testing.T) {
	b := newUSTARHeader("f", tfRegular, 1)
	// Corrupt the mode field with an invalid (non-digit) octal byte; under
	// Config.Lenient this decays to Unknown rather than failing the header.
	b.blk.V7().Mode()[0] = '9'
	raw := b.bytes()
	var blk headerBlock
	copy(blk[:], raw)

	entry, err := (headerDecoder{Config{Lenient: true}.withDefaults()}).decode(&blk)
	require.NoError(t, err)
	require.Equal(t, Unknown, entry.Mode)
}

func TestHeaderDecoderStrictRejectsOverflow(t *testing.T) {
	b := newUSTARHeader("f", tfRegular, 1)
	b.blk.V7().Mode()[0] = '9'
	raw := b.bytes()
	var blk headerBlock
	copy(blk[:], raw)

	_, err := (headerDecoder{Config{}.withDefaults()}).decode(&blk)
	require.Error(t, err)
}

func TestHeaderDecoderGNUAtimeCtimeFallsBackToPrefix(t *testing.T) {
	b := newGNUHeader("file.txt", tfRegular, 1)
	// Non-numeric bytes in the atime/ctime fields, as a pre-Go1.8 tar
	// writer bug would produce by mistakenly writing the USTAR prefix
	// field's bytes there instead.
	copy(b.blk.GNU().AccessTime(), "not-a-number")
	copy(b.blk.GNU().ChangeTime(), "also-bad!!!!")
	raw := b.bytes()
	var blk headerBlock
	copy(blk[:], raw)

	entry, err := (headerDecoder{Config{}.withDefaults()}).decode(&blk)
	require.NoError(t, err)
	require.True(t, entry.AccessTime.IsZero())
	require.True(t, entry.ChangeTime.IsZero())
	require.Equal(t, "not-a-numberalso-bad!!!!/file.txt", entry.Name)
}

func TestClassifyType(t *testing.T) {
	require.Equal(t, TypeRegular, classifyType(tfRegular))
	require.Equal(t, TypeDirectory, classifyType(tfDir))
	require.Equal(t, TypeSymlink, classifyType(tfSymlink))
	require.Equal(t, typePAXLocal, classifyType(tfXHeader))
	require.Equal(t, typePAXGlobal, classifyType(tfXGlobal))
	require.Equal(t, typeOldGNUSparse, classifyType(tfGNUSparse))
	require.Equal(t, TypeOther, classifyType('?'))
}
