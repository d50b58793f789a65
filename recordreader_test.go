package rawtar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordReaderReadRecord(t *testing.T) {
	src := &memSource{data: make([]byte, 512)}
	copy(src.data, "hello")
	rr := newRecordReader(src, Config{}.withDefaults())
	buf, ok := rr.readRecord()
	require.True(t, ok)
	require.Len(t, buf, 512)
	require.EqualValues(t, 512, rr.bytesRead())
}

func TestRecordReaderShortReadIsEOF(t *testing.T) {
	src := &memSource{data: make([]byte, 100)}
	rr := newRecordReader(src, Config{}.withDefaults())
	buf, ok := rr.readRecord()
	require.False(t, ok)
	require.Nil(t, buf)
}

func TestRecordReaderIsEOFRecord(t *testing.T) {
	rr := newRecordReader(&memSource{}, Config{}.withDefaults())
	require.True(t, rr.isEOFRecord(make([]byte, 512)))
	require.True(t, rr.isEOFRecord(nil))
	nonzero := make([]byte, 512)
	nonzero[0] = 1
	require.False(t, rr.isEOFRecord(nonzero))
}

func TestRecordReaderSecondEOFRecordWithMarker(t *testing.T) {
	// A real entry record following a single all-zero record: with Marker
	// support, the lookahead must rewind so the entry record is still
	// readable afterward.
	real := newV7Header("f", tfRegular, 0).bytes()
	src := &memSource{data: concat(zeroRecord(), real)}
	rr := newRecordReader(src, Config{}.withDefaults())

	buf, ok := rr.readRecord()
	require.True(t, ok)
	require.True(t, rr.isEOFRecord(buf))

	rr.tryConsumeSecondEOFRecord()

	next, ok := rr.readRecord()
	require.True(t, ok)
	require.Equal(t, real, next)
}

func TestRecordReaderSecondEOFRecordShortReadRewindsAccounting(t *testing.T) {
	// The peek past the first EOF record hits a short (truncated) read
	// rather than a clean second EOF record; the bytes that short read
	// already accounted must be un-accounted along with the Marker rewind.
	src := &memSource{data: concat(zeroRecord(), make([]byte, 100))}
	rr := newRecordReader(src, Config{}.withDefaults())

	rr.readRecord()
	require.EqualValues(t, 512, rr.bytesRead())

	rr.tryConsumeSecondEOFRecord()
	require.EqualValues(t, 512, rr.bytesRead())
}

func TestRecordReaderConsumeBlockTail(t *testing.T) {
	src := &memSource{data: make([]byte, 5120)}
	rr := newRecordReader(src, Config{}.withDefaults())
	rr.readRecord() // total = 512
	rr.consumeBlockTail()
	require.EqualValues(t, 5120, rr.bytesRead())
}

func TestRecordReaderConsumeEntryTail(t *testing.T) {
	src := &memSource{data: make([]byte, 512)}
	rr := newRecordReader(src, Config{}.withDefaults())
	rr.consumeEntryTail(100)
	require.EqualValues(t, 412, rr.bytesRead())
}
