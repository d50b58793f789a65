package rawtar

import (
	"io"
	"strconv"
)

// memSource is a simple in-memory Source used across this package's tests,
// with Marker support so the EOF-record lookahead path gets exercised too.
type memSource struct {
	data []byte
	pos  int
	mark int
}

func (m *memSource) Read(p []byte) (int, error) {
	if m.pos >= len(m.data) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += n
	return n, nil
}

func (m *memSource) Skip(n int64) (int64, error) {
	avail := int64(len(m.data) - m.pos)
	if n > avail {
		n = avail
	}
	m.pos += int(n)
	return n, nil
}

func (m *memSource) Mark()        { m.mark = m.pos }
func (m *memSource) Reset() error { m.pos = m.mark; return nil }

// testHeaderBuilder fills a headerBlock by going through the same field
// accessors format.go exposes to the rest of the package, so these tests
// never have to hardcode byte offsets independently of the production code.
type testHeaderBuilder struct {
	blk headerBlock
}

func newV7Header(name string, typeflag byte, size int64) *testHeaderBuilder {
	b := &testHeaderBuilder{}
	putString(b.blk.V7().Name(), name)
	putOctal(b.blk.V7().Mode(), 0644)
	putOctal(b.blk.V7().UID(), 0)
	putOctal(b.blk.V7().GID(), 0)
	putOctal(b.blk.V7().Size(), size)
	putOctal(b.blk.V7().ModTime(), 0)
	b.blk.V7().TypeFlag()[0] = typeflag
	return b
}

func newUSTARHeader(name string, typeflag byte, size int64) *testHeaderBuilder {
	b := newV7Header(name, typeflag, size)
	putString(b.blk.USTAR().Magic(), magicUSTAR)
	putString(b.blk.USTAR().Version(), versionUSTAR)
	putString(b.blk.USTAR().UserName(), "root")
	putString(b.blk.USTAR().GroupName(), "root")
	return b
}

func newGNUHeader(name string, typeflag byte, size int64) *testHeaderBuilder {
	b := newV7Header(name, typeflag, size)
	putString(b.blk.GNU().Magic(), magicGNU)
	putString(b.blk.GNU().Version(), versionGNU)
	putString(b.blk.GNU().UserName(), "root")
	putString(b.blk.GNU().GroupName(), "root")
	return b
}

// rawName overwrites the Name field with raw bytes rather than a UTF-8
// string literal, for exercising a non-default Config.TextDecoder.
func (b *testHeaderBuilder) rawName(raw []byte) *testHeaderBuilder {
	name := b.blk.V7().Name()
	for i := range name {
		name[i] = 0
	}
	copy(name, raw)
	return b
}

func (b *testHeaderBuilder) linkname(s string) *testHeaderBuilder {
	putString(b.blk.V7().LinkName(), s)
	return b
}

func (b *testHeaderBuilder) realSize(v int64) *testHeaderBuilder {
	putOctal(b.blk.GNU().RealSize(), v)
	return b
}

func (b *testHeaderBuilder) extended(v bool) *testHeaderBuilder {
	if v {
		b.blk.GNU().IsExtended()[0] = 1
	}
	return b
}

func (b *testHeaderBuilder) sparseEntry(i int, offset, length int64) *testHeaderBuilder {
	e := b.blk.GNU().Sparse().Entry(i)
	putOctal(e.Offset(), offset)
	putOctal(e.Length(), length)
	return b
}

// bytes finalizes the header: computes and writes the checksum, then
// returns the raw 512-byte block.
func (b *testHeaderBuilder) bytes() []byte {
	unsigned, _ := b.blk.computeChecksum()
	putChecksum(b.blk.V7().Chksum(), unsigned)
	out := make([]byte, headerSize)
	copy(out, b.blk[:])
	return out
}

func putString(dst []byte, s string) {
	copy(dst, s)
}

func putOctal(dst []byte, v int64) {
	s := strconv.FormatInt(v, 8)
	n := len(dst) - 1
	for len(s) < n {
		s = "0" + s
	}
	copy(dst, s)
	dst[n] = 0
}

func putChecksum(dst []byte, v int64) {
	s := strconv.FormatInt(v, 8)
	for len(s) < 6 {
		s = "0" + s
	}
	copy(dst, s)
	dst[6] = 0
	dst[7] = ' '
}

func padTo(b []byte, size int64) []byte {
	n := paddingTo(int64(len(b)), size)
	return append(b, make([]byte, n)...)
}

func concat(blocks ...[]byte) []byte {
	var out []byte
	for _, b := range blocks {
		out = append(out, b...)
	}
	return out
}

func zeroRecord() []byte { return make([]byte, headerSize) }
