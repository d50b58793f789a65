package rawtar

import "io"

// recordReader implements the record/block framing layer (spec.md §4.1):
// fixed-size record reads, end-of-archive detection, and trailing block
// padding reconciliation. It owns no resource beyond the Source it wraps.
type recordReader struct {
	src    Source
	cfg    Config
	total  int64 // bytes consumed from src so far
	marker Marker
}

func newRecordReader(src Source, cfg Config) *recordReader {
	rr := &recordReader{src: src, cfg: cfg}
	rr.marker, _ = src.(Marker)
	return rr
}

// bytesRead returns the running total of bytes consumed from the source,
// the basis for both block-alignment accounting and the Config.Telemetry
// ByteCounter.
func (rr *recordReader) bytesRead() int64 { return rr.total }

func (rr *recordReader) account(n int) {
	rr.total += int64(n)
	rr.cfg.Telemetry.AddBytesRead(int64(n))
}

// readRecord reads one RecordSize-sized buffer. A short read at the tail
// (fewer than RecordSize bytes available before the source reports EOF) is
// treated as end-of-archive: it returns (nil, false) rather than an error,
// matching prevailing tar reader behavior for a truncated-at-the-boundary
// stream.
func (rr *recordReader) readRecord() (buf []byte, ok bool) {
	record := make([]byte, rr.cfg.RecordSize)
	n, err := io.ReadFull(readerFunc(rr.src.Read), record)
	rr.account(n)
	if n < len(record) {
		return nil, false
	}
	if err != nil && err != io.EOF {
		return nil, false
	}
	return record, true
}

// isEOFRecord reports whether buf is the all-zero end-of-archive marker, or
// is absent (a short/failed read, which this package also treats as EOF).
func (rr *recordReader) isEOFRecord(buf []byte) bool {
	if buf == nil {
		return true
	}
	n := int(rr.cfg.RecordSize)
	if n > headerSize {
		n = headerSize
	}
	for _, c := range buf[:n] {
		if c != 0 {
			return false
		}
	}
	return true
}

// tryConsumeSecondEOFRecord implements spec.md §4.1's single-record
// lookahead: a compliant archive ends with *two* all-zero records. When the
// Source supports Marker, the second record is peeked and rewound if it
// turns out not to be all-zero (so a caller that keeps reading past a
// malformed single-EOF-record archive still sees the right bytes). When the
// Source does not support Marker, the extra record is consumed
// unconditionally, which can over-consume one record past the true end of
// archive — this mirrors prevailing tar implementations and is considered
// an accepted, observable quirk rather than a bug (spec.md Open Question 2).
func (rr *recordReader) tryConsumeSecondEOFRecord() {
	if rr.marker != nil {
		rr.marker.Mark()
		before := rr.total
		buf, ok := rr.readRecord()
		if ok && rr.isEOFRecord(buf) {
			return // second EOF record consumed, nothing to undo
		}
		_ = rr.marker.Reset() // not a second EOF record: rewind
		rr.total = before     // undo the running total regardless of how the peek failed; Telemetry has already been sent the peeked bytes
		return
	}
	rr.readRecord() // no mark/reset capability: consume unconditionally
}

// consumeBlockTail skips forward by (-bytesReadTotal) mod BlockSize bytes to
// realign on a block boundary. A short skip at EOF is silently accepted.
func (rr *recordReader) consumeBlockTail() {
	n := paddingTo(rr.total, rr.cfg.BlockSize)
	if n == 0 {
		return
	}
	skipped, _ := rr.src.Skip(n)
	rr.account(int(skipped))
}

// consumeEntryTail skips the padding bytes after an entry's declared
// on-disk payload, rounding up to the next RecordSize boundary.
func (rr *recordReader) consumeEntryTail(declaredSize int64) {
	n := paddingTo(declaredSize, rr.cfg.RecordSize)
	if n == 0 {
		return
	}
	skipped, _ := rr.src.Skip(n)
	rr.account(int(skipped))
}

// read forwards a byte-level (not record-aligned) read to the underlying
// Source, accounting the bytes actually consumed. Used for entry payload
// bytes, which need not be read a whole record at a time.
func (rr *recordReader) read(p []byte) (int, error) {
	n, err := rr.src.Read(p)
	rr.account(n)
	return n, err
}

// skip forwards a byte-level skip to the underlying Source, accounting the
// bytes actually consumed.
func (rr *recordReader) skip(n int64) (int64, error) {
	skipped, err := rr.src.Skip(n)
	rr.account(int(skipped))
	return skipped, err
}

// readerFunc adapts a bare Read method to the io.Reader interface so
// io.ReadFull can be used for its short-read accumulation semantics.
type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
