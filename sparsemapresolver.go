package rawtar

import (
	"sort"
	"strconv"
	"strings"
)

// sparseMapResolver implements spec.md §4.4: normalizing sparse maps from
// every supported dialect into a canonical, ordered, validated list of
// spans.
type sparseMapResolver struct{}

// resolveOldGNU consumes the old-GNU continuation records that follow a
// sparse header block, starting from the four in-header entries already
// present in blk. It reads one more 512-byte record from rr for every
// continuation the isExtended bit announces, and also returns the header's
// real_size field (the dialect's separate channel for the dense logical
// size, distinct from the v7 size field used for the on-disk byte count).
func (sparseMapResolver) resolveOldGNU(blk *headerBlock, rr *recordReader) (spans []SparseSpan, realSize int64, err error) {
	var p parser
	realSize = p.parseNumeric(blk.GNU().RealSize())
	if p.err != nil {
		return nil, 0, p.err
	}

	sparse := blk.GNU().Sparse()
	for {
		for i := 0; i < sparse.MaxEntries(); i++ {
			entry := sparse.Entry(i)
			if entry.Offset()[0] == 0x00 {
				break // terminator: no more entries in this record
			}
			var fp parser
			off := fp.parseNumeric(entry.Offset())
			length := fp.parseNumeric(entry.Length())
			if fp.err != nil {
				return nil, 0, fp.err
			}
			spans = append(spans, SparseSpan{Offset: off, Length: length})
		}
		if sparse.IsExtended()[0] == 0 {
			log.Debugf("rawtar: resolved %d old-GNU sparse spans, real size %d", len(spans), realSize)
			return spans, realSize, nil
		}
		buf, ok := rr.readRecord()
		if !ok {
			return nil, 0, newDecodeError(KindTruncated, "missing old-GNU sparse continuation record")
		}
		var next headerBlock
		copy(next[:], buf)
		sparse = next.Sparse()
	}
}

// resolvePAX01 parses PAX 0.1's GNU.sparse.map: a comma-separated decimal
// list interpreted as offset,length pairs. An odd element count is
// SparseMalformed.
func (sparseMapResolver) resolvePAX01(mapValue string) ([]SparseSpan, error) {
	if mapValue == "" {
		return nil, nil
	}
	parts := strings.Split(mapValue, ",")
	if len(parts)%2 != 0 {
		return nil, newDecodeError(KindSparseMalformed, "GNU.sparse.map has an odd element count (%d)", len(parts))
	}
	spans := make([]SparseSpan, 0, len(parts)/2)
	for i := 0; i < len(parts); i += 2 {
		off, err1 := strconv.ParseInt(parts[i], 10, 64)
		length, err2 := strconv.ParseInt(parts[i+1], 10, 64)
		if err1 != nil || err2 != nil {
			return nil, newDecodeError(KindSparseMalformed, "invalid GNU.sparse.map entry %q,%q", parts[i], parts[i+1])
		}
		spans = append(spans, SparseSpan{Offset: off, Length: length})
	}
	return spans, nil
}

// resolvePAX1x reads the PAX 1.x in-payload sparse map: "count\n" followed
// by 2*count newline-separated decimal numbers, then padding to the next
// RecordSize boundary. It reads the map and its padding itself through
// readByte, and returns the parsed spans and the total number of payload
// bytes (map plus padding) consumed, which the caller subtracts from the
// declared size to bound the data region that follows.
func (sparseMapResolver) resolvePAX1x(rr *recordReader, readByte func() (byte, bool)) ([]SparseSpan, int64, error) {
	var consumed int64
	readDecimalLine := func() (int64, error) {
		var digits []byte
		for {
			c, ok := readByte()
			if !ok {
				return 0, newDecodeError(KindTruncated, "truncated PAX 1.x sparse map")
			}
			consumed++
			if c == '\n' {
				break
			}
			if c < '0' || c > '9' {
				return 0, newDecodeError(KindSparseMalformed, "non-digit %q in PAX 1.x sparse map", c)
			}
			digits = append(digits, c)
		}
		if len(digits) == 0 {
			return 0, newDecodeError(KindSparseMalformed, "empty PAX 1.x sparse map entry")
		}
		var v int64
		for _, d := range digits {
			v = v*10 + int64(d-'0')
		}
		return v, nil
	}

	count, err := readDecimalLine()
	if err != nil {
		return nil, 0, err
	}
	spans := make([]SparseSpan, 0, count)
	for i := int64(0); i < count; i++ {
		off, err := readDecimalLine()
		if err != nil {
			return nil, 0, err
		}
		length, err := readDecimalLine()
		if err != nil {
			return nil, 0, err
		}
		spans = append(spans, SparseSpan{Offset: off, Length: length})
	}

	pad := paddingTo(consumed, rr.cfg.RecordSize)
	for i := int64(0); i < pad; i++ {
		if _, ok := readByte(); !ok {
			return nil, 0, newDecodeError(KindTruncated, "truncated PAX 1.x sparse map padding")
		}
		consumed++
	}
	log.Debugf("rawtar: resolved %d PAX 1.x sparse spans, %d map bytes consumed", len(spans), consumed)
	return spans, consumed, nil
}

// normalize implements spec.md §4.4's "Normalization" and §3's span
// invariants: drop a trailing (0,0) terminator if present, stably sort by
// offset, then validate non-overlap and the real_size bound.
func (sparseMapResolver) normalize(spans []SparseSpan, realSize int64) ([]SparseSpan, error) {
	if len(spans) > 0 {
		last := spans[len(spans)-1]
		if last.Offset == 0 && last.Length == 0 {
			spans = spans[:len(spans)-1]
		}
	}
	if len(spans) == 0 {
		return nil, nil
	}

	out := make([]SparseSpan, len(spans))
	copy(out, spans)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })

	var prevEnd int64
	for i, s := range out {
		if s.Offset < 0 || s.Length < 0 {
			return nil, newDecodeError(KindSparseMalformed, "negative sparse span at index %d", i)
		}
		if s.end() > realSize {
			return nil, newDecodeError(KindSparseMalformed, "sparse span %v extends past real size %d", s, realSize)
		}
		if i > 0 && prevEnd > s.Offset {
			// Spec.md §4.4/§9 Open Question 3: sorting by offset means this
			// can only trigger on genuine overlap, since a negative gap
			// between already-sorted entries is the only way prevEnd can
			// exceed the next offset.
			return nil, newDecodeError(KindSparseMalformed, "overlapping sparse spans at index %d", i)
		}
		prevEnd = s.end()
	}
	log.Debugf("rawtar: normalized %d sparse spans against real size %d", len(out), realSize)
	return out, nil
}
