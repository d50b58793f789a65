package rawtar

import "io"

// sparseReader implements spec.md §4.5: composes zero-fill segments and
// data segments (bounded reads over the underlying payload source) into a
// single virtual stream reproducing an entry's dense logical payload.
//
// Zero segments are allocation-free and consume no bytes from src; data
// segments read src sequentially, in span order, since the physical bytes
// following a sparse header are exactly the concatenation of the spans'
// data regions. Once every explicit span has been walked, any further read
// falls back to an unbounded synthetic zero stream — EntryCursor is what
// bounds the total delivered to RealSize, so this package never needs an
// explicit trailing zero span in the list (spec.md §4.5, "no tail zero
// segment is emitted").
type sparseReader struct {
	src   Source
	spans []SparseSpan

	next   int   // index of the next not-yet-started span
	pos    int64 // current logical offset
	inData bool  // true while draining a data segment
	remain int64 // bytes remaining in the current segment; -1 = unbounded zero tail
}

func newSparseReader(src Source, spans []SparseSpan) *sparseReader {
	sr := &sparseReader{src: src, spans: spans}
	sr.enterSegment()
	return sr
}

// enterSegment decides the next segment to serve from sr.pos: a zero
// segment up to the next span's offset, that span's data segment, or (once
// spans are exhausted) the unbounded zero tail.
func (sr *sparseReader) enterSegment() {
	for sr.next < len(sr.spans) {
		span := sr.spans[sr.next]
		if gap := span.Offset - sr.pos; gap > 0 {
			sr.inData = false
			sr.remain = gap
			return
		}
		sr.next++
		if span.Length > 0 {
			sr.inData = true
			sr.remain = span.Length
			return
		}
		// Zero-length data span: nothing to emit, advance straight to
		// whatever follows.
	}
	sr.inData = false
	sr.remain = -1
}

func (sr *sparseReader) Read(p []byte) (n int, err error) {
	for n < len(p) {
		if sr.remain == 0 {
			sr.enterSegment()
			continue
		}
		want := len(p) - n
		if sr.remain > 0 && int64(want) > sr.remain {
			want = int(sr.remain)
		}
		if sr.inData {
			m, rerr := sr.src.Read(p[n : n+want])
			n += m
			sr.remain -= int64(m)
			sr.pos += int64(m)
			if rerr != nil && rerr != io.EOF {
				return n, rerr
			}
			if m == 0 {
				return n, newDecodeError(KindTruncated, "short read in sparse data segment")
			}
		} else {
			clearBytes(p[n : n+want])
			n += want
			sr.pos += int64(want)
			if sr.remain > 0 {
				sr.remain -= int64(want)
			}
		}
		if sr.remain == 0 {
			sr.enterSegment()
		}
	}
	return n, nil
}

// Skip advances the virtual stream by n bytes, honoring sparse segmentation:
// zero segments are skipped without touching src; data segments are skipped
// via src.Skip.
func (sr *sparseReader) Skip(n int64) (int64, error) {
	var skipped int64
	for skipped < n {
		if sr.remain == 0 {
			sr.enterSegment()
			continue
		}
		want := n - skipped
		if sr.remain > 0 && want > sr.remain {
			want = sr.remain
		}
		if sr.inData {
			m, err := sr.src.Skip(want)
			skipped += m
			sr.remain -= m
			sr.pos += m
			if m < want {
				if err == nil {
					err = newDecodeError(KindTruncated, "short skip in sparse data segment")
				}
				return skipped, err
			}
		} else {
			skipped += want
			sr.pos += want
			if sr.remain > 0 {
				sr.remain -= want
			}
		}
	}
	return skipped, nil
}

func clearBytes(p []byte) {
	for i := range p {
		p[i] = 0
	}
}
