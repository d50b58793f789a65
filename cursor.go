package rawtar

import (
	"io"
	"strconv"
	"strings"
	"time"
)

// Cursor implements spec.md §4.6: the top-level state machine that drives
// RecordReader, HeaderDecoder, PaxParser, and SparseMapResolver entry by
// entry, exposing each member's payload through Read/Skip. A Cursor is
// single-threaded and not reentrant, and owns the Source it was built with.
type Cursor struct {
	rr  *recordReader
	cfg Config
	src Source

	atEOF   bool
	closed  bool
	current *Entry

	entryOffset       int64 // bytes delivered to the caller for current
	entryDeclaredSize int64 // on-disk byte count still to be skipped as tail
	sparse            *sparseReader
	dense             Source // bounded over the physical payload for a dense entry

	// pax1xConsumed holds the byte count consumed by readPAX1xMap for the
	// current entry (the in-payload map plus its padding), used to bound
	// the physical data region that follows it.
	pax1xConsumed int64

	globalPAX map[string]string
}

// NewCursor builds a Cursor over src using cfg (zero-valued fields take the
// documented defaults).
func NewCursor(src Source, cfg Config) *Cursor {
	cfg = cfg.withDefaults()
	return &Cursor{
		rr:  newRecordReader(src, cfg),
		cfg: cfg,
		src: src,
	}
}

// CurrentEntry returns the entry most recently produced by Next, or nil
// before the first call or after the archive is exhausted.
func (c *Cursor) CurrentEntry() *Entry { return c.current }

// Next implements spec.md §4.6 steps 1-13: drains and skips past whatever
// entry is current, then decodes, stitches, and returns the next one.
func (c *Cursor) Next() (*Entry, error) {
	if c.atEOF {
		return nil, io.EOF
	}
	if c.current != nil {
		if err := c.drainCurrent(); err != nil {
			return nil, err
		}
		c.rr.consumeEntryTail(c.entryDeclaredSize)
		c.current = nil
		c.sparse = nil
		c.dense = nil
	}

	entry, err := c.decodeNext()
	if err != nil {
		if err == io.EOF {
			c.atEOF = true
		}
		return nil, err
	}

	c.current = entry
	c.entryOffset = 0
	c.entryDeclaredSize = entry.Size
	return entry, nil
}

// drainCurrent reads whatever payload of the current entry the caller never
// consumed, via the same Read path callers use, so sparse/telemetry
// bookkeeping stays accurate regardless of caller behavior (spec.md §4.6
// step 2).
func (c *Cursor) drainCurrent() error {
	var scratch [4096]byte
	for {
		_, err := c.Read(scratch[:])
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// decodeNext implements the stitching loop of spec.md §4.6 steps 3-12: a
// chain of pseudo-entries (long-name, long-link, PAX global, PAX local) is
// accumulated iteratively until a genuine on-disk entry is decoded, at which
// point the accumulated state is applied to it and it is returned finished.
func (c *Cursor) decodeNext() (*Entry, error) {
	var pendingName, pendingLink string
	var havePendingName, havePendingLink bool
	var localPAX map[string]string
	var paxLocalPending bool
	var sparseSpans []SparseSpan

	for {
		buf, ok := c.rr.readRecord()
		if !ok || c.rr.isEOFRecord(buf) {
			c.rr.tryConsumeSecondEOFRecord()
			c.rr.consumeBlockTail()
			if paxLocalPending {
				return nil, newDecodeError(KindTruncated, "PAX local header not followed by a real entry")
			}
			return nil, io.EOF
		}

		var blk headerBlock
		copy(blk[:], buf)
		entry, err := headerDecoder{c.cfg}.decode(&blk)
		if err != nil {
			return nil, err
		}

		switch {
		case entry.isLongLink():
			name, err := c.readPseudoPayload(entry)
			if err != nil {
				return nil, err
			}
			pendingLink, havePendingLink = name, true
			continue

		case entry.isLongName():
			name, err := c.readPseudoPayload(entry)
			if err != nil {
				return nil, err
			}
			pendingName, havePendingName = name, true
			continue

		case entry.isPAXGlobal():
			global, err := c.parsePAXBody(entry, nil, &[]SparseSpan{})
			if err != nil {
				return nil, err
			}
			c.globalPAX = global
			continue

		case entry.isPAXLocal():
			merged, err := c.parsePAXBody(entry, c.globalPAX, &sparseSpans)
			if err != nil {
				return nil, err
			}
			localPAX = merged
			paxLocalPending = true
			continue

		default:
			// The real entry: steps 5/6 (name/link stitching), then 8/9
			// (PAX application), then 10/11 (sparse map resolution).
			if havePendingLink {
				entry.LinkName = pendingLink
			}
			if havePendingName {
				entry.Name = pendingName
				if entry.isDirectory() && !strings.HasSuffix(entry.Name, "/") {
					entry.Name += "/"
				}
			}

			paxLocalPending = false
			if localPAX == nil && len(c.globalPAX) > 0 {
				localPAX = cloneStringMap(c.globalPAX)
			}
			var is1x bool
			if localPAX != nil {
				is1x, err = c.applyPAX(entry, localPAX, &sparseSpans)
				if err != nil {
					return nil, err
				}
			}

			if entry.isOldGNUSparse() {
				spans, realSize, err := (sparseMapResolver{}).resolveOldGNU(&blk, c.rr)
				if err != nil {
					return nil, err
				}
				sparseSpans = append(sparseSpans, spans...)
				entry.RealSize = realSize
				entry.Type = TypeRegular
			}

			if is1x {
				spans, consumed, err := c.readPAX1xMap(entry)
				if err != nil {
					return nil, err
				}
				sparseSpans = append(sparseSpans, spans...)
				c.pax1xConsumed = consumed
			}

			entry.SparseHeaders, err = (sparseMapResolver{}).normalize(sparseSpans, entry.RealSize)
			if err != nil {
				return nil, err
			}

			return entry, nil
		}
	}
}

// readPseudoPayload reads a long-name/long-link pseudo-entry's entire
// payload, strips trailing NULs, decodes it through Config.TextDecoder, and
// skips its tail padding.
func (c *Cursor) readPseudoPayload(entry *Entry) (string, error) {
	body := &boundedSource{rr: c.rr, remaining: entry.Size}
	buf := make([]byte, entry.Size)
	if _, err := io.ReadFull(sourceReader{body}, buf); err != nil {
		return "", newDecodeError(KindTruncated, "reading %s payload: %v", entry.Type, err)
	}
	c.rr.consumeEntryTail(entry.Size)
	if i := indexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	s, err := c.cfg.TextDecoder.Decode(buf)
	if err != nil {
		return "", errWrap(KindHeaderMalformed, err, "decoding "+entry.Type.String()+" payload")
	}
	return s, nil
}

// parsePAXBody reads a PAX global/local header's payload and parses it,
// seeded from base (nil for a global header, the current global map for a
// local one), then skips its tail padding.
func (c *Cursor) parsePAXBody(entry *Entry, base map[string]string, sparseOut *[]SparseSpan) (map[string]string, error) {
	body := &boundedSource{rr: c.rr, remaining: entry.Size}
	merged, err := (paxParser{}).parse(sourceReader{body}, base, sparseOut)
	if err != nil {
		return nil, err
	}
	c.rr.consumeEntryTail(entry.Size)
	log.Debugf("rawtar: parsed %s PAX header into %d keys (base had %d)", entry.Type, len(merged), len(base))
	return merged, nil
}

// applyPAX implements spec.md §4.6 step 8: overriding first-class fields
// from the merged PAX map, then recognizing the GNU.sparse.* pseudo-keys. It
// reports whether the entry was marked as PAX GNU 1.x sparse (whose map
// lives in the payload rather than in these keywords).
func (c *Cursor) applyPAX(entry *Entry, merged map[string]string, sparseOut *[]SparseSpan) (is1x bool, err error) {
	log.Debugf("rawtar: applying %d merged PAX records to %q", len(merged), entry.Name)
	entry.PAXRecords = merged
	for k, v := range merged {
		switch k {
		case paxPath:
			entry.Name = v
		case paxLinkpath:
			entry.LinkName = v
		case paxUname:
			entry.Uname = v
		case paxGname:
			entry.Gname = v
		case paxUID:
			if entry.UID, err = strconv.ParseInt(v, 10, 64); err != nil {
				return false, newDecodeError(KindPaxMalformed, "invalid uid %q", v)
			}
		case paxGID:
			if entry.GID, err = strconv.ParseInt(v, 10, 64); err != nil {
				return false, newDecodeError(KindPaxMalformed, "invalid gid %q", v)
			}
		case paxSize:
			if entry.Size, err = strconv.ParseInt(v, 10, 64); err != nil {
				return false, newDecodeError(KindPaxMalformed, "invalid size %q", v)
			}
			entry.RealSize = entry.Size
		case paxMtime:
			if entry.MTime, err = parsePAXTime(v); err != nil {
				return false, err
			}
		case paxAtime:
			if entry.AccessTime, err = parsePAXTime(v); err != nil {
				return false, err
			}
		case paxCtime:
			if entry.ChangeTime, err = parsePAXTime(v); err != nil {
				return false, err
			}
		case paxSchilyDMaj:
			if entry.Devmajor, err = strconv.ParseInt(v, 10, 64); err != nil {
				return false, newDecodeError(KindPaxMalformed, "invalid SCHILY.devmajor %q", v)
			}
		case paxSchilyDMin:
			if entry.Devminor, err = strconv.ParseInt(v, 10, 64); err != nil {
				return false, newDecodeError(KindPaxMalformed, "invalid SCHILY.devminor %q", v)
			}
		}
	}

	major, minor := merged[paxGNUSparseMajor], merged[paxGNUSparseMinor]
	switch {
	case major == "1" && minor == "0":
		is1x = true
	case major == "0" && (minor == "0" || minor == "1"):
		is1x = false
	case major != "" || minor != "":
		return false, nil // an unrecognized GNU sparse version: not treated as sparse
	case merged[paxGNUSparseMap] == "" && merged[paxGNUSparseName] == "" &&
		merged[paxGNUSparseSize] == "" && merged[paxGNUSparseRealSize] == "":
		return false, nil // no GNU sparse keys present at all
	default:
		is1x = false // 0.0-style entry with no explicit major/minor keys
	}

	if name := merged[paxGNUSparseName]; name != "" {
		entry.Name = name
	}
	size := merged[paxGNUSparseSize]
	if size == "" {
		size = merged[paxGNUSparseRealSize]
	}
	if size != "" {
		if entry.RealSize, err = strconv.ParseInt(size, 10, 64); err != nil {
			return false, newDecodeError(KindSparseMalformed, "invalid GNU.sparse size %q", size)
		}
	}
	if !is1x {
		spans, err := (sparseMapResolver{}).resolvePAX01(merged[paxGNUSparseMap])
		if err != nil {
			return false, err
		}
		*sparseOut = append(*sparseOut, spans...)
	}
	return is1x, nil
}

// readPAX1xMap implements spec.md §4.6 step 11: the in-payload decimal
// sparse map for PAX GNU sparse 1.x, consumed from the front of the entry's
// declared payload before its real data region begins.
func (c *Cursor) readPAX1xMap(entry *Entry) ([]SparseSpan, int64, error) {
	body := &boundedSource{rr: c.rr, remaining: entry.Size}
	readByte := func() (byte, bool) {
		var b [1]byte
		n, _ := body.Read(b[:])
		if n == 0 {
			return 0, false
		}
		return b[0], true
	}
	return (sparseMapResolver{}).resolvePAX1x(c.rr, readByte)
}

// Read implements spec.md §4.6's read operation. Called with no current
// entry (before the first Next, or after Next has exhausted the archive),
// it raises KindState rather than io.EOF: see DESIGN.md's Open Question
// decisions for why this package resolves that conflict in spec.md in
// favor of §7's StateError.
func (c *Cursor) Read(p []byte) (int, error) {
	if c.current == nil {
		return 0, newDecodeError(KindState, "Read called with no current entry")
	}
	if c.current.isDirectory() {
		return 0, io.EOF
	}
	remaining := c.remainingLogical()
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	src := c.payloadSource()
	n, err := src.Read(p)
	c.entryOffset += int64(n)
	if err == io.EOF && int64(n) < int64(len(p)) && c.remainingLogical() > 0 {
		err = newDecodeError(KindTruncated, "short read before declared end of entry")
	}
	return n, err
}

// Skip implements spec.md §4.6's skip operation. Called with no current
// entry it raises KindState, for the same reason Read does (see above).
func (c *Cursor) Skip(n int64) (int64, error) {
	if c.current == nil {
		return 0, newDecodeError(KindState, "Skip called with no current entry")
	}
	if c.current.isDirectory() || n <= 0 {
		return 0, nil
	}
	remaining := c.remainingLogical()
	if n > remaining {
		n = remaining
	}
	if n <= 0 {
		return 0, nil
	}
	src := c.payloadSource()
	skipped, err := src.Skip(n)
	c.entryOffset += skipped
	return skipped, err
}

// Available implements spec.md §4.6's available operation.
func (c *Cursor) Available() int64 {
	if c.current == nil || c.current.isDirectory() {
		return 0
	}
	remaining := c.remainingLogical()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Close releases the underlying Source exactly once; safe to call more than
// once or after exhaustion.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if closer, ok := c.src.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Cursor) remainingLogical() int64 {
	if c.current.isSparse() {
		return c.current.RealSize - c.entryOffset
	}
	return c.entryDeclaredSize - c.entryOffset
}

// payloadSource lazily builds, and then reuses, the Source the current
// entry's bytes are actually read from: a sparseReader layered over the
// physical payload region for a sparse entry, or a direct bounded Source for
// a dense one.
func (c *Cursor) payloadSource() Source {
	if c.current.isSparse() {
		if c.sparse == nil {
			physical := c.entryDeclaredSize - c.pax1xConsumed
			c.dense = &boundedSource{rr: c.rr, remaining: physical}
			c.sparse = newSparseReader(c.dense, c.current.SparseHeaders)
			c.pax1xConsumed = 0
		}
		return c.sparse
	}
	if c.dense == nil {
		c.dense = &boundedSource{rr: c.rr, remaining: c.entryDeclaredSize}
	}
	return c.dense
}

// boundedSource wraps a recordReader's raw byte stream with a declared
// upper bound, raising Truncated if the underlying source runs out before
// the bound is reached.
type boundedSource struct {
	rr        *recordReader
	remaining int64
}

func (b *boundedSource) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.rr.read(p)
	b.remaining -= int64(n)
	if err == io.EOF && b.remaining > 0 {
		return n, newDecodeError(KindTruncated, "short read before declared end of region")
	}
	return n, err
}

func (b *boundedSource) Skip(n int64) (int64, error) {
	if n > b.remaining {
		n = b.remaining
	}
	if n <= 0 {
		return 0, nil
	}
	skipped, err := b.rr.skip(n)
	b.remaining -= skipped
	return skipped, err
}

// sourceReader adapts a Source to io.Reader for use with io.ReadFull.
type sourceReader struct{ s Source }

func (r sourceReader) Read(p []byte) (int, error) { return r.s.Read(p) }

// parsePAXTime parses a PAX time value: decimal seconds since the epoch,
// optionally followed by '.' and a fractional-second digit string, with an
// optional leading '-'.
func parsePAXTime(v string) (time.Time, error) {
	neg := strings.HasPrefix(v, "-")
	if neg {
		v = v[1:]
	}
	secStr, fracStr, hasFrac := strings.Cut(v, ".")
	secs, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return time.Time{}, newDecodeError(KindPaxMalformed, "invalid PAX time %q", v)
	}
	var nanos int64
	if hasFrac {
		for len(fracStr) < 9 {
			fracStr += "0"
		}
		fracStr = fracStr[:9]
		nanos, err = strconv.ParseInt(fracStr, 10, 64)
		if err != nil {
			return time.Time{}, newDecodeError(KindPaxMalformed, "invalid PAX time %q", v)
		}
	}
	if neg {
		secs, nanos = -secs, -nanos
	}
	return time.Unix(secs, nanos), nil
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MatchesSignature implements spec.md §4.7: recognizes POSIX-ustar, GNU, and
// the historical Ant-produced variant from the first n bytes of a header
// block, without constructing a Cursor.
func MatchesSignature(sig []byte, n int) bool {
	if n < 263+2 || len(sig) < 263+2 {
		return false
	}
	magic := string(sig[257:263])
	version := sig[263:265]
	switch magic {
	case magicUSTAR:
		// versionUSTAR for POSIX; an all-NUL version for the Ant variant.
		return string(version) == versionUSTAR || (version[0] == 0 && version[1] == 0)
	case magicGNU:
		return (version[0] == ' ' && version[1] == 0) || (version[0] == 0 && version[1] == 0)
	default:
		return false
	}
}
