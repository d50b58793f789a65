package rawtar

import (
	"io"
	"strconv"
)

// PAX extended-header keywords this package assigns first-class meaning to.
const (
	paxPath        = "path"
	paxLinkpath    = "linkpath"
	paxSize        = "size"
	paxUID         = "uid"
	paxGID         = "gid"
	paxUname       = "uname"
	paxGname       = "gname"
	paxMtime       = "mtime"
	paxAtime       = "atime"
	paxCtime       = "ctime"
	paxSchilyDMaj  = "SCHILY.devmajor"
	paxSchilyDMin  = "SCHILY.devminor"

	paxGNUSparseOffset    = "GNU.sparse.offset"
	paxGNUSparseNumBytes  = "GNU.sparse.numbytes"
	paxGNUSparseMap       = "GNU.sparse.map"
	paxGNUSparseName      = "GNU.sparse.name"
	paxGNUSparseRealSize  = "GNU.sparse.realsize"
	paxGNUSparseSize      = "GNU.sparse.size"
	paxGNUSparseNumBlocks = "GNU.sparse.numblocks"
	paxGNUSparseMajor     = "GNU.sparse.major"
	paxGNUSparseMinor     = "GNU.sparse.minor"
)

// paxParser implements spec.md §4.3: the "length keyword=value\n" extended
// header format, with a side channel that reconstructs PAX 0.0 sparse spans
// from interleaved GNU.sparse.offset/numbytes keywords.
type paxParser struct{}

// parse consumes every record in r and returns the resulting keyword->value
// map, seeded from a clone of base (base is never mutated). A record with an
// empty value deletes that keyword from the map being built, which is how a
// PAX local header can remove a keyword inherited from the global one. While
// iterating, any PAX 0.0 sparse offset/numbytes pairs encountered are
// appended to *sparseOut as they complete; GNU.sparse.map (PAX 0.1) is left
// in the returned map for the caller to parse separately, since 0.1 spans
// only become available once the *whole* map is known, unlike 0.0's
// incremental offset/numbytes records.
func (paxParser) parse(r io.Reader, base map[string]string, sparseOut *[]SparseSpan) (map[string]string, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, newDecodeError(KindTruncated, "reading PAX header body: %v", err)
	}

	out := make(map[string]string, len(base))
	for k, v := range base {
		out[k] = v
	}
	var pendingOffset int64
	havePending := false

	for len(buf) > 0 {
		if buf[0] == '\n' {
			break // blank record terminates parsing early
		}

		// 1. ASCII decimal length, up to a space.
		i := 0
		for i < len(buf) && buf[i] != ' ' {
			if buf[i] < '0' || buf[i] > '9' {
				return nil, newDecodeError(KindPaxMalformed, "non-digit %q in PAX length field", buf[i])
			}
			i++
		}
		if i == 0 || i >= len(buf) {
			return nil, newDecodeError(KindPaxMalformed, "missing PAX length field")
		}
		length, err := strconv.ParseInt(string(buf[:i]), 10, 64)
		if err != nil || length <= int64(i)+1 {
			return nil, newDecodeError(KindPaxMalformed, "invalid PAX length %q", buf[:i])
		}
		if length > int64(len(buf)) {
			return nil, newDecodeError(KindTruncated, "PAX record declares %d bytes, only %d remain", length, len(buf))
		}
		record := buf[:length]
		buf = buf[length:]

		// 2. keyword, up to '='.
		rest := record[i+1:] // skip "<length> "
		eq := indexByte(rest, '=')
		if eq < 0 {
			return nil, newDecodeError(KindPaxMalformed, "PAX record missing '='")
		}
		keyword := string(rest[:eq])

		// 3. value: everything up to the trailing newline.
		valueAndNL := rest[eq+1:]
		if len(valueAndNL) == 0 || valueAndNL[len(valueAndNL)-1] != '\n' {
			return nil, newDecodeError(KindPaxMalformed, "PAX record %q missing trailing newline", keyword)
		}
		value := string(valueAndNL[:len(valueAndNL)-1])

		if len(valueAndNL) == 1 {
			// Only the newline remains: this keyword is removed from the
			// merged map rather than set.
			delete(out, keyword)
		} else {
			out[keyword] = value
		}

		switch keyword {
		case paxGNUSparseOffset:
			if havePending {
				*sparseOut = append(*sparseOut, SparseSpan{Offset: pendingOffset, Length: 0})
			}
			pendingOffset, err = strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, newDecodeError(KindPaxMalformed, "invalid GNU.sparse.offset %q", value)
			}
			havePending = true
		case paxGNUSparseNumBytes:
			if !havePending {
				return nil, newDecodeError(KindPaxMalformed, "GNU.sparse.numbytes without a preceding offset")
			}
			numBytes, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, newDecodeError(KindPaxMalformed, "invalid GNU.sparse.numbytes %q", value)
			}
			*sparseOut = append(*sparseOut, SparseSpan{Offset: pendingOffset, Length: numBytes})
			havePending = false
		}
	}
	if havePending {
		*sparseOut = append(*sparseOut, SparseSpan{Offset: pendingOffset, Length: 0})
	}
	return out, nil
}
