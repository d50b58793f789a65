package rawtar

import (
	"strings"
	"time"
)

// Type flags for the on-wire Typeflag byte.
const (
	tfRegular  = '0'
	tfRegularA = '\x00' // deprecated pre-POSIX regular-file flag
	tfLink     = '1'
	tfSymlink  = '2'
	tfChar     = '3'
	tfBlock    = '4'
	tfDir      = '5'
	tfFifo     = '6'
	tfXHeader  = 'x' // PAX local extended header
	tfXGlobal  = 'g' // PAX global extended header
	tfGNUSparse   = 'S'
	tfGNULongName = 'L'
	tfGNULongLink = 'K'
)

// headerDecoder implements spec.md §4.2: parses a raw header block into an
// Entry and classifies its flavor.
type headerDecoder struct {
	cfg Config
}

// decode parses blk into an Entry. It fails with a HeaderMalformed
// DecodeError if the stored checksum does not match the block, or (when
// not Config.Lenient) a numeric field does not parse. Magic/version bytes
// are not validated: a block whose magic is neither USTAR nor GNU is
// decoded as V7.
func (d headerDecoder) decode(blk *headerBlock) (*Entry, error) {
	format := blk.getFormat()
	if format == FormatUnknown {
		return nil, newDecodeError(KindHeaderMalformed, "unrecognized magic/checksum")
	}

	var p parser
	e := &Entry{Format: format}

	v7 := blk.V7()
	rawTypeflag := v7.TypeFlag()[0]
	e.Type = classifyType(rawTypeflag)
	log.Debugf("rawtar: classified typeflag %q as %s (format %s)", rawTypeflag, e.Type, format)
	name, err := d.cfg.TextDecoder.Decode(trimNULSpace(v7.Name()))
	if err != nil {
		return nil, errWrap(KindHeaderMalformed, err, "decoding name")
	}
	e.Name = name
	link, err := d.cfg.TextDecoder.Decode(trimNULSpace(v7.LinkName()))
	if err != nil {
		return nil, errWrap(KindHeaderMalformed, err, "decoding linkname")
	}
	e.LinkName = link

	e.Size = p.parseNumeric(v7.Size())
	e.RealSize = e.Size
	e.Mode = d.decayable(&p, v7.Mode())
	e.UID = d.decayable(&p, v7.UID())
	e.GID = d.decayable(&p, v7.GID())
	e.MTime = timeFromField(d.decayable(&p, v7.ModTime()))

	if format > formatV7 {
		ustar := blk.USTAR()
		uname, err := d.cfg.TextDecoder.Decode(trimNULSpace(ustar.UserName()))
		if err != nil {
			return nil, errWrap(KindHeaderMalformed, err, "decoding uname")
		}
		e.Uname = uname
		gname, err := d.cfg.TextDecoder.Decode(trimNULSpace(ustar.GroupName()))
		if err != nil {
			return nil, errWrap(KindHeaderMalformed, err, "decoding gname")
		}
		e.Gname = gname
		e.Devmajor = d.decayable(&p, ustar.DevMajor())
		e.Devminor = d.decayable(&p, ustar.DevMinor())

		var prefix string
		switch {
		case format.has(FormatUSTAR | FormatPAX):
			prefix = p.parseString(ustar.Prefix())
		case format.has(FormatGNU):
			gnu := blk.GNU()
			var p2 parser
			if b := gnu.AccessTime(); b[0] != 0 {
				e.AccessTime = timeFromField(p2.parseNumeric(b))
			}
			if b := gnu.ChangeTime(); b[0] != 0 {
				e.ChangeTime = timeFromField(p2.parseNumeric(b))
			}
			uname, _ := d.cfg.TextDecoder.Decode(trimNULSpace(gnu.UserName()))
			gname, _ := d.cfg.TextDecoder.Decode(trimNULSpace(gnu.GroupName()))
			e.Uname, e.Gname = uname, gname
			e.IsExtended = gnu.IsExtended()[0] != 0

			// Some old tar writers mangle the atime/ctime fields with what
			// should have been the USTAR prefix field. If those fields
			// don't parse as numeric, skeptically fall back to treating
			// them as an ASCII prefix instead of failing the header.
			if p2.err != nil {
				e.AccessTime, e.ChangeTime = time.Time{}, time.Time{}
				ustar := blk.USTAR()
				if s := p.parseString(ustar.Prefix()); isASCII(s) {
					log.Debugf("rawtar: GNU atime/ctime unparseable, falling back to USTAR prefix %q", s)
					prefix = s
				}
			}
		}
		if len(prefix) > 0 {
			e.Name = prefix + "/" + e.Name
		}
	}

	if p.err != nil {
		// decayable already substituted Unknown for overflowing
		// mode/uid/gid/devmajor/devminor/mtime fields under Lenient; any
		// remaining error came from a non-decayable field (e.g. a
		// malformed Size or octal syntax error), which always raises
		// regardless of leniency.
		return nil, p.err
	}

	if rawTypeflag == tfRegularA && strings.HasSuffix(e.Name, "/") {
		e.Type = TypeDirectory
	}

	return e, nil
}

// decayable parses a numeric field that spec.md §3 lists as allowed to
// decay to Unknown under Config.Lenient (mode, uid, gid, devmajor/minor,
// mtime): when lenient, an overflow in this one field is swallowed and
// Unknown is substituted instead of propagating to the shared parser
// error, which would otherwise fail the whole header.
func (d headerDecoder) decayable(p *parser, b []byte) int64 {
	if !d.cfg.Lenient {
		return p.parseNumeric(b)
	}
	sub := parser{}
	v := sub.parseNumeric(b)
	if sub.err != nil {
		return Unknown
	}
	return v
}

func timeFromField(sec int64) time.Time {
	if sec == Unknown || sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// classifyType maps a raw Typeflag byte to an EntryType. Typeflag '\x00'
// (the deprecated pre-POSIX marker for a regular file) is resolved to
// TypeRegular here directly; callers upgrade it to TypeDirectory afterward
// if the decoded Name ends in '/' (see decode, above, and spec.md §4.6 step
// 6 for the long-name-stitched equivalent).
func classifyType(tf byte) EntryType {
	switch tf {
	case tfRegular, tfRegularA:
		return TypeRegular
	case tfLink:
		return TypeHardlink
	case tfSymlink:
		return TypeSymlink
	case tfChar:
		return TypeCharDevice
	case tfBlock:
		return TypeBlockDevice
	case tfDir:
		return TypeDirectory
	case tfFifo:
		return TypeFifo
	case tfXHeader:
		return typePAXLocal
	case tfXGlobal:
		return typePAXGlobal
	case tfGNUSparse:
		return typeOldGNUSparse
	case tfGNULongName:
		return typeLongName
	case tfGNULongLink:
		return typeLongLink
	default:
		return TypeOther
	}
}

func errWrap(kind DecodeKind, err error, what string) error {
	return newDecodeError(kind, "%s: %v", what, err)
}

// Flavor predicates (spec.md §4.2).
func (e *Entry) isDirectory() bool       { return e.Type == TypeDirectory }
func (e *Entry) isLongName() bool        { return e.Type == typeLongName }
func (e *Entry) isLongLink() bool        { return e.Type == typeLongLink }
func (e *Entry) isOldGNUSparse() bool    { return e.Type == typeOldGNUSparse }
func (e *Entry) isPAXLocal() bool        { return e.Type == typePAXLocal }
func (e *Entry) isPAXGlobal() bool       { return e.Type == typePAXGlobal }
func isHeaderOnlyType(t EntryType) bool {
	switch t {
	case TypeHardlink, TypeSymlink, TypeCharDevice, TypeBlockDevice, TypeDirectory, TypeFifo:
		return true
	default:
		return false
	}
}
