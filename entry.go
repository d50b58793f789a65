package rawtar

import "time"

// Unknown is the sentinel value stored in a lenient-mode Entry numeric field
// (Mode, UID, GID, Devmajor, Devminor) when the on-disk value could not be
// parsed and Config.Lenient is set. An mtime that decays the same way
// leaves MTime as the zero time.Time.
const Unknown int64 = -1

// EntryType classifies an archive member. Pseudo-entries (long name/link
// continuations, PAX local/global headers, old-GNU sparse data) are
// produced internally by the header decoder and consumed by EntryCursor;
// they are exposed on Entry.Type mainly for diagnostics, since a caller
// iterating with Cursor.Next never observes them directly — Next stitches
// them into the following real entry before returning.
type EntryType int

const (
	TypeRegular EntryType = iota
	TypeDirectory
	TypeSymlink
	TypeHardlink
	TypeCharDevice
	TypeBlockDevice
	TypeFifo
	typeLongName
	typeLongLink
	typeOldGNUSparse
	typePAXLocal
	typePAXGlobal
	TypeOther
)

func (t EntryType) String() string {
	switch t {
	case TypeRegular:
		return "regular"
	case TypeDirectory:
		return "directory"
	case TypeSymlink:
		return "symlink"
	case TypeHardlink:
		return "hardlink"
	case TypeCharDevice:
		return "char-device"
	case TypeBlockDevice:
		return "block-device"
	case TypeFifo:
		return "fifo"
	case typeLongName:
		return "long-name"
	case typeLongLink:
		return "long-link"
	case typeOldGNUSparse:
		return "old-gnu-sparse"
	case typePAXLocal:
		return "pax-local"
	case typePAXGlobal:
		return "pax-global"
	default:
		return "other"
	}
}

// SparseSpan names a Length-byte region of non-zero data starting at Offset
// in an entry's dense logical payload. See Entry.SparseHeaders.
type SparseSpan struct {
	Offset, Length int64
}

func (s SparseSpan) end() int64 { return s.Offset + s.Length }

// Entry is the per-archive-member record produced by Cursor.Next.
type Entry struct {
	Name     string
	LinkName string

	// Size is the declared on-disk byte count of the payload body
	// following the header. RealSize is the logical dense size; they
	// differ only for sparse entries.
	Size     int64
	RealSize int64

	Type EntryType

	Mode     int64
	UID      int64
	GID      int64
	MTime    time.Time
	Devmajor int64
	Devminor int64

	Uname string
	Gname string

	AccessTime time.Time
	ChangeTime time.Time

	// Format is the best-effort dialect guess made while decoding this
	// entry's header (V7, USTAR, PAX, or GNU); read-only metadata, not
	// consulted by the cursor after decode.
	Format Format

	// PAXRecords holds the merged PAX extended-header map (global base
	// layer plus any local overrides) applied to this entry, or nil if
	// none applied.
	PAXRecords map[string]string

	// IsExtended mirrors the old-GNU header's "more sparse headers
	// follow" bit. Only meaningful during decode; always false on an
	// Entry returned from Cursor.Next.
	IsExtended bool

	// SparseHeaders is the canonical, offset-ascending, non-overlapping
	// list of data spans for a sparse entry; empty for a non-sparse one.
	SparseHeaders []SparseSpan
}

// isSparse reports whether this entry carries a sparse map distinguishing
// its RealSize from its on-disk Size.
func (e *Entry) isSparse() bool { return len(e.SparseHeaders) > 0 }
