// Package digest provides a fast, non-cryptographic content digest for tar
// entry payloads, for callers that want a cheap per-entry fingerprint
// without the cost of a cryptographic hash. It is not the header checksum
// and plays no part in header decoding.
package digest

import (
	"io"

	"github.com/cespare/xxhash/v2"
)

// Digester accumulates a running xxhash64 digest of whatever is written to
// it, so it can be used as the destination of an io.Copy teeing an entry's
// payload while it is read.
type Digester struct {
	h *xxhash.Digest
}

// New returns a ready-to-use Digester.
func New() *Digester {
	return &Digester{h: xxhash.New()}
}

func (d *Digester) Write(p []byte) (int, error) { return d.h.Write(p) }

// Sum64 returns the current digest value.
func (d *Digester) Sum64() uint64 { return d.h.Sum64() }

// Reset clears the digest so the Digester can be reused for another entry.
func (d *Digester) Reset() { d.h.Reset() }

var _ io.Writer = (*Digester)(nil)
