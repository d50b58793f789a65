// Package textdecode provides rawtar.TextDecoder implementations beyond the
// library's byte-transparent UTF8Decoder default, for archives produced by
// older tar tools under a non-UTF-8 locale.
package textdecode

import (
	"golang.org/x/text/encoding/charmap"
)

// CharmapDecoder decodes raw header name/linkname bytes through a fixed
// single-byte encoding, e.g. Latin-1 archives written by very old Unix tar
// implementations.
type CharmapDecoder struct {
	Encoding *charmap.Charmap
}

// NewCharmapDecoder builds a CharmapDecoder over enc. A nil enc defaults to
// ISO-8859-1 (Latin-1), the most commonly seen legacy tar encoding.
func NewCharmapDecoder(enc *charmap.Charmap) CharmapDecoder {
	if enc == nil {
		enc = charmap.ISO8859_1
	}
	return CharmapDecoder{Encoding: enc}
}

// Decode implements rawtar.TextDecoder.
func (d CharmapDecoder) Decode(raw []byte) (string, error) {
	out, err := d.Encoding.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
