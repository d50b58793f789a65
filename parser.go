// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawtar

import (
	"strconv"
)

// parser accumulates the first error encountered while decoding a sequence
// of header fields, so that a header decode can attempt every field and
// surface a single representative error rather than stopping at the first
// bad field. Low-level digit/octal parsing is treated as a primitive: the
// interesting behavior here is field-width handling (trailing NUL/space,
// base-256 overflow escape), not digit scanning itself.
type parser struct {
	err error
}

// parseString decodes a NUL-terminated (or NUL-padded) byte field into a
// string, trimming the trailing NUL run. It never fails: the Config's
// TextDecoder is responsible for anything beyond raw byte-to-string.
func (p *parser) parseString(b []byte) string {
	if i := indexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// parseOctal parses an octal field that may carry a trailing NUL or space,
// or (for the historical GNU base-256 extension) a high bit set in the
// first byte indicating a binary big-endian two's-complement encoding of
// the field's value. A field of all zero/space bytes is empty and parses as
// 0 without setting p.err.
func (p *parser) parseOctal(b []byte) int64 {
	// Check for base-256 (binary) format first.
	if len(b) > 0 && b[0]&0x80 != 0 {
		return parseBase256(b)
	}

	// Trim leading spaces and trailing NUL/space.
	b = trimNULSpace(b)
	if len(b) == 0 {
		return 0
	}
	x, err := strconv.ParseUint(trimLeadingZeroes(string(b)), 8, 64)
	if err != nil {
		if p.err == nil {
			p.err = newDecodeError(KindHeaderMalformed, "invalid octal field %q", b)
		}
		return 0
	}
	return int64(x)
}

// parseNumeric is parseOctal with field-width-aware base-256 fallback; in
// this package every numeric tar field is decoded through parseOctal, since
// the base-256 branch is already handled there. Kept as a distinct name so
// call sites read like the spec's "numeric field" vocabulary.
func (p *parser) parseNumeric(b []byte) int64 { return p.parseOctal(b) }

// parseBase256 decodes the GNU base-256 numeric extension: the first byte's
// top bit (0x80) marks the field as binary rather than octal; the remaining
// 7 bits of that byte plus every following byte form a big-endian two's
// complement integer.
func parseBase256(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	first := b[0] & 0x7f // strip the base-256 marker bit
	var x int64
	if first&0x40 != 0 {
		x = -1 // sign-extend the accumulator before shifting in real bits
	}
	x = x<<7 | int64(first)
	for _, c := range b[1:] {
		x = x<<8 | int64(c)
	}
	return x
}

func trimNULSpace(b []byte) []byte {
	i, j := 0, len(b)
	for i < j && (b[i] == 0 || b[i] == ' ') {
		i++
	}
	for j > i && (b[j-1] == 0 || b[j-1] == ' ') {
		j--
	}
	return b[i:j]
}

func trimLeadingZeroes(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
