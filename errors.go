// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawtar

import (
	"fmt"

	"github.com/pkg/errors"
)

// DecodeKind classifies the reason a Cursor operation failed.
type DecodeKind int

const (
	// KindTruncated: the underlying source ended mid-record, mid-payload,
	// or mid-PAX header.
	KindTruncated DecodeKind = iota
	// KindHeaderMalformed: magic/version/checksum mismatch, or (when not
	// lenient) an out-of-range numeric field.
	KindHeaderMalformed
	// KindPaxMalformed: malformed "length keyword=value\n" PAX record.
	KindPaxMalformed
	// KindSparseMalformed: overlapping or invalid sparse spans.
	KindSparseMalformed
	// KindState: read/skip invoked with no current entry.
	KindState
)

func (k DecodeKind) String() string {
	switch k {
	case KindTruncated:
		return "truncated"
	case KindHeaderMalformed:
		return "header malformed"
	case KindPaxMalformed:
		return "pax malformed"
	case KindSparseMalformed:
		return "sparse malformed"
	case KindState:
		return "invalid state"
	default:
		return "unknown"
	}
}

// DecodeError is the error type returned by every decode-path failure in
// this package. Compare against the sentinel Err* values below with
// errors.Is; the sentinels carry no context, DecodeError.Detail does.
type DecodeError struct {
	Kind   DecodeKind
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return "rawtar: " + e.Kind.String()
	}
	return fmt.Sprintf("rawtar: %s: %s", e.Kind, e.Detail)
}

// Is reports whether target is the sentinel for e's Kind, so that
// errors.Is(err, ErrHeaderMalformed) works regardless of Detail or wrapping.
func (e *DecodeError) Is(target error) bool {
	other, ok := target.(*DecodeError)
	return ok && other.Kind == e.Kind
}

// Sentinel errors, one per DecodeKind, for use with errors.Is.
var (
	ErrTruncated       = &DecodeError{Kind: KindTruncated}
	ErrHeaderMalformed = &DecodeError{Kind: KindHeaderMalformed}
	ErrPaxMalformed    = &DecodeError{Kind: KindPaxMalformed}
	ErrSparseMalformed = &DecodeError{Kind: KindSparseMalformed}
	ErrState           = &DecodeError{Kind: KindState}
)

// newDecodeError builds a DecodeError carrying a formatted detail message
// and wraps it with pkg/errors so that a %+v format verb on the returned
// error yields a stack trace at the point of failure.
func newDecodeError(kind DecodeKind, format string, args ...any) error {
	de := &DecodeError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
	return errors.WithStack(de)
}
