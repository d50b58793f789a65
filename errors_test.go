package rawtar

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeErrorIs(t *testing.T) {
	err := newDecodeError(KindTruncated, "short read of %d bytes", 3)
	require.ErrorIs(t, err, ErrTruncated)
	require.NotErrorIs(t, err, ErrHeaderMalformed)
}

func TestDecodeErrorMessage(t *testing.T) {
	err := newDecodeError(KindPaxMalformed, "bad keyword %q", "oops")
	require.Contains(t, err.Error(), "pax malformed")
	require.Contains(t, err.Error(), "oops")
}

func TestDecodeErrorUnwrap(t *testing.T) {
	err := newDecodeError(KindSparseMalformed, "overlap")
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	require.Equal(t, KindSparseMalformed, de.Kind)
}
