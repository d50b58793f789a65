package rawtar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaxParserBasic(t *testing.T) {
	body := "16 path=foo.txt\n"
	var sparse []SparseSpan
	out, err := (paxParser{}).parse(strings.NewReader(body), nil, &sparse)
	require.NoError(t, err)
	require.Equal(t, "foo.txt", out[paxPath])
	require.Empty(t, sparse)
}

func TestPaxParserLocalOverridesAndDeletesGlobal(t *testing.T) {
	base := map[string]string{paxUname: "alice", paxGname: "wheel"}
	// "uname=bob" overrides; an empty-value "gname=" record deletes.
	body := "13 uname=bob\n9 gname=\n"
	var sparse []SparseSpan
	out, err := (paxParser{}).parse(strings.NewReader(body), base, &sparse)
	require.NoError(t, err)
	require.Equal(t, "bob", out[paxUname])
	_, ok := out[paxGname]
	require.False(t, ok)
	require.Equal(t, "alice", base[paxUname], "base map must not be mutated by parse")
}

func TestPaxParserSparse00OffsetNumbytes(t *testing.T) {
	body := "23 GNU.sparse.offset=0\n" +
		"25 GNU.sparse.numbytes=4\n" +
		"24 GNU.sparse.offset=12\n" +
		"25 GNU.sparse.numbytes=4\n"
	var sparse []SparseSpan
	_, err := (paxParser{}).parse(strings.NewReader(body), nil, &sparse)
	require.NoError(t, err)
	require.Equal(t, []SparseSpan{{Offset: 0, Length: 4}, {Offset: 12, Length: 4}}, sparse)
}

func TestPaxParserMissingEquals(t *testing.T) {
	body := "14 nokeyvalue\n"
	var sparse []SparseSpan
	_, err := (paxParser{}).parse(strings.NewReader(body), nil, &sparse)
	require.Error(t, err)
}

func TestPaxParserTruncatedLength(t *testing.T) {
	body := "500 path=foo\n"
	var sparse []SparseSpan
	_, err := (paxParser{}).parse(strings.NewReader(body), nil, &sparse)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTruncated)
}
