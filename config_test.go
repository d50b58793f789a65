package rawtar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigWithDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	require.EqualValues(t, headerSize, c.RecordSize)
	require.EqualValues(t, 10*headerSize, c.BlockSize)
	require.Equal(t, UTF8Decoder, c.TextDecoder)
	require.NotNil(t, c.Telemetry)
}

func TestConfigWithDefaultsPreservesExplicitValues(t *testing.T) {
	c := Config{RecordSize: 1024, BlockSize: 2048, Lenient: true}.withDefaults()
	require.EqualValues(t, 1024, c.RecordSize)
	require.EqualValues(t, 2048, c.BlockSize)
	require.True(t, c.Lenient)
}

func TestNoopByteCounter(t *testing.T) {
	var c ByteCounter = noopByteCounter{}
	require.NotPanics(t, func() { c.AddBytesRead(100) })
}
