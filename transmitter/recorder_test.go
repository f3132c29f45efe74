package transmitter_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridstream/sv92/transmitter"
)

func TestFrameRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.gz")
	rec, err := transmitter.NewFrameRecorder(path)
	require.NoError(t, err)

	require.NoError(t, rec.Record(time.Unix(0, 1000), []byte{1, 2, 3}))
	require.NoError(t, rec.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	header := make([]byte, 12)
	_, err = io.ReadFull(gz, header)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), be32(header[8:12]))

	body := make([]byte, 3)
	_, err = io.ReadFull(gz, body)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, body)
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
