package transmitter

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"
)

// FrameRecorder appends every transmitted frame, prefixed with an 8-byte
// big-endian nanosecond timestamp and a 4-byte big-endian length, to a
// gzip-compressed diagnostic log. It is optional: most runs never attach one.
type FrameRecorder struct {
	f  *os.File
	gz *gzip.Writer
}

// NewFrameRecorder creates (or truncates) the recording at path.
func NewFrameRecorder(path string) (*FrameRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("transmitter: create frame recording: %w", err)
	}
	return &FrameRecorder{f: f, gz: gzip.NewWriter(f)}, nil
}

// Record appends one frame with its send timestamp.
func (r *FrameRecorder) Record(at time.Time, frame []byte) error {
	var header [12]byte
	binary.BigEndian.PutUint64(header[0:8], uint64(at.UnixNano()))
	binary.BigEndian.PutUint32(header[8:12], uint32(len(frame)))
	if _, err := r.gz.Write(header[:]); err != nil {
		return err
	}
	_, err := r.gz.Write(frame)
	return err
}

// Close flushes the gzip stream and closes the underlying file.
func (r *FrameRecorder) Close() error {
	if err := r.gz.Close(); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}
