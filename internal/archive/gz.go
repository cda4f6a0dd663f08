package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrBadGzStream is returned when the stream is too short to carry a footer.
var ErrBadGzStream = errors.New("invalid gzip stream")

// GzDecompressedSize reads the ISIZE field from the gzip footer. Gzip only
// stores 32-bit sizes; when the compressed stream is clearly larger than the
// decoded value, the size wrapped around and is compensated.
func GzDecompressedSize(r io.ReadSeeker) (uint64, error) {
	footerPos, err := r.Seek(-4, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek gzip footer: %w", err)
	}

	if footerPos < 14 {
		return 0, fmt.Errorf("%w: stream too short", ErrBadGzStream)
	}

	var isize uint32
	if err = binary.Read(r, binary.LittleEndian, &isize); err != nil {
		return 0, fmt.Errorf("read gzip footer: %w", err)
	}

	size := uint64(isize)
	if uint64(footerPos)*2 > size {
		size += 1 << 32
	}

	return size, nil
}
