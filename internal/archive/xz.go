package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

var (
	// ErrBadXzStream is returned when the stream footer or index does not
	// look like a valid xz stream.
	ErrBadXzStream = errors.New("invalid xz stream")
	// errBadVarint is returned when a multibyte integer does not terminate.
	errBadVarint = errors.New("bad varint encoding")
)

// xzHeaderMagic opens every xz stream; xzFooterMagic closes it.
var (
	xzHeaderMagic = [6]byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
	xzFooterMagic = [2]byte{'Y', 'Z'}
)

// XzDecompressedSize streams through the decoder and returns the total
// uncompressed size. It is exact but reads the whole stream.
func XzDecompressedSize(r io.Reader) (uint64, error) {
	decoder, err := xz.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("open xz stream: %w", err)
	}

	size, err := io.Copy(io.Discard, decoder)
	if err != nil {
		return 0, fmt.Errorf("decompress xz stream: %w", err)
	}

	return uint64(size), nil
}

// XzDecompressedSizeFromIndex computes the total uncompressed size of an xz
// stream by walking the stream footers and index records backwards, without
// decompressing any data. Concatenated streams are summed.
func XzDecompressedSizeFromIndex(r io.ReadSeeker) (uint64, error) {
	var size uint64

	pos, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek xz stream: %w", err)
	}

	// Streams are padded to four-byte boundaries.
	if pos&3 != 0 {
		return 0, fmt.Errorf("%w: incorrect alignment", ErrBadXzStream)
	}

	var (
		footer [2]byte
		header [6]byte
	)

	for {
		// Find the footer magic of the last (remaining) stream, skipping
		// any stream padding.
		for {
			if pos < 32 {
				return 0, fmt.Errorf("%w: bad stream length", ErrBadXzStream)
			}

			pos -= 4
			if _, err = r.Seek(pos+2, io.SeekStart); err != nil {
				return 0, fmt.Errorf("seek xz stream: %w", err)
			}

			if _, err = io.ReadFull(r, footer[:]); err != nil {
				return 0, fmt.Errorf("read xz footer: %w", err)
			}

			if footer == xzFooterMagic {
				break
			}
		}

		// Backward size field: the index size in four-byte words minus one.
		if _, err = r.Seek(pos-4, io.SeekStart); err != nil {
			return 0, fmt.Errorf("seek xz stream: %w", err)
		}

		var backward uint32
		if err = binary.Read(r, binary.LittleEndian, &backward); err != nil {
			return 0, fmt.Errorf("read xz backward size: %w", err)
		}

		pos -= (int64(backward)+1)<<2 + 8

		// The index starts with an indicator byte followed by the record count.
		if _, err = r.Seek(pos+1, io.SeekStart); err != nil {
			return 0, fmt.Errorf("seek xz index: %w", err)
		}

		records, err := readVarint(r)
		if err != nil {
			return 0, err
		}

		for i := uint64(0); i < records; i++ {
			unpadded, err := readVarint(r)
			if err != nil {
				return 0, err
			}

			// Blocks are stored padded to four bytes.
			pos -= int64((unpadded + 3) &^ 3)

			uncompressed, err := readVarint(r)
			if err != nil {
				return 0, err
			}

			size += uncompressed
		}

		// Step over the stream header of this stream and verify its magic.
		pos -= 12
		if _, err = r.Seek(pos, io.SeekStart); err != nil {
			return 0, fmt.Errorf("seek xz header: %w", err)
		}

		if _, err = io.ReadFull(r, header[:]); err != nil {
			return 0, fmt.Errorf("read xz header: %w", err)
		}

		if header != xzHeaderMagic {
			return 0, fmt.Errorf("%w: bad backward header", ErrBadXzStream)
		}

		if pos < 1 {
			break
		}
	}

	return size, nil
}

// readVarint decodes the xz multibyte integer encoding.
func readVarint(r io.Reader) (uint64, error) {
	var (
		value uint64
		buf   [1]byte
		shift int
	)

	for {
		if shift == 63 {
			return 0, errBadVarint
		}

		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, fmt.Errorf("read varint: %w", err)
		}

		value |= uint64(buf[0]&0x7f) << shift
		shift += 7

		if buf[0]&0x80 == 0 {
			break
		}
	}

	return value, nil
}
