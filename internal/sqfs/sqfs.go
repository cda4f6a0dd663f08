package sqfs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"
)

// Magic is the squashfs superblock magic ("hsqs" little-endian).
const Magic = 0x73717368

// superBlockSize is the byte length of the on-disk superblock.
const superBlockSize = 96

// ErrBadImage is returned when the input is not a supported squashfs image.
var ErrBadImage = errors.New("invalid squashfs image")

// recordSizes gives the fixed payload length after the common header for
// simple inode types, indexed by inode type.
var recordSizes = [...]int64{0, 16, 0, 8, 8, 8, 4, 4, 0, 0, 8, 12, 12, 8, 8}

// superBlock is the squashfs v4.0 superblock layout.
type superBlock struct {
	Magic       uint32
	Inodes      uint32
	MTime       uint32
	BlockSize   uint32
	Fragments   uint32
	Compression uint16
	BlockLog    uint16
	Flags       uint16
	IDs         uint16
	VerMajor    uint16
	VerMinor    uint16
	RootInode   uint64
	Bytes       uint64
	IDTable     uint64
	XattrsTable uint64
	InodeTable  uint64
	DirTable    uint64
	FragTable   uint64
	ExportTable uint64
}

// fileInode is the type-2 (basic file) payload after the common header.
type fileInode struct {
	Start     uint32
	FragIndex uint32
	Offset    uint32
	Size      uint32
}

// extFileInode is the type-9 (extended file) payload after the common header.
type extFileInode struct {
	Start     uint64
	Size      uint64
	Sparse    uint64
	Links     uint32
	FragIndex uint32
	Offset    uint32
	Xattr     uint32
}

// SizeAndInodes returns the total content size of all regular files in the
// image and the image's inode count without unpacking it: it reads the
// superblock, decodes the inode table metadata blocks and walks the inode
// records.
func SizeAndInodes(path string) (uint64, uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open squashfs image: %w", err)
	}

	// Best-effort cleanup, file is read-only.
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("stat squashfs image: %w", err)
	}

	header := make([]byte, superBlockSize)
	if _, err = io.ReadFull(f, header); err != nil {
		return 0, 0, fmt.Errorf("%w: too small to hold a superblock", ErrBadImage)
	}

	super, err := parseSuperBlock(header, uint64(info.Size()))
	if err != nil {
		return 0, 0, err
	}

	if super.DirTable < super.InodeTable || super.DirTable > uint64(info.Size()) {
		return 0, 0, fmt.Errorf("%w: inode table bounds are corrupted", ErrBadImage)
	}

	raw := make([]byte, super.DirTable-super.InodeTable)
	if _, err = f.ReadAt(raw, int64(super.InodeTable)); err != nil {
		return 0, 0, fmt.Errorf("read inode table: %w", err)
	}

	table, err := decodeInodeTable(raw)
	if err != nil {
		return 0, 0, err
	}

	size, err := sumInodeSizes(table, super.BlockSize)
	if err != nil {
		return 0, 0, err
	}

	return size, super.Inodes, nil
}

// parseSuperBlock validates and decodes the superblock.
func parseSuperBlock(data []byte, fileSize uint64) (*superBlock, error) {
	if len(data) < superBlockSize {
		return nil, fmt.Errorf("%w: too small to hold a superblock", ErrBadImage)
	}

	var super superBlock
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &super); err != nil {
		return nil, fmt.Errorf("decode superblock: %w", err)
	}

	if super.Magic != Magic {
		return nil, fmt.Errorf("%w: bad magic in superblock", ErrBadImage)
	}

	if super.BlockLog > 31 || super.BlockSize != 1<<super.BlockLog {
		return nil, fmt.Errorf("%w: block size field is corrupted", ErrBadImage)
	}

	if super.VerMajor != 4 || super.VerMinor != 0 {
		return nil, fmt.Errorf("%w: unsupported version %d.%d", ErrBadImage, super.VerMajor, super.VerMinor)
	}

	if super.Bytes > fileSize {
		return nil, fmt.Errorf("%w: size field is corrupted", ErrBadImage)
	}

	return &super, nil
}

// decodeInodeTable expands the metadata blocks holding the inode records.
// Each block starts with a 16-bit header: bit 15 set means the block is
// stored uncompressed, the low 15 bits are its stored length.
func decodeInodeTable(data []byte) ([]byte, error) {
	var buffer bytes.Buffer

	pos := 0
	for pos < len(data) {
		if pos+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated metadata block header", ErrBadImage)
		}

		header := binary.LittleEndian.Uint16(data[pos:])
		compressed := header&0x8000 == 0
		blockEnd := pos + 2 + int(header&0x7fff)

		if blockEnd > len(data) {
			return nil, fmt.Errorf("%w: truncated metadata block", ErrBadImage)
		}

		if compressed {
			decoder, err := xz.NewReader(bytes.NewReader(data[pos+2 : blockEnd]))
			if err != nil {
				return nil, fmt.Errorf("open metadata block: %w", err)
			}

			if _, err = buffer.ReadFrom(decoder); err != nil {
				return nil, fmt.Errorf("decompress metadata block: %w", err)
			}
		} else {
			buffer.Write(data[pos+2 : blockEnd])
		}

		pos = blockEnd
	}

	return buffer.Bytes(), nil
}

// sumInodeSizes walks decoded inode records and sums regular file sizes.
func sumInodeSizes(table []byte, blockSize uint32) (uint64, error) {
	var (
		pos   int64
		total uint64
	)

	for pos < int64(len(table)) {
		size, span := inodeSpan(table[pos:], blockSize)
		if span < 1 {
			return 0, fmt.Errorf("%w: invalid record in inode table at byte %d", ErrBadImage, pos)
		}

		total += size
		pos += span + 16
	}

	return total, nil
}

// inodeSpan returns the file content size contributed by the record at the
// start of data and the length of the record payload after the 16-byte
// common header. A span below 1 marks a corrupt record.
func inodeSpan(data []byte, blockSize uint32) (uint64, int64) {
	if len(data) < 16 {
		return 0, 0
	}

	inodeType := binary.LittleEndian.Uint16(data)

	switch inodeType {
	case 1, 4, 5, 6, 7, 11, 12, 13, 14:
		return 0, recordSizes[inodeType]
	case 2:
		var record fileInode
		if binary.Read(bytes.NewReader(data[16:]), binary.LittleEndian, &record) != nil {
			return 0, 0
		}

		return uint64(record.Size), int64(fileBlockCount(uint64(record.Size), record.FragIndex, blockSize))*4 + 16
	case 3:
		if len(data) < 24 {
			return 0, 0
		}

		// Symlink: u32 link count, u32 target path length, then the path.
		pathLen := binary.LittleEndian.Uint32(data[20:])

		return 0, int64(pathLen) + 8
	case 8:
		// Extended directory: optional index entries follow the header.
		if len(data) < 40 {
			return 0, 0
		}

		indexCount := binary.LittleEndian.Uint16(data[32:])
		if indexCount == 0 {
			return 0, 24
		}

		return 0, 24 + extendedDirSpan(data[40:], indexCount)
	case 9:
		var record extFileInode
		if binary.Read(bytes.NewReader(data[16:]), binary.LittleEndian, &record) != nil {
			return 0, 0
		}

		return record.Size, int64(fileBlockCount(record.Size, record.FragIndex, blockSize))*4 + 40
	default:
		return 0, 0
	}
}

// fileBlockCount returns how many block-size entries a file inode carries.
// Files ending in a fragment do not store an entry for the tail.
func fileBlockCount(size uint64, fragIndex, blockSize uint32) uint64 {
	count := size / uint64(blockSize)
	if fragIndex == 0xFFFFFFFF && size%uint64(blockSize) > 0 {
		count++
	}

	return count
}

// extendedDirSpan sums the variable-length directory index entries.
func extendedDirSpan(data []byte, count uint16) int64 {
	var pos int64

	for i := uint16(0); i < count; i++ {
		if pos+12 > int64(len(data)) {
			return 0
		}

		nameLen := int64(binary.LittleEndian.Uint32(data[pos+8:])) + 1
		pos += nameLen + 12
	}

	return pos
}
