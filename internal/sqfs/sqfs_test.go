package sqfs

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// encodeSuperBlock serializes a superblock for test images.
func encodeSuperBlock(t *testing.T, super *superBlock) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, super))
	require.Equal(t, superBlockSize, buf.Len())

	return buf.Bytes()
}

// validSuper returns a well-formed superblock template.
func validSuper() *superBlock {
	return &superBlock{
		Magic:     Magic,
		Inodes:    3,
		BlockSize: 131072,
		BlockLog:  17,
		VerMajor:  4,
	}
}

// fileRecord builds a basic file inode record: 16-byte common header plus
// the fixed payload.
func fileRecord(t *testing.T, size, fragIndex uint32) []byte {
	t.Helper()

	var buf bytes.Buffer

	header := make([]byte, 16)
	binary.LittleEndian.PutUint16(header, 2)
	buf.Write(header)

	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &fileInode{
		FragIndex: fragIndex,
		Size:      size,
	}))

	return buf.Bytes()
}

// rawMetadataBlock wraps a payload in an uncompressed metadata block.
func rawMetadataBlock(payload []byte) []byte {
	block := make([]byte, 2, 2+len(payload))
	binary.LittleEndian.PutUint16(block, 0x8000|uint16(len(payload)))

	return append(block, payload...)
}

// TestParseSuperBlockRejects covers the corrupted-superblock cases.
func TestParseSuperBlockRejects(t *testing.T) {
	t.Parallel()

	// Too short.
	_, err := parseSuperBlock(make([]byte, 32), 1<<20)
	require.ErrorIs(t, err, ErrBadImage)

	// Bad magic.
	super := validSuper()
	super.Magic = 0xDEADBEEF
	_, err = parseSuperBlock(encodeSuperBlock(t, super), 1<<20)
	require.ErrorIs(t, err, ErrBadImage)

	// Block size does not match the log field.
	super = validSuper()
	super.BlockSize = 131073
	_, err = parseSuperBlock(encodeSuperBlock(t, super), 1<<20)
	require.ErrorIs(t, err, ErrBadImage)

	// Unsupported version.
	super = validSuper()
	super.VerMajor = 3
	_, err = parseSuperBlock(encodeSuperBlock(t, super), 1<<20)
	require.ErrorIs(t, err, ErrBadImage)

	// Image claims to be bigger than the file.
	super = validSuper()
	super.Bytes = 1 << 30
	_, err = parseSuperBlock(encodeSuperBlock(t, super), 1<<20)
	require.ErrorIs(t, err, ErrBadImage)
}

// TestDecodeInodeTableRaw passes uncompressed metadata blocks through.
func TestDecodeInodeTableRaw(t *testing.T) {
	t.Parallel()

	payload := []byte("squashfs inode records")
	decoded, err := decodeInodeTable(rawMetadataBlock(payload))
	require.NoError(t, err)
	require.Equal(t, payload, decoded)

	// Truncated block.
	block := rawMetadataBlock(payload)
	_, err = decodeInodeTable(block[:len(block)-3])
	require.ErrorIs(t, err, ErrBadImage)
}

// TestSumInodeSizes walks crafted records and sums only file content.
func TestSumInodeSizes(t *testing.T) {
	t.Parallel()

	var table bytes.Buffer

	// Basic directory: 16-byte header plus 16-byte payload, contributes nothing.
	dir := make([]byte, 32)
	binary.LittleEndian.PutUint16(dir, 1)
	table.Write(dir)

	// File stored entirely in a fragment: no block list entries.
	table.Write(fileRecord(t, 1000, 0))

	// File without a fragment: the tail block rounds the block list up.
	table.Write(fileRecord(t, 1000, 0xFFFFFFFF))
	// One block-list entry.
	table.Write(make([]byte, 4))

	total, err := sumInodeSizes(table.Bytes(), 131072)
	require.NoError(t, err)
	require.Equal(t, uint64(2000), total)

	// An unknown inode type is a corrupt table.
	bad := make([]byte, 32)
	binary.LittleEndian.PutUint16(bad, 42)
	_, err = sumInodeSizes(bad, 131072)
	require.ErrorIs(t, err, ErrBadImage)
}

// TestSizeAndInodes probes a crafted minimal image end to end.
func TestSizeAndInodes(t *testing.T) {
	t.Parallel()

	record := fileRecord(t, 4096, 0)
	block := rawMetadataBlock(record)

	super := validSuper()
	super.InodeTable = superBlockSize
	super.DirTable = superBlockSize + uint64(len(block))
	super.Bytes = super.DirTable

	image := append(encodeSuperBlock(t, super), block...)
	path := filepath.Join(t.TempDir(), "test.squashfs")
	require.NoError(t, os.WriteFile(path, image, 0o600))

	size, inodes, err := SizeAndInodes(path)
	require.NoError(t, err)
	require.Equal(t, uint64(4096), size)
	require.Equal(t, uint32(3), inodes)
}

// TestSizeAndInodesMissingFile surfaces the open error.
func TestSizeAndInodesMissingFile(t *testing.T) {
	t.Parallel()

	_, _, err := SizeAndInodes(filepath.Join(t.TempDir(), "absent.squashfs"))
	require.Error(t, err)
}
