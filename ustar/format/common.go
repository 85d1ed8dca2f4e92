package format

import (
	"fmt"
	"os"
)

/*

A ustar record is a single 512 byte block. Field offsets below are the
POSIX layout; the GNU magic ("ustar  \x00") shares the same offsets for
every field we read or write.

*/

const BLOCK_SIZE int64 = 512

const (
	NAME_OFFSET     = 0
	NAME_LEN        = 100
	MODE_OFFSET     = 100
	MODE_LEN        = 8
	UID_OFFSET      = 108
	UID_LEN         = 8
	GID_OFFSET      = 116
	GID_LEN         = 8
	SIZE_OFFSET     = 124
	SIZE_LEN        = 12
	MTIME_OFFSET    = 136
	MTIME_LEN       = 12
	CHKSUM_OFFSET   = 148
	CHKSUM_LEN      = 8
	TYPEFLAG_OFFSET = 156
	LINKNAME_OFFSET = 157
	LINKNAME_LEN    = 100
	MAGIC_OFFSET    = 257
	VERSION_OFFSET  = 263
	UNAME_OFFSET    = 265
	UNAME_LEN       = 32
	GNAME_OFFSET    = 297
	GNAME_LEN       = 32
	PREFIX_OFFSET   = 345
	PREFIX_LEN      = 155

	// Old GNU headers keep times where USTAR keeps the prefix
	GNU_ATIME_OFFSET = 345
	GNU_ATIME_LEN    = 12
	GNU_CTIME_OFFSET = 357
	GNU_CTIME_LEN    = 12
)

const (
	// Longest name a header can describe, prefix included
	MAX_NAME_LEN = PREFIX_LEN + NAME_LEN

	// Sizes at or above this are written as base-256 binary
	MAX_OCTAL_SIZE int64 = 0x1FFFFFFFF
)

var (
	MAGIC_USTAR = []byte("ustar")
	// The magic and version we write, "ustar  \x00"
	MAGIC_GNU = []byte{'u', 's', 't', 'a', 'r', ' ', ' ', 0}

	ZERO_BLOCK = make([]byte, BLOCK_SIZE)
)

type EntryType byte

const (
	ENTRY_REGULAR_OBSOLETE EntryType = 0
	ENTRY_REGULAR          EntryType = '0'
	ENTRY_HARDLINK         EntryType = '1'
	ENTRY_SYMLINK          EntryType = '2'
	ENTRY_CHAR_DEVICE      EntryType = '3'
	ENTRY_BLOCK_DEVICE     EntryType = '4'
	ENTRY_DIRECTORY        EntryType = '5'
	ENTRY_FIFO             EntryType = '6'
)

func (t EntryType) String() string {
	switch t {
	case ENTRY_REGULAR, ENTRY_REGULAR_OBSOLETE:
		return "file"
	case ENTRY_HARDLINK:
		return "hardlink"
	case ENTRY_SYMLINK:
		return "symlink"
	case ENTRY_CHAR_DEVICE:
		return "chardev"
	case ENTRY_BLOCK_DEVICE:
		return "blockdev"
	case ENTRY_DIRECTORY:
		return "directory"
	case ENTRY_FIFO:
		return "fifo"
	default:
		return fmt.Sprintf("unknown(%#02x)", byte(t))
	}
}

// IsRegular reports whether entries of this type carry file data.
// Unknown typeflags are treated as regular files.
func (t EntryType) IsRegular() bool {
	return !t.IsHeaderOnly()
}

// IsHeaderOnly reports whether the type never has payload blocks,
// whatever its size field says.
func (t EntryType) IsHeaderOnly() bool {
	switch t {
	case ENTRY_HARDLINK, ENTRY_SYMLINK, ENTRY_CHAR_DEVICE, ENTRY_BLOCK_DEVICE, ENTRY_DIRECTORY, ENTRY_FIFO:
		return true
	}
	return false
}

func (t EntryType) fileMode() os.FileMode {
	switch t {
	case ENTRY_DIRECTORY:
		return os.ModeDir
	case ENTRY_SYMLINK:
		return os.ModeSymlink
	case ENTRY_CHAR_DEVICE:
		return os.ModeDevice | os.ModeCharDevice
	case ENTRY_BLOCK_DEVICE:
		return os.ModeDevice
	case ENTRY_FIFO:
		return os.ModeNamedPipe
	}
	return 0
}

type Format uint8

const (
	FORMAT_UNKNOWN Format = 0
	FORMAT_V7      Format = 1
	FORMAT_USTAR   Format = 2
)

func (f Format) String() string {
	switch f {
	case FORMAT_V7:
		return "v7"
	case FORMAT_USTAR:
		return "ustar"
	default:
		return "unknown"
	}
}

// IsPathSeparator matches every separator we have seen in archive names.
func IsPathSeparator(ch byte) bool {
	return ch == '/' || ch == '\\' || ch == '|'
}

type CompressionType uint8

const (
	COMPRESSION_NONE   CompressionType = 0
	COMPRESSION_GZIP   CompressionType = 1
	COMPRESSION_ZSTD   CompressionType = 2
	COMPRESSION_BROTLI CompressionType = 3
	COMPRESSION_LZ4    CompressionType = 4
	COMPRESSION_XZ     CompressionType = 5
)

var compressionNames = map[CompressionType]string{
	COMPRESSION_NONE:   "none",
	COMPRESSION_GZIP:   "gzip",
	COMPRESSION_ZSTD:   "zstd",
	COMPRESSION_BROTLI: "brotli",
	COMPRESSION_LZ4:    "lz4",
	COMPRESSION_XZ:     "xz",
}

func (c CompressionType) String() string {
	if name, ok := compressionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// ParseCompression maps a name as printed by String back to its type.
func ParseCompression(name string) (CompressionType, bool) {
	for c, n := range compressionNames {
		if n == name {
			return c, true
		}
	}
	return COMPRESSION_NONE, false
}
