package format

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Header is the metadata of one archive entry. Prefix, Uname and Gname
// only reach the wire when the header is encoded as USTAR.
type Header struct {
	// Effective name, the USTAR prefix already joined on
	Name     string    `cbor:"0,keyasint"`
	Linkname string    `cbor:"1,keyasint,omitempty"`
	Mode     int64     `cbor:"2,keyasint"`
	Uid      int       `cbor:"3,keyasint"`
	Gid      int       `cbor:"4,keyasint"`
	Uname    string    `cbor:"5,keyasint,omitempty"`
	Gname    string    `cbor:"6,keyasint,omitempty"`
	Size     int64     `cbor:"7,keyasint"`
	ModTime  time.Time `cbor:"8,keyasint"`
	Typeflag EntryType `cbor:"9,keyasint"`
	Format   Format    `cbor:"10,keyasint"`
	// The checksum stored in the record, filled in by Decode
	Checksum int64 `cbor:"11,keyasint"`
}

// IsDir is true for directory entries and for any entry whose name ends
// in a path separator.
func (h *Header) IsDir() bool {
	if h.Typeflag == ENTRY_DIRECTORY {
		return true
	}
	return len(h.Name) > 0 && IsPathSeparator(h.Name[len(h.Name)-1])
}

// PayloadSize is the number of data bytes that follow the header in the
// stream. Header-only entries have none, even if Size says otherwise.
func (h *Header) PayloadSize() int64 {
	if h.Typeflag.IsHeaderOnly() || h.IsDir() {
		return 0
	}
	return h.Size
}

func (h *Header) FileMode() os.FileMode {
	mode := os.FileMode(h.Mode & 0o777)
	if h.IsDir() {
		return mode | os.ModeDir
	}
	return mode | h.Typeflag.fileMode()
}

// Checksum sums a header block with the checksum field read as spaces.
// unsigned is the POSIX sum; signed is the sum some historic tars
// produced with signed chars. Every byte value weighs differently in
// both sums, so no single changed byte goes unnoticed.
func Checksum(block []byte) (unsigned int64, signed int64) {
	for i, b := range block {
		if i >= CHKSUM_OFFSET && i < CHKSUM_OFFSET+CHKSUM_LEN {
			b = ' '
		}
		unsigned += int64(b)
		signed += int64(int8(b))
	}
	return unsigned, signed
}

// Decode parses one 512 byte header record. The checksum is verified
// before any other field is looked at, so a damaged record always reports
// ErrHeaderChecksum.
func Decode(block []byte) (*Header, error) {
	if int64(len(block)) != BLOCK_SIZE {
		return nil, errors.Wrapf(ErrMalformedHeader, "header is %d bytes", len(block))
	}

	// The checksum field is octal, as POSIX writes it
	stored, err := parseOctal(block[CHKSUM_OFFSET:CHKSUM_OFFSET+CHKSUM_LEN], "checksum")
	if err != nil {
		return nil, err
	}
	unsigned, signed := Checksum(block)
	if stored != unsigned && stored != signed {
		return nil, errors.Wrapf(ErrHeaderChecksum, "stored %o, computed %o", stored, unsigned)
	}

	h := &Header{
		Name:     cString(block[NAME_OFFSET : NAME_OFFSET+NAME_LEN]),
		Linkname: cString(block[LINKNAME_OFFSET : LINKNAME_OFFSET+LINKNAME_LEN]),
		Typeflag: EntryType(block[TYPEFLAG_OFFSET]),
		Format:   FORMAT_V7,
		Checksum: stored,
	}

	if h.Mode, err = parseOctal(block[MODE_OFFSET:MODE_OFFSET+MODE_LEN], "mode"); err != nil {
		return nil, err
	}
	uid, err := parseOctal(block[UID_OFFSET:UID_OFFSET+UID_LEN], "uid")
	if err != nil {
		return nil, err
	}
	gid, err := parseOctal(block[GID_OFFSET:GID_OFFSET+GID_LEN], "gid")
	if err != nil {
		return nil, err
	}
	h.Uid, h.Gid = int(uid), int(gid)

	if h.Size, err = parseSize(block[SIZE_OFFSET : SIZE_OFFSET+SIZE_LEN]); err != nil {
		return nil, err
	}
	mtime, err := parseOctal(block[MTIME_OFFSET:MTIME_OFFSET+MTIME_LEN], "mtime")
	if err != nil {
		return nil, err
	}
	h.ModTime = time.Unix(mtime, 0).UTC()

	if bytes.HasPrefix(block[MAGIC_OFFSET:], MAGIC_USTAR) {
		h.Format = FORMAT_USTAR
		h.Uname = cString(block[UNAME_OFFSET : UNAME_OFFSET+UNAME_LEN])
		h.Gname = cString(block[GNAME_OFFSET : GNAME_OFFSET+GNAME_LEN])
		if !isOldGNU(block) {
			h.Name = cString(block[PREFIX_OFFSET:PREFIX_OFFSET+PREFIX_LEN]) + h.Name
		}
	}
	if h.Uname == "" {
		h.Uname = strconv.Itoa(h.Uid)
	}
	if h.Gname == "" {
		h.Gname = strconv.Itoa(h.Gid)
	}

	return h, nil
}

// Encode renders h as a 512 byte record. Anything but FORMAT_V7 is
// written as USTAR with the GNU magic.
func Encode(h *Header) ([]byte, error) {
	if h.Name == "" {
		return nil, ErrEmptyName
	}
	ustar := h.Format != FORMAT_V7

	prefix, base := "", h.Name
	if ustar {
		var err error
		if prefix, base, err = SplitName(h.Name); err != nil {
			return nil, err
		}
	} else if len(h.Name) > NAME_LEN {
		return nil, errors.Wrapf(ErrNameTooLong, "%d bytes without a USTAR prefix", len(h.Name))
	}

	uname, gname := h.Uname, h.Gname
	if uname == "" {
		uname = strconv.Itoa(h.Uid)
	}
	if gname == "" {
		gname = strconv.Itoa(h.Gid)
	}
	if ustar && len(uname) > UNAME_LEN {
		return nil, errors.Wrapf(ErrFieldTooLong, "user name is %d bytes", len(uname))
	}
	if ustar && len(gname) > GNAME_LEN {
		return nil, errors.Wrapf(ErrFieldTooLong, "group name is %d bytes", len(gname))
	}
	if len(h.Linkname) > LINKNAME_LEN {
		return nil, errors.Wrapf(ErrFieldTooLong, "link name is %d bytes", len(h.Linkname))
	}
	if h.Size < 0 {
		return nil, errors.Wrapf(ErrMalformedHeader, "negative size %d", h.Size)
	}

	block := make([]byte, BLOCK_SIZE)
	copy(block[NAME_OFFSET:], base)

	if err := formatOctal(block[MODE_OFFSET:], 7, h.Mode, "mode"); err != nil {
		return nil, err
	}
	if err := formatOctal(block[UID_OFFSET:], 7, int64(h.Uid), "uid"); err != nil {
		return nil, err
	}
	if err := formatOctal(block[GID_OFFSET:], 7, int64(h.Gid), "gid"); err != nil {
		return nil, err
	}

	if h.Size >= MAX_OCTAL_SIZE {
		// GNU base-256: big endian, marker bit on the first byte
		binary.BigEndian.PutUint64(block[SIZE_OFFSET+4:SIZE_OFFSET+SIZE_LEN], uint64(h.Size))
		block[SIZE_OFFSET] |= 0x80
	} else if err := formatOctal(block[SIZE_OFFSET:], 11, h.Size, "size"); err != nil {
		return nil, err
	}

	var mtime int64
	if !h.ModTime.IsZero() {
		mtime = h.ModTime.Unix()
	}
	if err := formatOctal(block[MTIME_OFFSET:], 11, mtime, "mtime"); err != nil {
		return nil, err
	}

	block[TYPEFLAG_OFFSET] = byte(h.Typeflag)
	copy(block[LINKNAME_OFFSET:], h.Linkname)

	if ustar {
		copy(block[MAGIC_OFFSET:], MAGIC_GNU)
		copy(block[UNAME_OFFSET:], uname)
		copy(block[GNAME_OFFSET:], gname)
		copy(block[PREFIX_OFFSET:], prefix)
	}

	sum, _ := Checksum(block)
	if err := formatOctal(block[CHKSUM_OFFSET:], 6, sum, "checksum"); err != nil {
		return nil, err
	}
	block[CHKSUM_OFFSET+6] = 0
	block[CHKSUM_OFFSET+7] = ' '

	return block, nil
}

// SplitName divides a name into the USTAR prefix and base fields. The
// base starts at the first separator within the last 100 bytes and keeps
// it, so prefix+base is always the original name.
func SplitName(name string) (prefix string, base string, err error) {
	if len(name) <= NAME_LEN {
		return "", name, nil
	}
	if len(name) > MAX_NAME_LEN {
		return "", "", errors.Wrapf(ErrNameTooLong, "%d bytes, at most %d fit", len(name), MAX_NAME_LEN)
	}

	pos := len(name) - NAME_LEN
	for pos < len(name) && !IsPathSeparator(name[pos]) {
		pos++
	}
	if pos == len(name) {
		pos = len(name) - NAME_LEN
	}

	if pos > PREFIX_LEN {
		return "", "", errors.Wrapf(ErrNameTooLong, "prefix of %d bytes", pos)
	}
	return name[:pos], name[pos:], nil
}

// isOldGNU spots GNU headers that carry access and change times where
// USTAR has the prefix. Both time fields must hold octal numbers, which a
// prefix only does when its first 13 or more bytes are octal digits.
func isOldGNU(block []byte) bool {
	if !bytes.Equal(block[MAGIC_OFFSET:MAGIC_OFFSET+len(MAGIC_GNU)], MAGIC_GNU) {
		return false
	}
	for _, field := range [][]byte{
		block[GNU_ATIME_OFFSET : GNU_ATIME_OFFSET+GNU_ATIME_LEN],
		block[GNU_CTIME_OFFSET : GNU_CTIME_OFFSET+GNU_CTIME_LEN],
	} {
		s := strings.Trim(string(field), " \x00")
		if s == "" {
			return false
		}
		if _, err := strconv.ParseInt(s, 8, 64); err != nil {
			return false
		}
	}
	return true
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// parseOctal reads a space or NUL padded octal field. An empty field is 0.
func parseOctal(b []byte, field string) (int64, error) {
	s := strings.Trim(string(b), " \x00")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 8, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedHeader, "%s field %q", field, s)
	}
	return v, nil
}

func parseSize(b []byte) (int64, error) {
	if b[0]&0x80 == 0 {
		return parseOctal(b, "size")
	}

	// Base-256; anything wider than 63 bits does not fit an int64
	value := make([]byte, len(b))
	copy(value, b)
	value[0] &^= 0x80
	for _, c := range value[:len(value)-8] {
		if c != 0 {
			return 0, errors.Wrap(ErrMalformedHeader, "binary size overflows")
		}
	}
	size := binary.BigEndian.Uint64(value[len(value)-8:])
	if size > math.MaxInt64 {
		return 0, errors.Wrap(ErrMalformedHeader, "binary size overflows")
	}
	return int64(size), nil
}

// formatOctal writes v as digits zero padded octal characters at the
// start of dst. The terminator after them is left to the caller.
func formatOctal(dst []byte, digits int, v int64, field string) error {
	s := strconv.FormatInt(v, 8)
	if v < 0 || len(s) > digits {
		return errors.Wrapf(ErrFieldTooLong, "%s %d does not fit %d octal digits", field, v, digits)
	}
	copy(dst[:digits], strings.Repeat("0", digits-len(s))+s)
	return nil
}
