package writer

import (
	"io"

	"github.com/indrora/ustar/ustar/format"
	pio "github.com/indrora/ustar/ustar/ioutil"
	"github.com/pkg/errors"
)

var (
	ErrWriteTooLong = errors.New("write exceeds the size in the header")
	ErrMissingData  = errors.New("entry has fewer bytes than its header declared")
	ErrClosed       = errors.New("archive writer is closed")
)

// ArchiveWriter produces a ustar stream: header, payload padded to the
// block size, and two zero blocks at the end.
type ArchiveWriter struct {
	blockio   *pio.BlockWriter
	current   *format.Header
	remaining int64
	closed    bool
}

func NewWriter(file io.Writer) *ArchiveWriter {

	return &ArchiveWriter{
		blockio: pio.NewBlockWriter(file, format.BLOCK_SIZE),
	}

}

// WriteHeader finishes the previous entry and starts a new one. The
// payload, if the entry has one, follows through Write.
func (archive *ArchiveWriter) WriteHeader(header *format.Header) error {
	if archive.closed {
		return ErrClosed
	}
	if err := archive.finishEntry(); err != nil {
		return err
	}

	record, err := format.Encode(header)
	if err != nil {
		return errors.Wrapf(err, "failed to encode header for %q", header.Name)
	}
	if _, err = archive.blockio.Write(record); err != nil {
		return errors.Wrap(err, "failed to write to underlying stream")
	}

	archive.current = header
	archive.remaining = header.PayloadSize()
	return nil
}

// Write adds payload to the current entry. Bytes beyond the declared size
// are refused with ErrWriteTooLong.
func (archive *ArchiveWriter) Write(p []byte) (int, error) {
	if archive.closed {
		return 0, ErrClosed
	}

	overflow := false
	if int64(len(p)) > archive.remaining {
		p = p[:archive.remaining]
		overflow = true
	}

	written, err := archive.blockio.Write(p)
	archive.remaining -= int64(written)
	if err != nil {
		return written, errors.Wrap(err, "failed to write to underlying stream")
	}
	if overflow {
		return written, ErrWriteTooLong
	}
	return written, nil
}

// AppendBytes adds a whole entry. The header's size is taken from data.
func (archive *ArchiveWriter) AppendBytes(header format.Header, data []byte) error {
	header.Size = int64(len(data))
	if err := archive.WriteHeader(&header); err != nil {
		return err
	}
	if header.PayloadSize() == 0 {
		return nil
	}
	_, err := archive.Write(data)
	return err
}

// AppendStream adds an entry whose payload is read from stream. The
// stream must hold at least header.Size bytes.
func (archive *ArchiveWriter) AppendStream(header format.Header, stream io.Reader) error {
	if err := archive.WriteHeader(&header); err != nil {
		return err
	}
	copied, err := io.CopyN(archive, stream, header.PayloadSize())
	if err == io.EOF {
		return errors.Wrapf(ErrMissingData, "%q: got %d of %d bytes", header.Name, copied, header.PayloadSize())
	}
	return err
}

// Close ends the archive and closes the destination if it is a Closer.
func (archive *ArchiveWriter) Close() error {
	if archive.closed {
		return nil
	}
	if err := archive.finishEntry(); err != nil {
		return err
	}
	archive.closed = true

	for i := 0; i < 2; i++ {
		if _, err := archive.blockio.Write(format.ZERO_BLOCK); err != nil {
			return errors.Wrap(err, "failed to write end of archive")
		}
	}
	return archive.blockio.Close()
}

func (archive *ArchiveWriter) finishEntry() error {
	if archive.remaining > 0 {
		return errors.Wrapf(ErrMissingData, "%q is %d bytes short", archive.current.Name, archive.remaining)
	}
	if err := archive.blockio.Align(); err != nil {
		return err
	}
	archive.current = nil
	return nil
}
