package reader

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/indrora/ustar/ustar/format"
	"github.com/indrora/ustar/ustar/ioutil"
	"github.com/pkg/errors"
)

// The reader walks the archive one header at a time. Between headers it
// hands out the payload of the current entry and never reads past it.

type ReaderState int

var (
	ErrTruncatedArchive = errors.New("archive ends early")
	ErrSequencing       = errors.New("previous entry has unread data")
	ErrState            = errors.New("tried reading body before you got a header")
)

const (
	STATE_HEADER  ReaderState = 0
	STATE_PAYLOAD ReaderState = 1
	STATE_DONE    ReaderState = 2
	STATE_ERROR   ReaderState = 3
)

func (s ReaderState) String() string {
	switch s {
	case STATE_HEADER:
		return "header"
	case STATE_PAYLOAD:
		return "payload"
	case STATE_DONE:
		return "done"
	case STATE_ERROR:
		return "error"
	}
	return "unknown"
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger used for stream tracing. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Reader is not safe for concurrent use. A failed read leaves it in
// STATE_ERROR and every later call returns the same error.
type Reader struct {
	stream    *ioutil.BlockReader
	header    *format.Header
	remaining int64
	state     ReaderState
	err       error
	logger    *slog.Logger
}

func NewReader(reader io.Reader, opts ...Option) *Reader {
	r := &Reader{
		stream: ioutil.NewBlockReader(reader, format.BLOCK_SIZE),
		state:  STATE_HEADER,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Next moves to the following entry and returns its header, or io.EOF at
// the end of the archive. Unread data in the current entry is an
// ErrSequencing unless allowSkip is set, in which case it is skipped.
//
// The archive ends at the first all-zero block or at a clean end of
// stream where a header would start.
func (reader *Reader) Next(allowSkip bool) (*format.Header, error) {
	switch reader.state {
	case STATE_DONE:
		return nil, io.EOF
	case STATE_ERROR:
		return nil, reader.err
	}

	if reader.remaining > 0 {
		if !allowSkip {
			return nil, errors.Wrapf(ErrSequencing, "%d bytes left in %q", reader.remaining, reader.header.Name)
		}
		reader.logger.Debug("skipping entry data",
			"name", reader.header.Name,
			"bytes", reader.remaining,
			"seek", reader.stream.CanSeek(),
		)
		if err := reader.stream.Discard(reader.remaining); err != nil {
			return nil, reader.fail(reader.streamError(err))
		}
		reader.remaining = 0
		if err := reader.stream.Realign(); err != nil {
			return nil, reader.fail(reader.streamError(err))
		}
	}

	offset := reader.stream.Offset()
	block, err := reader.stream.ReadBlock()
	if err == io.EOF {
		reader.logger.Debug("end of stream", "offset", offset)
		return nil, reader.finish()
	} else if err != nil {
		return nil, reader.fail(reader.streamError(err))
	}

	if bytes.Equal(block, format.ZERO_BLOCK) {
		reader.logger.Debug("end of archive marker", "offset", offset)
		return nil, reader.finish()
	}

	header, err := format.Decode(block)
	if err != nil {
		// Nothing after a bad header can be trusted
		return nil, reader.fail(errors.Wrapf(err, "header at offset %d", offset))
	}

	reader.header = header
	reader.remaining = header.PayloadSize()
	if reader.remaining > 0 {
		reader.state = STATE_PAYLOAD
	} else {
		reader.state = STATE_HEADER
	}

	reader.logger.Debug("entry",
		"name", header.Name,
		"type", header.Typeflag.String(),
		"size", header.Size,
		"offset", offset,
	)

	return header, nil
}

// Read reads payload of the current entry. It returns io.EOF once the
// entry is drained; the block padding after the payload is consumed by
// the read that drains it.
func (reader *Reader) Read(b []byte) (int, error) {
	switch {
	case reader.state == STATE_ERROR:
		return 0, reader.err
	case reader.state == STATE_DONE:
		return 0, io.EOF
	case reader.header == nil:
		return 0, ErrState
	case reader.state != STATE_PAYLOAD || reader.remaining == 0:
		return 0, io.EOF
	case len(b) == 0:
		return 0, nil
	}

	if int64(len(b)) > reader.remaining {
		b = b[:reader.remaining]
	}

	read, err := reader.stream.Read(b)
	reader.remaining -= int64(read)

	if err == io.EOF && reader.remaining > 0 {
		return read, reader.fail(reader.streamError(io.ErrUnexpectedEOF))
	} else if err != nil && err != io.EOF {
		return read, reader.fail(reader.streamError(err))
	}

	if reader.remaining == 0 {
		if err := reader.stream.Realign(); err != nil {
			return read, reader.fail(reader.streamError(err))
		}
		reader.state = STATE_HEADER
	}

	return read, nil
}

// CopyTo writes the rest of the current entry to writer.
func (reader *Reader) CopyTo(writer io.Writer) (int64, error) {
	return io.Copy(writer, reader)
}

// Header is the current entry, nil before the first Next.
func (reader *Reader) Header() *format.Header {
	return reader.header
}

// Remaining is the unread payload of the current entry.
func (reader *Reader) Remaining() int64 {
	return reader.remaining
}

func (reader *Reader) State() ReaderState {
	return reader.state
}

func (reader *Reader) finish() error {
	reader.state = STATE_DONE
	reader.header = nil
	reader.remaining = 0
	return io.EOF
}

func (reader *Reader) fail(err error) error {
	reader.state = STATE_ERROR
	reader.err = err
	reader.logger.Debug("archive read failed", "offset", reader.stream.Offset(), "error", err)
	return err
}

// streamError turns a failed read of the source into the error we report.
// Running out of stream mid block or mid payload is a truncated archive.
func (reader *Reader) streamError(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.Wrapf(ErrTruncatedArchive, "stream ended at offset %d", reader.stream.Offset())
	}
	return errors.Wrapf(err, "failed to read archive at offset %d", reader.stream.Offset())
}
