package reader

import (
	"bytes"
	"io"
	"testing"

	"github.com/indrora/ustar/ustar/format"
)

// streamOnly hides Seek so the reader has to discard by reading.
type streamOnly struct {
	io.Reader
}

// sources gives each test a seekable and a non-seekable view of the
// same bytes.
func sources(data []byte) map[string]io.Reader {
	return map[string]io.Reader{
		"seekable": bytes.NewReader(data),
		"stream":   streamOnly{bytes.NewReader(data)},
	}
}

// archiveBuilder lays out records by hand so tests control the exact
// bytes, end marker included.
type archiveBuilder struct {
	t   *testing.T
	buf bytes.Buffer
}

func newArchive(t *testing.T) *archiveBuilder {
	t.Helper()
	return &archiveBuilder{t: t}
}

func (b *archiveBuilder) entry(header format.Header, data []byte) *archiveBuilder {
	b.t.Helper()
	block, err := format.Encode(&header)
	if err != nil {
		b.t.Fatalf("encode %q: %v", header.Name, err)
	}
	b.buf.Write(block)
	b.buf.Write(data)
	if pad := len(data) % int(format.BLOCK_SIZE); pad != 0 {
		b.buf.Write(make([]byte, int(format.BLOCK_SIZE)-pad))
	}
	return b
}

func (b *archiveBuilder) file(name string, data string) *archiveBuilder {
	return b.entry(format.Header{
		Name:     name,
		Mode:     0644,
		Size:     int64(len(data)),
		Typeflag: format.ENTRY_REGULAR,
	}, []byte(data))
}

func (b *archiveBuilder) raw(data []byte) *archiveBuilder {
	b.buf.Write(data)
	return b
}

func (b *archiveBuilder) end() *archiveBuilder {
	b.buf.Write(format.ZERO_BLOCK)
	return b
}

func (b *archiveBuilder) bytes() []byte {
	return b.buf.Bytes()
}
