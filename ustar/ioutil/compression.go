package ioutil

import (
	"io"

	"github.com/andybalholm/brotli"
	"github.com/indrora/ustar/ustar/format"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

var (
	ErrUnknownCompression = errors.New("unknown compression")
)

type CompressWriter interface {
	// Copy reads from a Reader until there is no more to read,
	// compresses it into the writer,
	// and returns the bytes read and any error.
	Copy(io.Writer, io.Reader) (int64, error)
}

// NewCompressWriter picks the compressor for a compression type.
func NewCompressWriter(compression format.CompressionType) (CompressWriter, error) {
	switch compression {
	case format.COMPRESSION_NONE:
		return CopyWriter{}, nil
	case format.COMPRESSION_GZIP:
		return GzipWriter{}, nil
	case format.COMPRESSION_ZSTD:
		return ZstdWriter{}, nil
	case format.COMPRESSION_BROTLI:
		return BrotliWriter{}, nil
	case format.COMPRESSION_LZ4:
		return Lz4Writer{}, nil
	case format.COMPRESSION_XZ:
		return XzWriter{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownCompression, "%v", compression)
	}
}

type CopyWriter struct{}

func (compressor CopyWriter) Copy(writer io.Writer, reader io.Reader) (int64, error) {
	return io.Copy(writer, reader)
}

type GzipWriter struct{}

func (compressor GzipWriter) Copy(writer io.Writer, reader io.Reader) (int64, error) {
	gz := gzip.NewWriter(writer)
	return copyAndClose(gz, reader)
}

type ZstdWriter struct {
	Dictionary []byte
}

func (compressor ZstdWriter) Copy(writer io.Writer, reader io.Reader) (int64, error) {

	zWriter := (*zstd.Encoder)(nil)
	err := (error)(nil)
	if compressor.Dictionary == nil {
		zWriter, err = zstd.NewWriter(writer)
	} else {
		zWriter, err = zstd.NewWriter(writer, zstd.WithEncoderDict(compressor.Dictionary))
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to create zstd encoder")
	}

	return copyAndClose(zWriter, reader)
}

type BrotliWriter struct{}

func (compressor BrotliWriter) Copy(writer io.Writer, reader io.Reader) (int64, error) {
	return copyAndClose(brotli.NewWriter(writer), reader)
}

type Lz4Writer struct{}

func (compressor Lz4Writer) Copy(writer io.Writer, reader io.Reader) (int64, error) {
	return copyAndClose(lz4.NewWriter(writer), reader)
}

type XzWriter struct{}

func (compressor XzWriter) Copy(writer io.Writer, reader io.Reader) (int64, error) {
	xzWriter, err := xz.NewWriter(writer)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create xz writer")
	}
	return copyAndClose(xzWriter, reader)
}

// copyAndClose copies into a compressing writer and closes it so the
// trailer gets flushed. The destination below it is left open.
func copyAndClose(compressor io.WriteCloser, reader io.Reader) (int64, error) {
	read, err := io.Copy(compressor, reader)
	if err != nil {
		compressor.Close()
		return read, errors.Wrap(err, "failed to compress stream")
	}
	if err = compressor.Close(); err != nil {
		return read, errors.Wrap(err, "failed to finish compressed stream")
	}
	return read, nil
}
