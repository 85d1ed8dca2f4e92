package bundle

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/indrora/ustar/ustar/format"
	"github.com/indrora/ustar/ustar/ioutil"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicXz   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicLz4  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Sniff guesses the compression of a bundle from its first bytes. Brotli
// streams carry no magic and are never detected.
func Sniff(data []byte) (format.CompressionType, bool) {
	switch {
	case bytes.HasPrefix(data, magicGzip):
		return format.COMPRESSION_GZIP, true
	case bytes.HasPrefix(data, magicZstd):
		return format.COMPRESSION_ZSTD, true
	case bytes.HasPrefix(data, magicXz):
		return format.COMPRESSION_XZ, true
	case bytes.HasPrefix(data, magicLz4):
		return format.COMPRESSION_LZ4, true
	case isTar(data):
		return format.COMPRESSION_NONE, true
	}
	return format.COMPRESSION_NONE, false
}

// isTar accepts anything whose first block is a valid header or an end
// marker, so old v7 archives without a magic pass too.
func isTar(data []byte) bool {
	if len(data) < int(format.BLOCK_SIZE) {
		return false
	}
	block := data[:format.BLOCK_SIZE]
	if bytes.Equal(block, format.ZERO_BLOCK) {
		return true
	}
	_, err := format.Decode(block)
	return err == nil
}

func (cfg *config) decompressor(compressed io.Reader, compression format.CompressionType) (io.ReadCloser, error) {

	switch compression {
	case format.COMPRESSION_NONE:
		return io.NopCloser(compressed), nil // no compression = passthru
	case format.COMPRESSION_GZIP:
		gz, err := gzip.NewReader(compressed)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open gzip stream")
		}
		return gz, nil
	case format.COMPRESSION_BROTLI:
		return io.NopCloser(brotli.NewReader(compressed)), nil
	case format.COMPRESSION_ZSTD:
		var decoder *zstd.Decoder
		var err error
		if cfg.zstdDict != nil {
			decoder, err = zstd.NewReader(compressed, zstd.WithDecoderDicts(cfg.zstdDict))
		} else {
			decoder, err = zstd.NewReader(compressed)
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to open zstd stream")
		}
		return decoder.IOReadCloser(), nil
	case format.COMPRESSION_LZ4:
		return io.NopCloser(lz4.NewReader(compressed)), nil
	case format.COMPRESSION_XZ:
		xzReader, err := xz.NewReader(compressed)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open xz stream")
		}
		return io.NopCloser(xzReader), nil
	default:
		return nil, errors.Wrapf(ioutil.ErrUnknownCompression, "%v", compression)
	}

}
