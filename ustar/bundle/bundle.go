// Package bundle handles provisioning bundles: a tar archive, usually
// compressed, carried as base64 text in a settings file or API response.
package bundle

import (
	"bytes"
	"encoding/base64"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/indrora/ustar/ustar/format"
	"github.com/indrora/ustar/ustar/format/manifest"
	"github.com/indrora/ustar/ustar/ioutil"
	"github.com/indrora/ustar/ustar/reader"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var (
	ErrBadEncoding        = errors.New("bundle is not valid base64")
	ErrUnknownCompression = ioutil.ErrUnknownCompression
)

type config struct {
	skipIfExists string
	manifestName string
	strict       bool
	compression  format.CompressionType
	forced       bool
	zstdDict     []byte
	logger       *slog.Logger
}

type Option func(*config)

// WithSkipIfExists makes Install do nothing when name already exists
// below the destination, e.g. a certificate from an earlier run.
func WithSkipIfExists(name string) Option {
	return func(c *config) {
		c.skipIfExists = name
	}
}

// WithManifest has Install write a CBOR manifest of what it extracted to
// name below the destination.
func WithManifest(name string) Option {
	return func(c *config) {
		c.manifestName = name
	}
}

// WithStrictPaths refuses entries that would land outside the destination.
func WithStrictPaths() Option {
	return func(c *config) {
		c.strict = true
	}
}

// WithCompression skips detection and reads the bundle as compression.
// Brotli bundles need it.
func WithCompression(compression format.CompressionType) Option {
	return func(c *config) {
		c.compression = compression
		c.forced = true
	}
}

func WithZstdDictionary(dict []byte) Option {
	return func(c *config) {
		c.zstdDict = dict
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Decode turns bundle text into the tar stream it carries. Whitespace,
// including line breaks, is ignored. The compression is detected from the
// decoded bytes unless WithCompression is given; use DecodeAs for brotli.
func Decode(text string, opts ...Option) (io.ReadCloser, error) {
	cfg := newConfig(opts)
	data, err := decodeText(text)
	if err != nil {
		return nil, err
	}

	compression := cfg.compression
	if !cfg.forced {
		var ok bool
		if compression, ok = Sniff(data); !ok {
			return nil, errors.Wrap(ErrUnknownCompression, "bundle content not recognized")
		}
	}
	cfg.logger.Debug("decoded bundle", "bytes", len(data), "compression", compression.String())
	return cfg.decompressor(bytes.NewReader(data), compression)
}

// DecodeAs is Decode with the compression given rather than detected.
func DecodeAs(text string, compression format.CompressionType, opts ...Option) (io.ReadCloser, error) {
	return Decode(text, append(opts, WithCompression(compression))...)
}

func decodeText(text string) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	data, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, errors.Wrapf(ErrBadEncoding, "%v", err)
	}
	return data, nil
}

// Result is what Install did.
type Result struct {
	// Skipped is set when the WithSkipIfExists marker was already there
	Skipped  bool
	Entries  []reader.Extracted
	Manifest *manifest.Manifest
}

// Install decodes a bundle and extracts it below root on fs.
func Install(fs afero.Fs, text string, root string, opts ...Option) (*Result, error) {
	cfg := newConfig(opts)

	if cfg.skipIfExists != "" {
		marker := filepath.Join(root, cfg.skipIfExists)
		exists, err := afero.Exists(fs, marker)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to check for %s", marker)
		}
		if exists {
			cfg.logger.Info("bundle already installed", "marker", marker)
			return &Result{Skipped: true}, nil
		}
	}

	if err := fs.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", root)
	}

	stream, err := Decode(text, opts...)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	extractOpts := []reader.ExtractOption{reader.WithExtractLogger(cfg.logger)}
	if cfg.strict {
		extractOpts = append(extractOpts, reader.WithStrictPaths())
	}

	archive := reader.NewReader(stream, reader.WithLogger(cfg.logger))
	extracted, err := archive.ExtractAll(fs, root, extractOpts...)
	result := &Result{Entries: extracted, Manifest: manifest.New(root)}
	for _, entry := range extracted {
		result.Manifest.Add(*entry.Header, entry.Digest)
	}
	if err != nil {
		return result, errors.Wrap(err, "failed to install bundle")
	}

	// Read past the end marker so the decompressor checks its trailer
	trailing, err := io.Copy(io.Discard, stream)
	if err != nil {
		return result, errors.Wrap(err, "bundle is damaged after the archive")
	}
	cfg.logger.Debug("bundle drained", "trailing_bytes", trailing)

	if cfg.manifestName != "" {
		if err := writeManifest(fs, filepath.Join(root, cfg.manifestName), result.Manifest); err != nil {
			return result, err
		}
	}

	cfg.logger.Info("installed bundle",
		"root", root,
		"entries", len(extracted),
		"bytes", result.Manifest.TotalSize(),
	)
	return result, nil
}

func writeManifest(fs afero.Fs, path string, m *manifest.Manifest) error {
	file, err := fs.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create manifest %s", path)
	}
	defer file.Close()
	if err := m.Encode(file); err != nil {
		return err
	}
	return file.Close()
}

// Encode compresses a tar stream and writes it to w as base64 text.
// It returns the number of tar bytes consumed.
func Encode(w io.Writer, tarStream io.Reader, compression format.CompressionType) (int64, error) {
	compressor, err := ioutil.NewCompressWriter(compression)
	if err != nil {
		return 0, err
	}
	encoder := base64.NewEncoder(base64.StdEncoding, w)
	read, err := compressor.Copy(encoder, tarStream)
	if err != nil {
		return read, err
	}
	if err := encoder.Close(); err != nil {
		return read, errors.Wrap(err, "failed to finish base64 stream")
	}
	return read, nil
}
