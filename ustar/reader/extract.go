package reader

import (
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/indrora/ustar/ustar/format"
	"github.com/indrora/ustar/ustar/ioutil"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var (
	ErrPathEscape = errors.New("entry path escapes the destination")
)

// Extracted describes one entry written out by ExtractAll.
type Extracted struct {
	Path   string
	Header *format.Header
	// Bytes written; zero for directories
	Size int64
	// BLAKE2b-256 of the written data, nil for directories
	Digest []byte
}

func (e Extracted) DigestString() string {
	return hex.EncodeToString(e.Digest)
}

type extractConfig struct {
	strict bool
	logger *slog.Logger
}

type ExtractOption func(*extractConfig)

// WithStrictPaths refuses entries whose name would land outside the
// destination, with ErrPathEscape.
func WithStrictPaths() ExtractOption {
	return func(c *extractConfig) {
		c.strict = true
	}
}

func WithExtractLogger(logger *slog.Logger) ExtractOption {
	return func(c *extractConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// ExtractAll writes every remaining entry below root on fs. Directory
// entries, by type or by a trailing separator, become directories; every
// other entry becomes a file holding its payload.
//
// CAUTION: entry names are used as they are unless WithStrictPaths is
// given. An archive from an untrusted source can write anywhere the
// process can.
//
// The first error stops the extraction. Files already written stay.
func (reader *Reader) ExtractAll(fs afero.Fs, root string, opts ...ExtractOption) ([]Extracted, error) {
	cfg := &extractConfig{logger: reader.logger}
	for _, opt := range opts {
		opt(cfg)
	}

	extracted := make([]Extracted, 0)

	for {
		header, err := reader.Next(false)
		if err == io.EOF {
			return extracted, nil
		} else if err != nil {
			return extracted, err
		}

		target, err := entryPath(root, header.Name, cfg.strict)
		if err != nil {
			return extracted, err
		}

		if header.IsDir() {
			if err := fs.MkdirAll(target, 0755); err != nil {
				return extracted, errors.Wrapf(err, "failed to create directory %s", target)
			}
			cfg.logger.Debug("created directory", "path", target)
			extracted = append(extracted, Extracted{Path: target, Header: header})
			continue
		}

		if header.Typeflag.IsHeaderOnly() {
			cfg.logger.Debug("writing placeholder for entry", "name", header.Name, "type", header.Typeflag.String(), "linkname", header.Linkname)
		}
		entry, err := reader.extractFile(fs, target, header)
		if err != nil {
			return extracted, err
		}
		cfg.logger.Debug("extracted file", "path", target, "size", entry.Size, "blake2b", entry.DigestString())
		extracted = append(extracted, entry)
	}
}

func (reader *Reader) extractFile(fs afero.Fs, target string, header *format.Header) (Extracted, error) {
	if err := fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return Extracted{}, errors.Wrapf(err, "failed to create directory for %s", target)
	}

	perm := header.FileMode().Perm()
	if perm == 0 {
		perm = 0644
	}
	file, err := fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return Extracted{}, errors.Wrapf(err, "failed to create %s", target)
	}
	defer file.Close()

	hashed, err := ioutil.NewBlake2bWriter(file)
	if err != nil {
		return Extracted{}, err
	}
	if _, err = reader.CopyTo(hashed); err != nil {
		return Extracted{}, errors.Wrapf(err, "failed to extract %s", header.Name)
	}
	if err = file.Close(); err != nil {
		return Extracted{}, errors.Wrapf(err, "failed to close %s", target)
	}

	return Extracted{
		Path:   target,
		Header: header,
		Size:   hashed.Written(),
		Digest: hashed.Sum(),
	}, nil
}

// entryPath maps an entry name below root. Backslashes are separators
// too, whatever the host.
func entryPath(root string, name string, strict bool) (string, error) {
	rel := filepath.FromSlash(strings.ReplaceAll(name, "\\", "/"))
	if strict && !filepath.IsLocal(rel) {
		return "", errors.Wrapf(ErrPathEscape, "%q", name)
	}
	return filepath.Join(root, rel), nil
}
