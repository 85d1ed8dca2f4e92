package ioutil

import (
	"hash"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// HashWriter hashes everything that passes through it on the way to dest.
type HashWriter struct {
	writer  io.Writer
	hasher  hash.Hash
	written int64
}

func NewHashWriter(dest io.Writer, hasher hash.Hash) *HashWriter {
	return &HashWriter{
		writer: dest,
		hasher: hasher,
	}
}

// NewBlake2bWriter is a HashWriter with an unkeyed BLAKE2b-256.
func NewBlake2bWriter(dest io.Writer) (*HashWriter, error) {
	hasher, err := blake2b.New256(nil)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to initialize BLAKE2b hash")
	}
	return NewHashWriter(dest, hasher), nil
}

func (w *HashWriter) Write(b []byte) (int, error) {
	k, err := w.writer.Write(b)
	w.hasher.Write(b[:k])
	w.written += int64(k)
	return k, err
}

func (w *HashWriter) Sum() []byte {
	return w.hasher.Sum(nil)
}

func (w *HashWriter) Written() int64 {
	return w.written
}
