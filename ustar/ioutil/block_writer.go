package ioutil

import (
	"io"

	"github.com/pkg/errors"
)

// BlockWriter is the writing side of BlockReader. It counts how far into
// the current block the stream is so that Align can pad with zeroes up to
// the next boundary.
type BlockWriter struct {
	writer    io.Writer
	BlockSize int64
	// bytes written into the current block
	pending int64
}

func NewBlockWriter(destination io.Writer, blockSize int64) *BlockWriter {
	return &BlockWriter{
		writer:    destination,
		BlockSize: blockSize,
	}
}

// Write passes straight through to the destination.
func (bw *BlockWriter) Write(p []byte) (int, error) {
	written, err := bw.writer.Write(p)
	bw.pending = (bw.pending + int64(written)) % bw.BlockSize
	return written, err
}

// Align pads the current block out with zeroes. An aligned writer is left
// alone.
func (bw *BlockWriter) Align() error {
	if bw.pending == 0 {
		return nil
	}
	padding := make([]byte, bw.BlockSize-bw.pending)
	if _, err := bw.writer.Write(padding); err != nil {
		return errors.Wrap(err, "failed to pad block")
	}
	bw.pending = 0
	return nil
}

// Close aligns and closes the destination if it is an io.Closer.
func (bw *BlockWriter) Close() error {
	if err := bw.Align(); err != nil {
		return err
	}
	if closer, ok := bw.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
