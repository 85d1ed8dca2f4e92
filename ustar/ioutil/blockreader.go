package ioutil

import (
	"io"
)

// BlockReader reads a stream that is laid out in fixed size blocks. It
// keeps count of how far into the current block it is so that Realign
// can drop the padding up to the next boundary.
//
// Skipping uses Seek when the source supports it and falls back to reading
// and discarding otherwise.
type BlockReader struct {
	reader       io.Reader
	seeker       io.Seeker
	BlockSize    int64
	realignBytes int64
	offset       int64
}

func NewBlockReader(reader io.Reader, blockSize int64) *BlockReader {
	br := &BlockReader{
		reader:    reader,
		BlockSize: blockSize,
	}
	// Pipes are *os.File too; only trust Seek if it works right now
	if seeker, ok := reader.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekCurrent); err == nil {
			br.seeker = seeker
		}
	}
	return br
}

// Read passes straight through to the source.
func (br *BlockReader) Read(b []byte) (int, error) {
	read, err := br.reader.Read(b)
	br.advance(int64(read))
	return read, err
}

// ReadBlock reads exactly one block. A stream that ends on a block
// boundary gives io.EOF; one that ends inside a block gives the partial
// block and io.ErrUnexpectedEOF.
func (br *BlockReader) ReadBlock() ([]byte, error) {
	block := make([]byte, br.BlockSize)
	n, err := io.ReadFull(br.reader, block)
	br.advance(int64(n))
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return block[:n], err
	}
	return block, nil
}

// Discard skips n bytes. Running out of stream before n bytes is
// io.ErrUnexpectedEOF whichever way the bytes were skipped.
func (br *BlockReader) Discard(n int64) error {
	if n <= 0 {
		return nil
	}

	if br.seeker != nil {
		// Seek past all but the last byte and read that one, so a short
		// stream still shows up as an error.
		if _, err := br.seeker.Seek(n-1, io.SeekCurrent); err == nil {
			br.advance(n - 1)
			var last [1]byte
			got, err := io.ReadFull(br.reader, last[:])
			br.advance(int64(got))
			if err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		br.seeker = nil
	}

	skipped, err := io.CopyN(io.Discard, br.reader, n)
	br.advance(skipped)
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Realign drops whatever is left of the current block.
func (br *BlockReader) Realign() error {
	pad := (br.BlockSize - br.realignBytes%br.BlockSize) % br.BlockSize
	if err := br.Discard(pad); err != nil {
		return err
	}
	br.realignBytes = 0
	return nil
}

// Offset is the number of bytes consumed from the source so far.
func (br *BlockReader) Offset() int64 {
	return br.offset
}

// CanSeek reports whether skips go through Seek.
func (br *BlockReader) CanSeek() bool {
	return br.seeker != nil
}

func (br *BlockReader) advance(n int64) {
	br.realignBytes = (br.realignBytes + n) % br.BlockSize
	br.offset += n
}
