package writer

import (
	"bytes"
	"math/rand"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/indrora/ustar/ustar/format"
	"github.com/pkg/errors"
)

func TestWriter(t *testing.T) {

	buffer := new(bytes.Buffer)

	writer := NewWriter(buffer)

	if writer.AppendBytes(format.Header{Name: "pki/", Mode: 0755, Typeflag: format.ENTRY_DIRECTORY}, nil) != nil {
		t.Error("Failed to append a directory!")
	}

	if writer.AppendBytes(format.Header{Name: "pki/agent.crt", Mode: 0644, Typeflag: format.ENTRY_REGULAR}, []byte{1, 2, 3, 4}) != nil {
		t.Error("Failed to append some bytes....")
	}

	if writer.Close() != nil {
		t.Error("Failed to close the archive...")
	}

	// two headers, one data block, two end blocks
	if int64(buffer.Len()) != 5*format.BLOCK_SIZE {
		t.Errorf("Expected more bytes. Got %d, expected %d", buffer.Len(), 5*format.BLOCK_SIZE)
		t.Log(spew.Sdump(buffer.Bytes()))
	}

	if !bytes.Equal(buffer.Bytes()[3*format.BLOCK_SIZE:], bytes.Repeat(format.ZERO_BLOCK, 2)) {
		t.Error("Archive does not end in two zero blocks")
	}
}

// The payload follows its header and is padded with zeroes.
func TestWriterEncode(t *testing.T) {

	buff := new(bytes.Buffer)

	writer := NewWriter(buff)

	randData := make([]byte, int(1.50*float32(format.BLOCK_SIZE)))
	rand.Read(randData)
	fileinfo := format.Header{
		Name:     "foo",
		Mode:     0666,
		Uname:    "billy",
		Gname:    "billy",
		ModTime:  time.Now(),
		Typeflag: format.ENTRY_REGULAR,
	}
	if err := writer.AppendBytes(fileinfo, randData); err != nil {
		t.Fatal(err)
	}
	writer.Close()

	newbytes := buff.Bytes()
	if int64(len(newbytes)) != 5*format.BLOCK_SIZE {
		t.Errorf("Expected %d bytes, got %d", 5*format.BLOCK_SIZE, len(newbytes))
	}

	header, err := format.Decode(newbytes[:format.BLOCK_SIZE])
	if err != nil {
		t.Fatal(err)
	}
	if header.Size != int64(len(randData)) {
		t.Errorf("Expected size %d, got %d", len(randData), header.Size)
	}
	if header.Uname != "billy" {
		t.Errorf("Expected billy, got %q", header.Uname)
	}

	for i, v := range newbytes[format.BLOCK_SIZE : 3*format.BLOCK_SIZE] {
		if i >= len(randData) {
			if v != 0 {
				t.Errorf("Wrong data in padding, expecting 0, got %d", v)
			}
		} else if randData[i] != v {
			t.Errorf("Bad data at %v; expected %v, got %v", i, randData[i], v)
		}
	}
}

func TestWriteTooLong(t *testing.T) {
	writer := NewWriter(new(bytes.Buffer))

	if err := writer.WriteHeader(&format.Header{Name: "a", Size: 3, Typeflag: format.ENTRY_REGULAR}); err != nil {
		t.Fatal(err)
	}
	n, err := writer.Write([]byte("hello"))
	if !errors.Is(err, ErrWriteTooLong) {
		t.Errorf("got %v, want %v", err, ErrWriteTooLong)
	}
	if n != 3 {
		t.Errorf("wrote %d bytes, want 3", n)
	}
}

func TestMissingData(t *testing.T) {
	writer := NewWriter(new(bytes.Buffer))

	if err := writer.WriteHeader(&format.Header{Name: "a", Size: 10, Typeflag: format.ENTRY_REGULAR}); err != nil {
		t.Fatal(err)
	}
	writer.Write([]byte("short"))

	if err := writer.WriteHeader(&format.Header{Name: "b", Typeflag: format.ENTRY_REGULAR}); !errors.Is(err, ErrMissingData) {
		t.Errorf("next header: got %v, want %v", err, ErrMissingData)
	}
	if err := writer.Close(); !errors.Is(err, ErrMissingData) {
		t.Errorf("close: got %v, want %v", err, ErrMissingData)
	}

	stream := NewWriter(new(bytes.Buffer))
	err := stream.AppendStream(format.Header{Name: "c", Size: 100, Typeflag: format.ENTRY_REGULAR}, bytes.NewReader([]byte("tiny")))
	if !errors.Is(err, ErrMissingData) {
		t.Errorf("stream: got %v, want %v", err, ErrMissingData)
	}
}

func TestWriteAfterClose(t *testing.T) {
	writer := NewWriter(new(bytes.Buffer))
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	if err := writer.WriteHeader(&format.Header{Name: "late"}); !errors.Is(err, ErrClosed) {
		t.Errorf("got %v, want %v", err, ErrClosed)
	}
}
