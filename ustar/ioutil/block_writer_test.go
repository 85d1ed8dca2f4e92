package ioutil

import (
	"bytes"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestBlockWriterSimple(t *testing.T) {

	buffer := new(bytes.Buffer)

	writer := NewBlockWriter(buffer, 100)
	if _, err := writer.Write([]byte{1, 2, 3, 4}); err != nil {
		t.Fail()
	}

	if len(buffer.Bytes()) > 4 {
		t.Error("Too many bytes written before align")
	}

	if writer.Align() != nil {
		t.Error("Failed to align to end of buffer")
	}

	buflen := len(buffer.Bytes())
	if len(buffer.Bytes()) != 100 {
		t.Errorf("Expected 100 bytes written, got %d", buflen)
	}

	if writer.Align() != nil {
		t.Errorf("should be able to align twice.")
	}
	if len(buffer.Bytes()) != buflen {
		t.Errorf("Repeated aligns should not have any effect.")
	}

	for i, b := range buffer.Bytes()[4:] {
		if b != 0 {
			t.Errorf("padding byte %d is %d", i+4, b)
			t.Log(spew.Sdump(buffer.Bytes()))
			break
		}
	}
}

type closeRecorder struct {
	bytes.Buffer
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestBlockWriterExactBlocks(t *testing.T) {
	buffer := new(closeRecorder)
	writer := NewBlockWriter(buffer, 512)

	if _, err := writer.Write(make([]byte, 1024)); err != nil {
		t.Fatal(err)
	}
	if err := writer.Align(); err != nil {
		t.Fatal(err)
	}
	if buffer.Len() != 1024 {
		t.Errorf("exact multiple was padded to %d bytes", buffer.Len())
	}

	if _, err := writer.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	if buffer.Len() != 1536 {
		t.Errorf("got %d bytes, want 1536", buffer.Len())
	}
	if !buffer.closed {
		t.Error("destination was not closed")
	}
}
