package manifest

import (
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/indrora/ustar/ustar/format"
	"github.com/pkg/errors"
)

const MANIFEST_VERSION = 1

// A Manifest records what an archive held, or what was extracted from it.
// It is stored as CBOR.
type Manifest struct {
	Version uint8     `cbor:"0,keyasint"`
	Root    string    `cbor:"1,keyasint,omitempty"`
	Created time.Time `cbor:"2,keyasint"`
	Entries []Entry   `cbor:"3,keyasint"`
}

type Entry struct {
	Header format.Header `cbor:"0,keyasint"`
	// BLAKE2b-256 of the payload, when it was extracted
	Digest []byte `cbor:"1,keyasint,omitempty"`
}

func New(root string) *Manifest {
	return &Manifest{
		Version: MANIFEST_VERSION,
		Root:    root,
		Created: time.Now().UTC(),
		Entries: make([]Entry, 0),
	}
}

func (m *Manifest) Add(header format.Header, digest []byte) {
	m.Entries = append(m.Entries, Entry{Header: header, Digest: digest})
}

// TotalSize sums the declared sizes of every entry with a payload.
func (m *Manifest) TotalSize() int64 {
	total := int64(0)
	for _, entry := range m.Entries {
		total += entry.Header.PayloadSize()
	}
	return total
}

func (m *Manifest) Encode(w io.Writer) error {
	if err := cbor.NewEncoder(w).Encode(m); err != nil {
		return errors.Wrap(err, "failed to encode manifest")
	}
	return nil
}

func Decode(r io.Reader) (*Manifest, error) {
	m := new(Manifest)
	if err := cbor.NewDecoder(r).Decode(m); err != nil {
		return nil, errors.Wrap(err, "failed to decode manifest")
	}
	if m.Version != MANIFEST_VERSION {
		return nil, errors.Errorf("unsupported manifest version %d", m.Version)
	}
	return m, nil
}
