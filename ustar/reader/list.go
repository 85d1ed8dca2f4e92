package reader

import (
	"io"

	"github.com/indrora/ustar/ustar/format"
)

// List reads every header in the archive, skipping the payloads.
func List(stream io.Reader, opts ...Option) ([]format.Header, error) {
	reader := NewReader(stream, opts...)

	headers := make([]format.Header, 0)
	for {
		header, err := reader.Next(true)
		if err == io.EOF {
			return headers, nil
		} else if err != nil {
			return headers, err
		}
		headers = append(headers, *header)
	}
}
