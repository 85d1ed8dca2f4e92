package format

import "github.com/pkg/errors"

var (
	ErrMalformedHeader = errors.New("malformed header")
	ErrHeaderChecksum  = errors.New("header checksum mismatch")
	ErrNameTooLong     = errors.New("name too long")
	ErrEmptyName       = errors.New("name can not be empty")
	ErrFieldTooLong    = errors.New("field too long")
)
