package decode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTopic means the topic matched no configured route. Counted and
// dropped by the caller, never fatal.
var ErrUnknownTopic = errors.New("decode: unknown topic")

// ErrInvalidEncoding means the payload bytes are not valid text or
// structured data for the route's mode.
var ErrInvalidEncoding = errors.New("decode: invalid payload encoding")

// ErrInvalidNumber means a numeric field failed to parse.
var ErrInvalidNumber = errors.New("decode: invalid number")

// MissingFieldsError reports the required fields absent from a
// structured-mode payload. The message is dropped whole; no partial write
// occurs.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("decode: missing required fields: %s", strings.Join(e.Fields, ", "))
}

// IsMissingFields reports whether err is a MissingFieldsError.
func IsMissingFields(err error) bool {
	var mf *MissingFieldsError
	return errors.As(err, &mf)
}
