package buffer

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrMissingNulTerminator is returned by GetString when the underlying buffer
// does not contain a null terminator for the string being read.
var ErrMissingNulTerminator = errors.New("message is missing null terminator for string")

// NewMissingNulTerminator returns a new ErrMissingNulTerminator error.
func NewMissingNulTerminator() error {
	return ErrMissingNulTerminator
}

// ErrInsufficientData is returned by the Get* methods when the underlying
// buffer does not carry enough bytes to satisfy the requested read.
var ErrInsufficientData = errors.New("insufficient data remaining in buffer")

// NewInsufficientData returns a new ErrInsufficientData error, the given
// length is the number of bytes that were actually available.
func NewInsufficientData(length int) error {
	return fmt.Errorf("%w: only %d bytes remaining", ErrInsufficientData, length)
}

// ErrMessageSizeExceeded is the sentinel matched by errors.Is against a
// MessageSizeExceeded value returned from ReadUntypedMsg.
var ErrMessageSizeExceeded = errors.New("message size exceeds the configured maximum")

// MessageSizeExceeded is returned whenever a message read from the backend
// declares a size larger than the reader's configured maximum, or a negative
// size (indicating frame corruption).
type MessageSizeExceeded struct {
	Message string
	Size    int
	Max     int
}

// NewMessageSizeExceeded constructs a MessageSizeExceeded error for the given
// configured maximum and observed message size.
func NewMessageSizeExceeded(max, size int) error {
	return MessageSizeExceeded{
		Message: fmt.Sprintf("message of size %d exceeds the configured maximum of %d bytes", size, max),
		Size:    size,
		Max:     max,
	}
}

func (e MessageSizeExceeded) Error() string {
	return e.Message
}

// Is reports whether target is ErrMessageSizeExceeded, or another
// MessageSizeExceeded value, so callers can use errors.Is without caring
// about the specific Size/Max carried.
func (e MessageSizeExceeded) Is(target error) bool {
	if target == ErrMessageSizeExceeded {
		return true
	}

	return reflect.TypeOf(target) == reflect.TypeOf(e)
}

// UnwrapMessageSizeExceeded attempts to extract a MessageSizeExceeded value
// from err, following the error chain with errors.As.
func UnwrapMessageSizeExceeded(err error) (MessageSizeExceeded, bool) {
	var exceeded MessageSizeExceeded
	ok := errors.As(err, &exceeded)
	return exceeded, ok
}
