package client

import "github.com/psql-wire/client/message"

// Parameter is one bound value of an extended query. It is always sent to
// the backend in binary format.
type Parameter = message.Parameter

// NewParameter constructs a binary-format Parameter. Pass a nil value to
// bind a SQL NULL.
func NewParameter(value []byte) Parameter {
	return Parameter{Format: message.BinaryFormat, Value: value}
}
