package client

import (
	"fmt"

	"github.com/psql-wire/client/errors"
	"github.com/psql-wire/client/message"
	"github.com/psql-wire/client/pkg/buffer"
)

func fieldTypeOf(b byte) buffer.ServerErrFieldType {
	return buffer.ServerErrFieldType(b)
}

// newTooManyParametersError builds the error returned synchronously when a
// caller attempts to bind more than buffer.MaxPreparedStatementArgs values.
func newTooManyParametersError() error {
	return errors.Newf(errors.KindTooManyParameters, "cannot bind more than %d parameters", buffer.MaxPreparedStatementArgs)
}

// messageTypeName renders a decoded backend message's Go type name for use
// in protocol-violation error messages.
func messageTypeName(msg message.Message) string {
	return fmt.Sprintf("%T", msg)
}

// parseServerError converts the fields of a decoded ErrorResponse into the
// client's error representation.
func parseServerError(fields []message.Field) error {
	converted := make([]errors.Field, len(fields))
	for i, f := range fields {
		converted[i] = errors.Field{Type: fieldTypeOf(f.Type), Value: f.Value}
	}

	parsed := errors.Parse(converted)
	return errors.New(errors.KindServer, parsed)
}
