package errors

import (
	"strconv"

	"github.com/psql-wire/client/codes"
	"github.com/psql-wire/client/pkg/buffer"
)

// Field is one Type/Value pair as carried by an ErrorResponse or
// NoticeResponse message.
type Field struct {
	Type  buffer.ServerErrFieldType
	Value string
}

// Parse builds an Error from the fields of a decoded ErrorResponse or
// NoticeResponse message. Unknown field types are ignored; PostgreSQL only
// guarantees Severity, SQLState and MsgPrimary are always present.
func Parse(fields []Field) Error {
	result := Error{
		Code:     codes.Uncategorized,
		Severity: LevelError,
	}

	var source Source
	var haveSource bool

	for _, f := range fields {
		switch f.Type {
		case buffer.ServerErrFieldSeverity:
			result.Severity = Severity(f.Value)
		case buffer.ServerErrFieldSQLState:
			result.Code = codes.Code(f.Value)
		case buffer.ServerErrFieldMsgPrimary:
			result.Message = f.Value
		case buffer.ServerErrFieldDetail:
			result.Detail = f.Value
		case buffer.ServerErrFieldHint:
			result.Hint = f.Value
		case buffer.ServerErrFieldConstraintName:
			result.ConstraintName = f.Value
		case buffer.ServerErrFieldSrcFile:
			source.File = f.Value
			haveSource = true
		case buffer.ServerErrFieldSrcLine:
			if n, err := strconv.Atoi(f.Value); err == nil {
				source.Line = int32(n)
			}
			haveSource = true
		case buffer.ServerErrFieldSrcFunction:
			source.Function = f.Value
			haveSource = true
		}
	}

	if haveSource {
		result.Source = &source
	}

	return result
}

func (e Error) Error() string {
	return e.Message
}
