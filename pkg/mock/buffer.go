// Package mock provides helpers for constructing raw PostgreSQL wire protocol
// messages in tests, without needing a real backend to talk to.
package mock

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/psql-wire/client/pkg/buffer"
	"github.com/psql-wire/client/pkg/types"
)

// Writer wraps buffer.Writer to build backend (server) messages. buffer.Writer
// natively builds frontend messages, so Start here re-targets it at the
// server message type byte; the wire encoding of the type byte and length
// prefix is otherwise identical in both directions.
type Writer struct {
	*buffer.Writer
}

// NewWriter constructs a new PostgreSQL wire protocol writer for backend messages.
func NewWriter(t *testing.T, writer io.Writer) *Writer {
	return &Writer{buffer.NewWriter(slogt.New(t), writer)}
}

// Start resets the buffer writer and starts a new backend message with the
// given message type.
func (w *Writer) Start(t types.ServerMessage) {
	w.Writer.Start(types.ClientMessage(t))
}

// NewReader constructs a new PostgreSQL wire protocol reader using the default
// buffer size.
func NewReader(t *testing.T, reader io.Reader) *buffer.Reader {
	return buffer.NewReader(slogt.New(t), reader, buffer.DefaultBufferSize)
}

// Frame appends one complete backend message, built by fn, onto buf.
func Frame(t *testing.T, buf *bytes.Buffer, fn func(w *Writer)) {
	t.Helper()

	w := NewWriter(t, buf)
	fn(w)
	if err := w.End(); err != nil {
		t.Fatalf("failed to write mock message: %v", err)
	}
}

// Stream builds a buffer.Reader over a sequence of backend messages, in
// order, ready to be consumed one ReadTypedMsg at a time. This is the
// primary helper for driving state-machine tests across a scripted backend
// conversation.
func Stream(t *testing.T, logger *slog.Logger, fns ...func(w *Writer)) *buffer.Reader {
	t.Helper()

	buf := &bytes.Buffer{}
	for _, fn := range fns {
		Frame(t, buf, fn)
	}

	return buffer.NewReader(logger, buf, buffer.DefaultBufferSize)
}

// AuthenticationOK builds an AuthenticationOK message.
func AuthenticationOK(w *Writer) {
	w.Start(types.ServerAuth)
	w.AddInt32(int32(types.AuthOK))
}

// AuthenticationCleartextPassword builds a request for a cleartext password.
func AuthenticationCleartextPassword(w *Writer) {
	w.Start(types.ServerAuth)
	w.AddInt32(int32(types.AuthCleartextPassword))
}

// AuthenticationMD5Password builds a request for an MD5-hashed password,
// carrying the given 4-byte salt.
func AuthenticationMD5Password(salt [4]byte) func(w *Writer) {
	return func(w *Writer) {
		w.Start(types.ServerAuth)
		w.AddInt32(int32(types.AuthMD5Password))
		w.AddBytes(salt[:])
	}
}

// AuthenticationSASL builds the list of SASL mechanisms the backend supports.
func AuthenticationSASL(mechanisms ...string) func(w *Writer) {
	return func(w *Writer) {
		w.Start(types.ServerAuth)
		w.AddInt32(int32(types.AuthSASL))
		for _, mechanism := range mechanisms {
			w.AddString(mechanism)
			w.AddNullTerminate()
		}
		w.AddNullTerminate()
	}
}

// AuthenticationSASLContinue builds one round of a SASL exchange.
func AuthenticationSASLContinue(data []byte) func(w *Writer) {
	return func(w *Writer) {
		w.Start(types.ServerAuth)
		w.AddInt32(int32(types.AuthSASLContinue))
		w.AddBytes(data)
	}
}

// AuthenticationSASLFinal builds the final round of a SASL exchange.
func AuthenticationSASLFinal(data []byte) func(w *Writer) {
	return func(w *Writer) {
		w.Start(types.ServerAuth)
		w.AddInt32(int32(types.AuthSASLFinal))
		w.AddBytes(data)
	}
}

// ParameterStatus builds a ParameterStatus message for the given name/value pair.
func ParameterStatus(name, value string) func(w *Writer) {
	return func(w *Writer) {
		w.Start(types.ServerParameterStatus)
		w.AddString(name)
		w.AddNullTerminate()
		w.AddString(value)
		w.AddNullTerminate()
	}
}

// BackendKeyData builds a BackendKeyData message.
func BackendKeyData(processID, secretKey int32) func(w *Writer) {
	return func(w *Writer) {
		w.Start(types.ServerBackendKeyData)
		w.AddInt32(processID)
		w.AddInt32(secretKey)
	}
}

// ReadyForQuery builds a ReadyForQuery message for the given transaction status byte.
func ReadyForQuery(status byte) func(w *Writer) {
	return func(w *Writer) {
		w.Start(types.ServerReady)
		w.AddByte(status)
	}
}

// ParseComplete builds a ParseComplete message.
func ParseComplete(w *Writer) {
	w.Start(types.ServerParseComplete)
}

// BindComplete builds a BindComplete message.
func BindComplete(w *Writer) {
	w.Start(types.ServerBindComplete)
}

// CloseComplete builds a CloseComplete message.
func CloseComplete(w *Writer) {
	w.Start(types.ServerCloseComplete)
}

// NoData builds a NoData message.
func NoData(w *Writer) {
	w.Start(types.ServerNoData)
}

// PortalSuspended builds a PortalSuspended message.
func PortalSuspended(w *Writer) {
	w.Start(types.ServerPortalSuspended)
}

// EmptyQueryResponse builds an EmptyQueryResponse message.
func EmptyQueryResponse(w *Writer) {
	w.Start(types.ServerEmptyQuery)
}

// FieldDescription describes one column for RowDescription.
type FieldDescription struct {
	Name         string
	TableOID     int32
	AttrNo       int16
	DataTypeOID  int32
	DataTypeSize int16
	TypeModifier int32
	Format       int16
}

// RowDescription builds a RowDescription message for the given fields.
func RowDescription(fields ...FieldDescription) func(w *Writer) {
	return func(w *Writer) {
		w.Start(types.ServerRowDescription)
		w.AddInt16(int16(len(fields)))
		for _, f := range fields {
			w.AddString(f.Name)
			w.AddNullTerminate()
			w.AddInt32(f.TableOID)
			w.AddInt16(f.AttrNo)
			w.AddInt32(f.DataTypeOID)
			w.AddInt16(f.DataTypeSize)
			w.AddInt32(f.TypeModifier)
			w.AddInt16(f.Format)
		}
	}
}

// ParameterDescription builds a ParameterDescription message for the given
// parameter type OIDs.
func ParameterDescription(oids ...int32) func(w *Writer) {
	return func(w *Writer) {
		w.Start(types.ServerParameterDescription)
		w.AddInt16(int16(len(oids)))
		for _, oid := range oids {
			w.AddInt32(oid)
		}
	}
}

// DataRow builds a DataRow message. A nil entry in values encodes a SQL NULL.
func DataRow(values ...[]byte) func(w *Writer) {
	return func(w *Writer) {
		w.Start(types.ServerDataRow)
		w.AddInt16(int16(len(values)))
		for _, v := range values {
			if v == nil {
				w.AddInt32(-1)
				continue
			}

			w.AddInt32(int32(len(v)))
			w.AddBytes(v)
		}
	}
}

// CommandComplete builds a CommandComplete message carrying the given command tag.
func CommandComplete(tag string) func(w *Writer) {
	return func(w *Writer) {
		w.Start(types.ServerCommandComplete)
		w.AddString(tag)
		w.AddNullTerminate()
	}
}

// ErrorField is one field of an ErrorResponse/NoticeResponse message.
type ErrorField struct {
	Type  buffer.ServerErrFieldType
	Value string
}

// ErrorResponse builds an ErrorResponse message from the given fields.
func ErrorResponse(fields ...ErrorField) func(w *Writer) {
	return func(w *Writer) {
		w.Start(types.ServerErrorResponse)
		for _, f := range fields {
			w.AddByte(byte(f.Type))
			w.AddString(f.Value)
			w.AddNullTerminate()
		}
		w.AddNullTerminate()
	}
}

// NoticeResponse builds a NoticeResponse message from the given fields.
func NoticeResponse(fields ...ErrorField) func(w *Writer) {
	return func(w *Writer) {
		w.Start(types.ServerNoticeResponse)
		for _, f := range fields {
			w.AddByte(byte(f.Type))
			w.AddString(f.Value)
			w.AddNullTerminate()
		}
		w.AddNullTerminate()
	}
}

// NotificationResponse builds a NotificationResponse message (from LISTEN/NOTIFY).
func NotificationResponse(processID int32, channel, payload string) func(w *Writer) {
	return func(w *Writer) {
		w.Start(types.ServerNotificationResponse)
		w.AddInt32(processID)
		w.AddString(channel)
		w.AddNullTerminate()
		w.AddString(payload)
		w.AddNullTerminate()
	}
}
