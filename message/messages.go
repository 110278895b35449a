// Package message decodes backend messages and encodes frontend messages of
// the PostgreSQL v3 wire protocol. It is a mechanical translation of the
// documented wire format and carries no state-machine logic of its own; the
// connection and query state machines consume it as a narrow contract.
package message

import "github.com/psql-wire/client/codes"

// FormatCode is the wire format of a parameter or result column.
type FormatCode int16

const (
	// TextFormat represents a textual (human readable) column/parameter format.
	TextFormat FormatCode = 0
	// BinaryFormat represents a binary column/parameter format.
	BinaryFormat FormatCode = 1
)

// Message is implemented by every decoded backend message.
type Message interface {
	isMessage()
}

// AuthenticationOK is sent once the backend accepts the client's credentials.
type AuthenticationOK struct{}

// AuthenticationCleartextPassword requests a cleartext PasswordMessage.
type AuthenticationCleartextPassword struct{}

// AuthenticationMD5Password requests an md5-hashed PasswordMessage, salted
// with Salt.
type AuthenticationMD5Password struct {
	Salt [4]byte
}

// AuthenticationSASL announces the SASL mechanisms the backend supports.
type AuthenticationSASL struct {
	Mechanisms []string
}

// AuthenticationSASLContinue carries one round of a SASL exchange.
type AuthenticationSASLContinue struct {
	Data []byte
}

// AuthenticationSASLFinal carries the final round of a SASL exchange.
type AuthenticationSASLFinal struct {
	Data []byte
}

// BackendKeyData carries the process ID and secret key used to build a
// CancelRequest.
type BackendKeyData struct {
	ProcessID int32
	SecretKey int32
}

// BindComplete confirms a Bind request.
type BindComplete struct{}

// CloseComplete confirms a Close request.
type CloseComplete struct{}

// CommandComplete reports the tag of a completed command, e.g. "SELECT 3".
type CommandComplete struct {
	Tag string
}

// DataRow carries one row of query results. A nil entry is a SQL NULL; a
// non-nil empty slice is a zero-length value, distinct from NULL.
type DataRow struct {
	Values [][]byte
}

// EmptyQueryResponse is sent in response to an empty query string.
type EmptyQueryResponse struct{}

// Field is one Type/Value pair of an ErrorResponse or NoticeResponse.
type Field struct {
	Type  byte
	Value string
}

// ErrorResponse reports that the previous request failed.
type ErrorResponse struct {
	Fields []Field
}

// NoData confirms a Describe of a statement that returns no rows.
type NoData struct{}

// NoticeResponse is an out-of-band informational message.
type NoticeResponse struct {
	Fields []Field
}

// NotificationResponse carries a LISTEN/NOTIFY payload.
type NotificationResponse struct {
	ProcessID int32
	Channel   string
	Payload   string
}

// ParameterDescription reports the inferred type OIDs of a prepared
// statement's placeholders.
type ParameterDescription struct {
	OIDs []uint32
}

// ParameterStatus reports a runtime server parameter (and later changes to it).
type ParameterStatus struct {
	Name  string
	Value string
}

// ParseComplete confirms a Parse request.
type ParseComplete struct{}

// PortalSuspended is sent when an Execute's row limit was reached before the
// portal completed.
type PortalSuspended struct{}

// ReadyForQuery reports the transaction status and signals the connection
// will accept a new command.
type ReadyForQuery struct {
	TxStatus byte
}

// Transaction status bytes carried by ReadyForQuery.
const (
	TxIdle     byte = 'I'
	TxInBlock  byte = 'T'
	TxFailed   byte = 'E'
)

// FieldDescription describes one column of a RowDescription.
type FieldDescription struct {
	Name         string
	TableOID     uint32
	AttrNo       int16
	DataTypeOID  uint32
	DataTypeSize int16
	TypeModifier int32
	Format       FormatCode
}

// RowDescription describes the columns of the rows that will follow.
type RowDescription struct {
	Fields []FieldDescription
}

func (AuthenticationOK) isMessage()                {}
func (AuthenticationCleartextPassword) isMessage()  {}
func (AuthenticationMD5Password) isMessage()        {}
func (AuthenticationSASL) isMessage()               {}
func (AuthenticationSASLContinue) isMessage()       {}
func (AuthenticationSASLFinal) isMessage()          {}
func (BackendKeyData) isMessage()                   {}
func (BindComplete) isMessage()                     {}
func (CloseComplete) isMessage()                    {}
func (CommandComplete) isMessage()                  {}
func (DataRow) isMessage()                          {}
func (EmptyQueryResponse) isMessage()                {}
func (ErrorResponse) isMessage()                     {}
func (NoData) isMessage()                            {}
func (NoticeResponse) isMessage()                    {}
func (NotificationResponse) isMessage()              {}
func (ParameterDescription) isMessage()              {}
func (ParameterStatus) isMessage()                   {}
func (ParseComplete) isMessage()                     {}
func (PortalSuspended) isMessage()                   {}
func (ReadyForQuery) isMessage()                     {}
func (RowDescription) isMessage()                    {}

// fieldCode returns the SQLSTATE carried by an ErrorResponse/NoticeResponse,
// or codes.Uncategorized if no 'C' field was present.
func fieldCode(fields []Field) codes.Code {
	for _, f := range fields {
		if f.Type == 'C' {
			return codes.Code(f.Value)
		}
	}

	return codes.Uncategorized
}

// Code returns the SQLSTATE carried by this ErrorResponse.
func (e ErrorResponse) Code() codes.Code { return fieldCode(e.Fields) }

// Code returns the SQLSTATE carried by this NoticeResponse.
func (n NoticeResponse) Code() codes.Code { return fieldCode(n.Fields) }
