package message

import (
	"sort"

	"github.com/psql-wire/client/pkg/buffer"
	"github.com/psql-wire/client/pkg/types"
)

// Parameter is one bound value of a Bind message.
type Parameter struct {
	Format FormatCode
	Value  []byte // nil encodes SQL NULL
}

// EncodeStartup builds a StartupMessage for protocol version 3.0 with the
// given key/value connection parameters (user, database, ...). It has no
// leading message-type byte.
func EncodeStartup(writer *buffer.Writer, params map[string]string) error {
	writer.StartUntyped()
	writer.AddInt32(int32(types.Version30))

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		writer.AddString(k)
		writer.AddNullTerminate()
		writer.AddString(params[k])
		writer.AddNullTerminate()
	}
	writer.AddNullTerminate()
	return writer.EndUntyped()
}

// EncodeSSLRequest builds an SSLRequest message. It has no leading
// message-type byte.
func EncodeSSLRequest(writer *buffer.Writer) error {
	writer.StartUntyped()
	writer.AddInt32(int32(types.VersionSSLRequest))
	return writer.EndUntyped()
}

// EncodeCancelRequest builds a CancelRequest message for the given backend
// process ID and secret key. It has no leading message-type byte.
func EncodeCancelRequest(writer *buffer.Writer, processID, secretKey int32) error {
	writer.StartUntyped()
	writer.AddInt32(int32(types.VersionCancel))
	writer.AddInt32(processID)
	writer.AddInt32(secretKey)
	return writer.EndUntyped()
}

// EncodePasswordMessage builds a PasswordMessage carrying password (already
// hashed for MD5 authentication, or plain for cleartext).
func EncodePasswordMessage(writer *buffer.Writer, password string) error {
	writer.Start(types.ClientPassword)
	writer.AddString(password)
	writer.AddNullTerminate()
	return writer.End()
}

// clientSASLInitialResponse and clientSASLResponse share the 'p' message
// type with PasswordMessage in this version of the protocol; they are only
// distinguishable by the authentication state the connection is in.

// EncodeSASLInitialResponse builds a SASLInitialResponse naming the chosen
// mechanism and carrying its first client message.
func EncodeSASLInitialResponse(writer *buffer.Writer, mechanism string, data []byte) error {
	writer.Start(types.ClientPassword)
	writer.AddString(mechanism)
	writer.AddNullTerminate()
	if data == nil {
		writer.AddInt32(-1)
	} else {
		writer.AddInt32(int32(len(data)))
		writer.AddBytes(data)
	}
	return writer.End()
}

// EncodeSASLResponse builds a SASLResponse carrying the next client message
// of an ongoing SCRAM exchange.
func EncodeSASLResponse(writer *buffer.Writer, data []byte) error {
	writer.Start(types.ClientPassword)
	writer.AddBytes(data)
	return writer.End()
}

// EncodeParse builds a Parse message naming a (possibly unnamed) prepared
// statement, its query text, and the OIDs of any explicitly-typed parameters
// (0 lets the backend infer the type).
func EncodeParse(writer *buffer.Writer, name, query string, paramOIDs []uint32) error {
	writer.Start(types.ClientParse)
	writer.AddString(name)
	writer.AddNullTerminate()
	writer.AddString(query)
	writer.AddNullTerminate()
	writer.AddInt16(int16(len(paramOIDs)))
	for _, oid := range paramOIDs {
		writer.AddInt32(int32(oid))
	}
	return writer.End()
}

// EncodeDescribe builds a Describe message for a statement or a portal.
func EncodeDescribe(writer *buffer.Writer, kind buffer.PrepareType, name string) error {
	writer.Start(types.ClientDescribe)
	writer.AddByte(byte(kind))
	writer.AddString(name)
	writer.AddNullTerminate()
	return writer.End()
}

// EncodeBind builds a Bind message. Every parameter is sent with its own
// format code and length-prefixed payload (length -1 = NULL); the result
// columns are always requested in a single binary format code, per the
// client's format-normalization contract.
func EncodeBind(writer *buffer.Writer, portal, statement string, params []Parameter) error {
	writer.Start(types.ClientBind)
	writer.AddString(portal)
	writer.AddNullTerminate()
	writer.AddString(statement)
	writer.AddNullTerminate()

	writer.AddInt16(int16(len(params)))
	for _, p := range params {
		writer.AddInt16(int16(p.Format))
	}

	writer.AddInt16(int16(len(params)))
	for _, p := range params {
		if p.Value == nil {
			writer.AddInt32(-1)
			continue
		}
		writer.AddInt32(int32(len(p.Value)))
		writer.AddBytes(p.Value)
	}

	writer.AddInt16(1)
	writer.AddInt16(int16(BinaryFormat))
	return writer.End()
}

// EncodeExecute builds an Execute message for the given portal. maxRows of 0
// means "fetch all rows".
func EncodeExecute(writer *buffer.Writer, portal string, maxRows int32) error {
	writer.Start(types.ClientExecute)
	writer.AddString(portal)
	writer.AddNullTerminate()
	writer.AddInt32(maxRows)
	return writer.End()
}

// EncodeClose builds a Close message targeting a statement or a portal.
func EncodeClose(writer *buffer.Writer, kind buffer.PrepareType, name string) error {
	writer.Start(types.ClientClose)
	writer.AddByte(byte(kind))
	writer.AddString(name)
	writer.AddNullTerminate()
	return writer.End()
}

// EncodeSync builds a Sync message.
func EncodeSync(writer *buffer.Writer) error {
	writer.Start(types.ClientSync)
	return writer.End()
}

// EncodeFlush builds a Flush message.
func EncodeFlush(writer *buffer.Writer) error {
	writer.Start(types.ClientFlush)
	return writer.End()
}

// EncodeTerminate builds a Terminate message.
func EncodeTerminate(writer *buffer.Writer) error {
	writer.Start(types.ClientTerminate)
	return writer.End()
}
