package message_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/psql-wire/client/message"
	"github.com/psql-wire/client/pkg/buffer"
	"github.com/psql-wire/client/pkg/types"
)

func TestEncodeSSLRequest(t *testing.T) {
	buf := &bytes.Buffer{}
	writer := buffer.NewWriter(nil, buf)
	require.NoError(t, message.EncodeSSLRequest(writer))

	require.Equal(t, 8, buf.Len())
	require.Equal(t, uint32(8), binary.BigEndian.Uint32(buf.Bytes()[0:4]))
	require.Equal(t, int32(types.VersionSSLRequest), int32(binary.BigEndian.Uint32(buf.Bytes()[4:8])))
}

func TestEncodeStartupIsDeterministic(t *testing.T) {
	params := map[string]string{"user": "alice", "database": "app", "application_name": "test"}

	var first, second bytes.Buffer
	require.NoError(t, message.EncodeStartup(buffer.NewWriter(nil, &first), params))
	require.NoError(t, message.EncodeStartup(buffer.NewWriter(nil, &second), params))

	require.Equal(t, first.Bytes(), second.Bytes())
}

func TestEncodeParseDescribeBindExecuteSync(t *testing.T) {
	buf := &bytes.Buffer{}
	writer := buffer.NewWriter(nil, buf)

	require.NoError(t, message.EncodeParse(writer, "s1", "SELECT $1", nil))
	require.NoError(t, message.EncodeDescribe(writer, buffer.PrepareStatement, "s1"))
	require.NoError(t, message.EncodeBind(writer, "", "s1", []message.Parameter{{Format: message.BinaryFormat, Value: []byte{0, 0, 0, 1}}}))
	require.NoError(t, message.EncodeExecute(writer, "", 0))
	require.NoError(t, message.EncodeSync(writer))

	reader := buffer.NewReader(nil, buf, buffer.DefaultBufferSize)

	typ, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerMessage(types.ClientParse), typ)
	name, err := reader.GetString()
	require.NoError(t, err)
	require.Equal(t, "s1", name)
	query, err := reader.GetString()
	require.NoError(t, err)
	require.Equal(t, "SELECT $1", query)

	typ, _, err = reader.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerMessage(types.ClientDescribe), typ)

	typ, _, err = reader.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerMessage(types.ClientBind), typ)

	typ, _, err = reader.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerMessage(types.ClientExecute), typ)

	typ, _, err = reader.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerMessage(types.ClientSync), typ)
}

func TestEncodeBindNullParameter(t *testing.T) {
	buf := &bytes.Buffer{}
	writer := buffer.NewWriter(nil, buf)
	require.NoError(t, message.EncodeBind(writer, "", "s1", []message.Parameter{{Format: message.BinaryFormat, Value: nil}}))

	reader := buffer.NewReader(nil, buf, buffer.DefaultBufferSize)
	_, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)

	_, err = reader.GetString() // portal
	require.NoError(t, err)
	_, err = reader.GetString() // statement
	require.NoError(t, err)

	paramCount, err := reader.GetInt16()
	require.NoError(t, err)
	require.Equal(t, int16(1), paramCount)

	_, err = reader.GetInt16() // format code
	require.NoError(t, err)

	valueCount, err := reader.GetInt16()
	require.NoError(t, err)
	require.Equal(t, int16(1), valueCount)

	length, err := reader.GetInt32()
	require.NoError(t, err)
	require.Equal(t, int32(-1), length)
}
