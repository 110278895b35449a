package buffer

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/psql-wire/client/pkg/types"
)

// frame builds a single typed backend message: type byte + length(4,
// includes itself) + body.
func frame(t byte, body []byte) []byte {
	out := make([]byte, 0, 5+len(body))
	out = append(out, t)
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(body)+4))
	out = append(out, length...)
	out = append(out, body...)
	return out
}

func TestReaderReadTypedMsg(t *testing.T) {
	body := []byte("hello\x00")
	src := bytes.NewReader(frame('Z', body))
	r := NewReader(nil, src, 0)

	typ, n, err := r.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerReady, typ)
	require.Equal(t, 5+len(body), n)
	require.Equal(t, body, r.Remaining())
}

func TestReaderGetString(t *testing.T) {
	body := []byte("alice\x00bob\x00")
	r := NewReader(nil, bytes.NewReader(frame('S', body)), 0)
	_, _, err := r.ReadTypedMsg()
	require.NoError(t, err)

	first, err := r.GetString()
	require.NoError(t, err)
	require.Equal(t, "alice", first)

	second, err := r.GetString()
	require.NoError(t, err)
	require.Equal(t, "bob", second)
}

func TestReaderGetStringMissingTerminator(t *testing.T) {
	body := []byte("noterm")
	r := NewReader(nil, bytes.NewReader(frame('S', body)), 0)
	_, _, err := r.ReadTypedMsg()
	require.NoError(t, err)

	_, err = r.GetString()
	require.ErrorIs(t, err, ErrMissingNulTerminator)
}

func TestReaderGetInt16AndInt32(t *testing.T) {
	var body []byte
	body = binary.BigEndian.AppendUint16(body, 0xFFFE) // -2 as int16
	body = binary.BigEndian.AppendUint32(body, 0xFFFFFFFB) // -5 as int32

	r := NewReader(nil, bytes.NewReader(frame('B', body)), 0)
	_, _, err := r.ReadTypedMsg()
	require.NoError(t, err)

	i16, err := r.GetInt16()
	require.NoError(t, err)
	require.Equal(t, int16(-2), i16)

	i32, err := r.GetInt32()
	require.NoError(t, err)
	require.Equal(t, int32(-5), i32)
}

func TestReaderGetBytesNullValue(t *testing.T) {
	r := NewReader(nil, bytes.NewReader(frame('D', nil)), 0)
	_, _, err := r.ReadTypedMsg()
	require.NoError(t, err)

	v, err := r.GetBytes(-1)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestReaderGetBytesInsufficientData(t *testing.T) {
	r := NewReader(nil, bytes.NewReader(frame('D', []byte{1, 2})), 0)
	_, _, err := r.ReadTypedMsg()
	require.NoError(t, err)

	_, err = r.GetBytes(5)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestReaderReadUntypedMsgRejectsOversize(t *testing.T) {
	body := make([]byte, 64)
	var full bytes.Buffer
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(body)+4))
	full.Write(length)
	full.Write(body)

	r := NewReader(nil, &full, 16)

	_, err := r.ReadUntypedMsg()
	require.Error(t, err)

	exceeded, ok := UnwrapMessageSizeExceeded(err)
	require.True(t, ok)
	require.Equal(t, 64, exceeded.Size)
	require.Equal(t, 16, exceeded.Max)
}

func TestReaderReadTypedMsgMultipleMessages(t *testing.T) {
	var src bytes.Buffer
	src.Write(frame('1', nil))
	src.Write(frame('2', nil))

	r := NewReader(nil, &src, 0)

	typ, _, err := r.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerParseComplete, typ)

	typ, _, err = r.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerBindComplete, typ)
}
