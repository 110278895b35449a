package buffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/psql-wire/client/pkg/types"
)

func TestWriterEndFramesTypedMessage(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(nil, &out)

	w.Start(types.ClientParse)
	w.AddString("stmt1")
	w.AddNullTerminate()
	require.NoError(t, w.End())

	got := out.Bytes()
	require.Equal(t, byte('P'), got[0])

	length := int(got[1])<<24 | int(got[2])<<16 | int(got[3])<<8 | int(got[4])
	require.Equal(t, len(got)-1, length)
	require.Equal(t, []byte("stmt1\x00"), got[5:])
}

func TestWriterEndUntypedFramesStartupMessage(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(nil, &out)

	w.StartUntyped()
	w.AddInt32(196608) // protocol version 3.0
	w.AddString("user")
	w.AddNullTerminate()
	w.AddNullTerminate()
	require.NoError(t, w.EndUntyped())

	got := out.Bytes()
	length := int(got[0])<<24 | int(got[1])<<16 | int(got[2])<<8 | int(got[3])
	require.Equal(t, len(got), length)
}

func TestWriterResetBetweenMessages(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(nil, &out)

	w.Start(types.ClientSync)
	require.NoError(t, w.End())
	first := out.Len()

	w.Start(types.ClientSync)
	require.NoError(t, w.End())
	require.Equal(t, first*2, out.Len())
}

func TestWriterErrorShortCircuitsAdds(t *testing.T) {
	w := NewWriter(nil, &bytes.Buffer{})
	w.Start(types.ClientParse)

	w.err = bytes.ErrTooLarge
	w.AddString("ignored")
	require.Equal(t, bytes.ErrTooLarge, w.Error())

	err := w.End()
	require.Equal(t, bytes.ErrTooLarge, err)
}

func TestEncodeBoolean(t *testing.T) {
	require.Equal(t, "on", EncodeBoolean(true))
	require.Equal(t, "off", EncodeBoolean(false))
}
