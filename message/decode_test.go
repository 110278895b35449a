package message_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/psql-wire/client/message"
	"github.com/psql-wire/client/pkg/mock"
)

func decodeOne(t *testing.T, fn func(w *mock.Writer)) message.Message {
	t.Helper()

	reader := mock.Stream(t, slog.Default(), fn)
	typ, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)

	msg, err := message.Decode(reader, typ)
	require.NoError(t, err)
	return msg
}

func TestDecodeAuthenticationOK(t *testing.T) {
	msg := decodeOne(t, mock.AuthenticationOK)
	require.Equal(t, message.AuthenticationOK{}, msg)
}

func TestDecodeAuthenticationMD5Password(t *testing.T) {
	salt := [4]byte{1, 2, 3, 4}
	msg := decodeOne(t, mock.AuthenticationMD5Password(salt))
	require.Equal(t, message.AuthenticationMD5Password{Salt: salt}, msg)
}

func TestDecodeAuthenticationSASL(t *testing.T) {
	msg := decodeOne(t, mock.AuthenticationSASL("SCRAM-SHA-256", "SCRAM-SHA-256-PLUS"))
	sasl, ok := msg.(message.AuthenticationSASL)
	require.True(t, ok)
	require.Equal(t, []string{"SCRAM-SHA-256", "SCRAM-SHA-256-PLUS"}, sasl.Mechanisms)
}

func TestDecodeParameterStatus(t *testing.T) {
	msg := decodeOne(t, mock.ParameterStatus("server_version", "16.1"))
	require.Equal(t, message.ParameterStatus{Name: "server_version", Value: "16.1"}, msg)
}

func TestDecodeBackendKeyData(t *testing.T) {
	msg := decodeOne(t, mock.BackendKeyData(42, 99))
	require.Equal(t, message.BackendKeyData{ProcessID: 42, SecretKey: 99}, msg)
}

func TestDecodeReadyForQuery(t *testing.T) {
	msg := decodeOne(t, mock.ReadyForQuery(message.TxIdle))
	require.Equal(t, message.ReadyForQuery{TxStatus: message.TxIdle}, msg)
}

func TestDecodeRowDescription(t *testing.T) {
	msg := decodeOne(t, mock.RowDescription(
		mock.FieldDescription{Name: "id", DataTypeOID: 23, DataTypeSize: 4, Format: 0},
		mock.FieldDescription{Name: "name", DataTypeOID: 25, DataTypeSize: -1, Format: 0},
	))

	rd, ok := msg.(message.RowDescription)
	require.True(t, ok)
	require.Len(t, rd.Fields, 2)
	require.Equal(t, "id", rd.Fields[0].Name)
	require.Equal(t, uint32(23), rd.Fields[0].DataTypeOID)
	require.Equal(t, "name", rd.Fields[1].Name)
}

func TestDecodeParameterDescription(t *testing.T) {
	msg := decodeOne(t, mock.ParameterDescription(23, 25))
	pd, ok := msg.(message.ParameterDescription)
	require.True(t, ok)
	require.Equal(t, []uint32{23, 25}, pd.OIDs)
}

func TestDecodeDataRowWithNull(t *testing.T) {
	msg := decodeOne(t, mock.DataRow([]byte("1"), nil, []byte("")))
	dr, ok := msg.(message.DataRow)
	require.True(t, ok)
	require.Equal(t, [][]byte{[]byte("1"), nil, {}}, dr.Values)
}

func TestDecodeCommandComplete(t *testing.T) {
	msg := decodeOne(t, mock.CommandComplete("SELECT 3"))
	require.Equal(t, message.CommandComplete{Tag: "SELECT 3"}, msg)
}

func TestDecodeErrorResponse(t *testing.T) {
	msg := decodeOne(t, mock.ErrorResponse(
		mock.ErrorField{Type: 'S', Value: "ERROR"},
		mock.ErrorField{Type: 'C', Value: "42601"},
		mock.ErrorField{Type: 'M', Value: "syntax error"},
	))

	er, ok := msg.(message.ErrorResponse)
	require.True(t, ok)
	require.Equal(t, "42601", string(er.Code()))
}

func TestDecodeNotificationResponse(t *testing.T) {
	msg := decodeOne(t, mock.NotificationResponse(7, "events", "payload"))
	require.Equal(t, message.NotificationResponse{ProcessID: 7, Channel: "events", Payload: "payload"}, msg)
}
