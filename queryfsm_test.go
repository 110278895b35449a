package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/psql-wire/client/message"
	"github.com/psql-wire/client/pkg/buffer"
)

func discardWriter() *buffer.Writer {
	return buffer.NewWriter(nil, discardWriterTarget{})
}

type discardWriterTarget struct{}

func (discardWriterTarget) Write(p []byte) (int, error) { return len(p), nil }

func TestQuerySubMachineFreshQueryNoRows(t *testing.T) {
	sink := NewResultSink[*Stream]()
	ctx := &QueryContext{Statement: "DELETE FROM t", Name: "", Sink: sink}

	l := runningLoop(t)
	m, err := startExtendedFresh(discardWriter(), ctx, l, nil)
	require.NoError(t, err)

	done, err := m.handle(message.ParseComplete{})
	require.False(t, done)
	require.NoError(t, err)

	done, err = m.handle(message.ParameterDescription{OIDs: nil})
	require.False(t, done)
	require.NoError(t, err)

	done, err = m.handle(message.NoData{})
	require.False(t, done)
	require.NoError(t, err)

	done, err = m.handle(message.BindComplete{})
	require.False(t, done)
	require.NoError(t, err)

	done, err = m.handle(message.CommandComplete{Tag: "DELETE 3"})
	require.True(t, done)
	require.NoError(t, err)

	stream, err := sink.Wait()
	require.NoError(t, err)

	allCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rows, err := stream.All(allCtx)
	require.NoError(t, err)
	require.Empty(t, rows)

	tag, err := stream.CommandTag()
	require.NoError(t, err)
	require.Equal(t, "DELETE 3", tag)
}

func TestQuerySubMachineFreshQueryWithRows(t *testing.T) {
	sink := NewResultSink[*Stream]()
	ctx := &QueryContext{Statement: "SELECT id FROM t", Sink: sink}

	l := runningLoop(t)
	m, err := startExtendedFresh(discardWriter(), ctx, l, &fakeSource{})
	require.NoError(t, err)

	_, _ = m.handle(message.ParseComplete{})
	_, _ = m.handle(message.ParameterDescription{})
	done, err := m.handle(message.RowDescription{Fields: []message.FieldDescription{{Name: "id", DataTypeOID: 23}}})
	require.False(t, done)
	require.NoError(t, err)
	require.False(t, m.isStreaming())

	done, err = m.handle(message.BindComplete{})
	require.False(t, done)
	require.NoError(t, err)
	require.True(t, m.isStreaming())

	stream, err := sink.Wait()
	require.NoError(t, err)

	done, err = m.handle(message.DataRow{Values: [][]byte{[]byte("1")}})
	require.False(t, done)
	require.NoError(t, err)

	done, err = m.handle(message.CommandComplete{Tag: "SELECT 1"})
	require.True(t, done)
	require.NoError(t, err)

	ctx2, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rows, err := stream.All(ctx2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestQuerySubMachineTooManyParameters(t *testing.T) {
	params := make([]Parameter, buffer.MaxPreparedStatementArgs+1)
	ctx := &QueryContext{Statement: "SELECT 1", Params: params, Sink: NewResultSink[*Stream]()}

	_, err := startExtendedFresh(discardWriter(), ctx, nil, nil)
	require.Error(t, err)
}

func TestQuerySubMachinePrepareOnly(t *testing.T) {
	sink := NewResultSink[PreparedStatement]()
	ctx := &PrepareContext{Name: "s1", Statement: "SELECT $1::int", Sink: sink}

	m, err := startPrepare(discardWriter(), ctx)
	require.NoError(t, err)

	_, _ = m.handle(message.ParseComplete{})
	_, _ = m.handle(message.ParameterDescription{OIDs: []uint32{23}})
	done, err := m.handle(message.NoData{})
	require.True(t, done)
	require.NoError(t, err)

	stmt, err := sink.Wait()
	require.NoError(t, err)
	require.Equal(t, "s1", stmt.Name)
	require.Equal(t, []uint32{23}, stmt.ParamOIDs)
	require.False(t, stmt.HasColumns)
}

func TestQuerySubMachineServerError(t *testing.T) {
	sink := NewResultSink[*Stream]()
	ctx := &QueryContext{Statement: "broken", Sink: sink}

	m, err := startExtendedFresh(discardWriter(), ctx, nil, nil)
	require.NoError(t, err)

	done, err := m.handle(message.ErrorResponse{Fields: []message.Field{{Type: 'M', Value: "syntax error"}}})
	require.True(t, done)
	require.Error(t, err)

	_, waitErr := sink.Wait()
	require.Error(t, waitErr)
}
