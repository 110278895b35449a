package client

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/psql-wire/client/message"
)

func TestCloseSubMachineSuccess(t *testing.T) {
	sink := NewResultSink[struct{}]()
	m := newCloseSubMachine(&CloseContext{Kind: CloseStatement, Name: "s1", Sink: sink})

	require.NoError(t, m.start(discardWriter()))

	done, err := m.handle(message.CloseComplete{})
	require.True(t, done)
	require.NoError(t, err)

	_, err = sink.Wait()
	require.NoError(t, err)
}

func TestCloseSubMachineServerError(t *testing.T) {
	sink := NewResultSink[struct{}]()
	m := newCloseSubMachine(&CloseContext{Kind: ClosePortal, Name: "", Sink: sink})

	require.NoError(t, m.start(discardWriter()))

	done, err := m.handle(message.ErrorResponse{Fields: []message.Field{{Type: 'M', Value: "no such portal"}}})
	require.True(t, done)
	require.Error(t, err)

	_, waitErr := sink.Wait()
	require.Error(t, waitErr)
}

func TestCloseSubMachineUnexpectedMessage(t *testing.T) {
	sink := NewResultSink[struct{}]()
	m := newCloseSubMachine(&CloseContext{Kind: CloseStatement, Name: "s1", Sink: sink})
	require.NoError(t, m.start(discardWriter()))

	done, err := m.handle(message.BindComplete{})
	require.True(t, done)
	require.Error(t, err)
}
