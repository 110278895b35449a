package client

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResultSinkSucceedOnce(t *testing.T) {
	sink := NewResultSink[int]()
	sink.Succeed(7)
	sink.Succeed(9) // second call is a no-op

	v, err := sink.Wait()
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestResultSinkFail(t *testing.T) {
	sink := NewResultSink[int]()
	boom := errors.New("boom")
	sink.Fail(boom)

	_, err := sink.Wait()
	require.ErrorIs(t, err, boom)
}

func TestTaskQueuePushPopOrder(t *testing.T) {
	var q taskQueue

	q.push(Task{Kind: TaskClose, Close: &CloseContext{Name: "a"}})
	q.push(Task{Kind: TaskClose, Close: &CloseContext{Name: "b"}})

	require.Equal(t, 2, q.len())

	first, ok := q.pop()
	require.True(t, ok)
	require.Equal(t, "a", first.Close.Name)

	second, ok := q.pop()
	require.True(t, ok)
	require.Equal(t, "b", second.Close.Name)

	_, ok = q.pop()
	require.False(t, ok)
}

func TestTaskQueueDrainFailsEveryTask(t *testing.T) {
	var q taskQueue

	querySink := NewResultSink[*Stream]()
	prepareSink := NewResultSink[PreparedStatement]()
	closeSink := NewResultSink[struct{}]()

	q.push(Task{Kind: TaskExtendedQuery, Query: &QueryContext{Sink: querySink}})
	q.push(Task{Kind: TaskPrepareStatement, Prepare: &PrepareContext{Sink: prepareSink}})
	q.push(Task{Kind: TaskClose, Close: &CloseContext{Sink: closeSink}})

	boom := errors.New("connection lost")
	q.drain(boom)
	require.Equal(t, 0, q.len())

	_, err := querySink.Wait()
	require.ErrorIs(t, err, boom)

	_, err = prepareSink.Wait()
	require.ErrorIs(t, err, boom)

	_, err = closeSink.Wait()
	require.ErrorIs(t, err, boom)
}
