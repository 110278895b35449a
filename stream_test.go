package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	requests int
	cancels  int
}

func (f *fakeSource) Request() { f.requests++ }
func (f *fakeSource) Cancel()  { f.cancels++ }

func runningLoop(t *testing.T) *loop {
	t.Helper()

	l := newLoop()
	go l.run()
	t.Cleanup(l.stop)
	return l
}

func TestStreamNextDrainsBufferedRows(t *testing.T) {
	l := runningLoop(t)
	source := &fakeSource{}
	s := newStream(l, Columns{}, source)

	row := &Row{values: [][]byte{[]byte("a")}}
	s.receiveBatch([]*Row{row})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := s.Next(ctx)
	require.NoError(t, err)
	require.Same(t, row, got)
}

func TestStreamNextBlocksUntilBatchArrives(t *testing.T) {
	l := runningLoop(t)
	source := &fakeSource{}
	s := newStream(l, Columns{}, source)

	resultCh := make(chan *Row, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		row, err := s.Next(ctx)
		require.NoError(t, err)
		resultCh <- row
	}()

	require.Eventually(t, func() bool { return source.requests > 0 }, time.Second, time.Millisecond)

	row := &Row{values: [][]byte{[]byte("b")}}
	l.dispatch(func() { s.receiveBatch([]*Row{row}) })

	select {
	case got := <-resultCh:
		require.Same(t, row, got)
	case <-time.After(2 * time.Second):
		t.Fatal("Next never returned")
	}
}

func TestStreamNextEndOfStream(t *testing.T) {
	l := runningLoop(t)
	s := newFinishedStream(l, "SELECT 0")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	row, err := s.Next(ctx)
	require.NoError(t, err)
	require.Nil(t, row)

	tag, err := s.CommandTag()
	require.NoError(t, err)
	require.Equal(t, "SELECT 0", tag)
}

func TestStreamAllReturnsEveryRow(t *testing.T) {
	l := runningLoop(t)
	source := &fakeSource{}
	s := newStream(l, Columns{}, source)

	rows := []*Row{{values: [][]byte{[]byte("1")}}, {values: [][]byte{[]byte("2")}}}

	resultCh := make(chan []*Row, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		got, err := s.All(ctx)
		require.NoError(t, err)
		resultCh <- got
	}()

	require.Eventually(t, func() bool { return source.requests > 0 }, time.Second, time.Millisecond)

	l.dispatch(func() { s.receiveBatch(rows) })
	l.dispatch(func() { s.receiveComplete("SELECT 2", nil) })

	select {
	case got := <-resultCh:
		require.Equal(t, rows, got)
	case <-time.After(2 * time.Second):
		t.Fatal("All never returned")
	}
}

func TestStreamReceiveCompleteWithErrorFailsWaitingNext(t *testing.T) {
	l := runningLoop(t)
	source := &fakeSource{}
	s := newStream(l, Columns{}, source)

	resultErrCh := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err := s.Next(ctx)
		resultErrCh <- err
	}()

	require.Eventually(t, func() bool { return source.requests > 0 }, time.Second, time.Millisecond)

	failErr := errReentrant()
	l.dispatch(func() { s.receiveComplete("", failErr) })

	select {
	case err := <-resultErrCh:
		require.ErrorIs(t, err, failErr)
	case <-time.After(2 * time.Second):
		t.Fatal("Next never returned")
	}
}

func TestStreamDoubleConsumeFails(t *testing.T) {
	l := runningLoop(t)
	s := newFinishedStream(l, "SELECT 0")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := s.Next(ctx)
	require.NoError(t, err)

	_, err = s.Next(ctx)
	require.Error(t, err)
}

func TestStreamCancelDelegatesToSource(t *testing.T) {
	l := runningLoop(t)
	source := &fakeSource{}
	s := newStream(l, Columns{}, source)

	s.Cancel()
	require.Eventually(t, func() bool { return source.cancels == 1 }, time.Second, time.Millisecond)
}
