package client

import (
	"github.com/psql-wire/client/errors"
	"github.com/psql-wire/client/message"
)

// ResultSink is a one-shot completable used by every task context. It must
// be settled — by Succeed or Fail, never both — exactly once; settling it a
// second time is a programmer error and is ignored rather than panicking,
// since the connection state machine's own bookkeeping is what guarantees
// single settlement in practice.
type ResultSink[T any] struct {
	ch       chan result[T]
	settled  bool
}

type result[T any] struct {
	value T
	err   error
}

// NewResultSink constructs a ResultSink with a one-slot buffered channel, so
// Succeed/Fail never block the event loop that calls them.
func NewResultSink[T any]() *ResultSink[T] {
	return &ResultSink[T]{ch: make(chan result[T], 1)}
}

// Succeed settles the sink with a value. A second call is a no-op.
func (s *ResultSink[T]) Succeed(value T) {
	if s.settled {
		return
	}
	s.settled = true
	s.ch <- result[T]{value: value}
}

// Fail settles the sink with an error. A second call is a no-op.
func (s *ResultSink[T]) Fail(err error) {
	if s.settled {
		return
	}
	s.settled = true
	s.ch <- result[T]{err: err}
}

// Wait blocks until the sink is settled and returns its outcome.
func (s *ResultSink[T]) Wait() (T, error) {
	r := <-s.ch
	return r.value, r.err
}

// TaskKind discriminates the three shapes of work the connection state
// machine dispatches.
type TaskKind int

const (
	// TaskExtendedQuery runs one Parse/Describe/Bind/Execute/Sync cycle.
	TaskExtendedQuery TaskKind = iota
	// TaskPrepareStatement runs Parse/Describe/Sync only, populating the
	// statement cache for later reuse.
	TaskPrepareStatement
	// TaskClose runs a Close/Sync cycle against a portal or statement.
	TaskClose
)

// QueryContext carries the inputs of an extended-query task.
type QueryContext struct {
	Statement string // empty when reusing a prepared statement
	Name      string // prepared-statement name, "" for the unnamed statement
	Params    []Parameter
	Sink      *ResultSink[*Stream]
}

// PrepareContext carries the inputs of a prepare-only task.
type PrepareContext struct {
	Name      string
	Statement string
	Sink      *ResultSink[PreparedStatement]
}

// CloseContext carries the inputs of a close task.
type CloseContext struct {
	Kind CloseTarget
	Name string
	Sink *ResultSink[struct{}]
}

// CloseTarget names what a Close task targets.
type CloseTarget int

const (
	// CloseStatement closes a named prepared statement.
	CloseStatement CloseTarget = iota
	// ClosePortal closes a named portal.
	ClosePortal
)

// Task is one discriminated unit of work dispatched by the connection state
// machine. Exactly one of Query, Prepare, Close is set, matching Kind.
type Task struct {
	Kind    TaskKind
	Query   *QueryContext
	Prepare *PrepareContext
	Close   *CloseContext
}

// taskQueue is an ordered FIFO of pending tasks, owned exclusively by the
// connection state machine; a task is dequeued only when the connection is
// ReadyForQuery and no sub-state-machine is active.
type taskQueue struct {
	items []Task
}

func (q *taskQueue) push(t Task) {
	q.items = append(q.items, t)
}

func (q *taskQueue) pop() (Task, bool) {
	if len(q.items) == 0 {
		return Task{}, false
	}

	t := q.items[0]
	q.items = q.items[1:]
	return t, true
}

func (q *taskQueue) len() int {
	return len(q.items)
}

// drain fails every remaining queued task with err, settling each sink
// exactly once, then empties the queue. Used by connFSM.fail when the
// connection transitions to its error state.
func (q *taskQueue) drain(err error) {
	for _, t := range q.items {
		switch t.Kind {
		case TaskExtendedQuery:
			t.Query.Sink.Fail(err)
		case TaskPrepareStatement:
			t.Prepare.Sink.Fail(err)
		case TaskClose:
			t.Close.Sink.Fail(err)
		}
	}

	q.items = nil
}

// unexpectedMessage builds the protocol-violation error produced whenever a
// backend message arrives that the current state does not expect.
func unexpectedMessage(msg message.Message) error {
	return errors.Newf(errors.KindUnexpectedBackendMessage, "unexpected backend message: %s", messageTypeName(msg))
}
