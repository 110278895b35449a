package client

import (
	"context"

	"github.com/psql-wire/client/errors"
)

// DataSource is the capability a Stream holds on its producer: the channel
// glue, which re-enables socket reads by asking the connection state
// machine to dispatch one. It is a narrow, non-owning back-capability —
// the stream's lifetime never extends the glue's.
type DataSource interface {
	// Request asks the producer to deliver (at most) one more batch of rows.
	Request()
	// Cancel asks the producer to abandon the portal driving this stream.
	Cancel()
}

// Row is one decoded result row, with both positional and name-based access
// to its binary-format column values.
type Row struct {
	columns Columns
	values  [][]byte
}

// Columns returns the column descriptors shared by every row of this stream.
func (r *Row) Columns() Columns { return r.columns }

// Value returns the raw binary-format bytes of the column at i, or nil if
// that column is NULL.
func (r *Row) Value(i int) []byte { return r.values[i] }

// ByName returns the raw binary-format bytes of the named column and
// whether that column exists in this row.
func (r *Row) ByName(name string) ([]byte, bool) {
	i := r.columns.Index(name)
	if i < 0 {
		return nil, false
	}

	return r.values[i], true
}

// upstreamKind discriminates the producer-side state of a Stream.
type upstreamKind int

const (
	upstreamStreaming upstreamKind = iota
	upstreamFinished
	upstreamFailure
	upstreamConsumed
	upstreamModifying
)

// downstreamKind discriminates the consumer-side state of a Stream.
type downstreamKind int

const (
	downstreamWaitingForNext downstreamKind = iota
	downstreamWaitingForAll
	downstreamConsuming
)

type nextWaiter struct {
	result chan nextResult
}

type nextResult struct {
	row *Row
	err error
}

type allWaiter struct {
	result chan allResult
}

type allResult struct {
	rows []*Row
	err  error
}

// Stream is the pull-based row batch stream sitting between the wire and
// the caller. Every method re-dispatches onto the owning connection's event
// loop before touching state, so producer (receive) and consumer
// (Next/All/OnRow) calls never race even though they are invoked from
// different goroutines.
type Stream struct {
	loop *loop

	upstream   upstreamKind
	buf        []*Row
	tag        string
	failureErr error

	downstream downstreamKind
	nextWait   *nextWaiter
	allWait    *allWaiter

	columns Columns
	source  DataSource
}

// newStream constructs a Stream already in Streaming state, as produced by
// a BindComplete that announced a RowDescription.
func newStream(l *loop, columns Columns, source DataSource) *Stream {
	return &Stream{
		loop:       l,
		upstream:   upstreamStreaming,
		downstream: downstreamConsuming,
		columns:    columns,
		source:     source,
	}
}

// newFinishedStream constructs a Stream that is already complete, as
// produced when BindComplete was followed by NoData (no rows coming).
func newFinishedStream(l *loop, tag string) *Stream {
	return &Stream{
		loop:       l,
		upstream:   upstreamFinished,
		downstream: downstreamConsuming,
		tag:        tag,
	}
}

// Next pulls the next row. It returns (nil, nil) on clean end of stream.
func (s *Stream) Next(ctx context.Context) (*Row, error) {
	resultCh := make(chan nextResult, 1)

	s.loop.dispatch(func() {
		s.handleNext(resultCh)
	})

	select {
	case r := <-resultCh:
		return r.row, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Stream) handleNext(resultCh chan nextResult) {
	switch s.upstream {
	case upstreamStreaming:
		if len(s.buf) > 0 {
			row := s.buf[0]
			s.buf = s.buf[1:]
			resultCh <- nextResult{row: row}
			return
		}

		s.downstream = downstreamWaitingForNext
		s.nextWait = &nextWaiter{result: resultCh}
		if s.source != nil {
			s.source.Request()
		}
	case upstreamFinished:
		if len(s.buf) > 0 {
			row := s.buf[0]
			s.buf = s.buf[1:]
			resultCh <- nextResult{row: row}
			return
		}

		s.upstream = upstreamConsumed
		resultCh <- nextResult{}
	case upstreamFailure:
		err := s.failureErr
		s.upstream = upstreamConsumed
		resultCh <- nextResult{err: err}
	case upstreamConsumed:
		resultCh <- nextResult{err: errConsumed()}
	case upstreamModifying:
		resultCh <- nextResult{err: errReentrant()}
	}
}

// All consumes the entire stream and returns every remaining row.
func (s *Stream) All(ctx context.Context) ([]*Row, error) {
	resultCh := make(chan allResult, 1)

	s.loop.dispatch(func() {
		s.handleAll(resultCh)
	})

	select {
	case r := <-resultCh:
		return r.rows, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Stream) handleAll(resultCh chan allResult) {
	switch s.upstream {
	case upstreamStreaming:
		s.downstream = downstreamWaitingForAll
		s.allWait = &allWaiter{result: resultCh}
		if s.source != nil {
			s.source.Request()
		}
	case upstreamFinished:
		rows := s.buf
		s.buf = nil
		s.upstream = upstreamConsumed
		resultCh <- allResult{rows: rows}
	case upstreamFailure:
		err := s.failureErr
		s.upstream = upstreamConsumed
		resultCh <- allResult{err: err}
	case upstreamConsumed:
		resultCh <- allResult{err: errConsumed()}
	case upstreamModifying:
		resultCh <- allResult{err: errReentrant()}
	}
}

// OnRow iteratively consumes the stream, invoking fn once per row in
// server order. It stops and returns fn's error immediately if fn fails.
func (s *Stream) OnRow(ctx context.Context, fn func(*Row) error) error {
	for {
		row, err := s.Next(ctx)
		if err != nil {
			return err
		}

		if row == nil {
			return nil
		}

		if err := fn(row); err != nil {
			return err
		}
	}
}

// Cancel asks the producer to abandon this stream. A no-op if the stream is
// already terminal.
func (s *Stream) Cancel() {
	s.loop.dispatch(func() {
		if s.upstream == upstreamStreaming && s.source != nil {
			s.source.Cancel()
		}
	})
}

// CommandTag returns the command tag reported by CommandComplete. Valid
// only after the stream has been fully, successfully consumed.
func (s *Stream) CommandTag() (string, error) {
	if s.upstream != upstreamConsumed {
		return "", errors.Newf(errors.KindChannel, "command tag read before stream was fully consumed")
	}

	return s.tag, nil
}

// receiveBatch is called by the query sub-state-machine (running on the
// loop goroutine, so no further dispatch is needed here) whenever a batch
// of DataRow messages arrives.
func (s *Stream) receiveBatch(rows []*Row) {
	prev := s.upstream
	s.upstream = upstreamModifying

	switch prev {
	case upstreamStreaming:
		switch s.downstream {
		case downstreamWaitingForNext:
			if len(rows) == 0 {
				s.upstream = upstreamStreaming
				return
			}

			row := rows[0]
			rest := rows[1:]
			s.buf = append(s.buf, rest...)
			s.downstream = downstreamConsuming
			waiter := s.nextWait
			s.nextWait = nil
			s.upstream = upstreamStreaming
			waiter.result <- nextResult{row: row}
		case downstreamWaitingForAll:
			s.buf = append(s.buf, rows...)
			s.upstream = upstreamStreaming
			if s.source != nil {
				s.source.Request()
			}
		case downstreamConsuming:
			s.buf = append(s.buf, rows...)
			s.upstream = upstreamStreaming
		}
	default:
		s.upstream = prev
	}
}

// receiveComplete is called by the query sub-state-machine when the portal
// driving this stream reaches a terminal outcome: CommandComplete (success,
// tag set) or ErrorResponse (failure, err set).
func (s *Stream) receiveComplete(tag string, err error) {
	prev := s.upstream
	s.upstream = upstreamModifying

	switch prev {
	case upstreamStreaming:
		switch s.downstream {
		case downstreamWaitingForNext:
			waiter := s.nextWait
			s.nextWait = nil
			s.downstream = downstreamConsuming
			s.upstream = upstreamConsumed
			s.tag = tag
			waiter.result <- nextResult{err: err}
		case downstreamWaitingForAll:
			waiter := s.allWait
			s.allWait = nil
			s.downstream = downstreamConsuming
			if err != nil {
				s.upstream = upstreamConsumed
				waiter.result <- allResult{err: err}
				return
			}

			rows := s.buf
			s.buf = nil
			s.tag = tag
			s.upstream = upstreamConsumed
			waiter.result <- allResult{rows: rows}
		case downstreamConsuming:
			s.tag = tag
			if err != nil {
				s.failureErr = err
				s.upstream = upstreamFailure
			} else {
				s.upstream = upstreamFinished
			}
		}
	default:
		s.upstream = prev
	}
}

func errConsumed() error {
	return errors.Newf(errors.KindChannel, "stream already fully consumed")
}

func errReentrant() error {
	return errors.Newf(errors.KindChannel, "stream state observed during an in-flight mutation")
}
