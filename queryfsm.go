package client

import (
	"github.com/psql-wire/client/message"
	"github.com/psql-wire/client/pkg/buffer"
)

// queryPhase discriminates the Extended-Query sub-state-machine's progress
// through one Parse/Describe/Bind/Execute/Sync cycle.
type queryPhase int

const (
	queryAwaitParseComplete queryPhase = iota
	queryAwaitParamDescription
	queryAwaitRowDescriptionOrNoData
	queryAwaitBindComplete
	queryAwaitCommandCompleteNoRows
	queryStreaming
	queryDone
	queryError
)

// querySubMachine drives one extended-query cycle: a fresh Parse/Describe/
// Bind/Execute/Sync, a cached statement's Bind/Execute/Sync, or a
// Parse/Describe/Sync used only to populate the statement cache.
type querySubMachine struct {
	phase queryPhase

	query   *QueryContext   // set for extended-query tasks
	prepare *PrepareContext // set for prepare-only tasks

	statementName string
	reusedParams  []uint32 // known param OIDs when reusing a cached statement

	paramOIDs []uint32
	columns   Columns
	hasRows   bool

	stream *Stream
	loop   *loop
	source DataSource
}

// startExtendedFresh sends Parse, Describe(statement), Bind, Execute, Sync
// for a new query text.
func startExtendedFresh(writer *buffer.Writer, ctx *QueryContext, l *loop, source DataSource) (*querySubMachine, error) {
	if len(ctx.Params) > buffer.MaxPreparedStatementArgs {
		return nil, newTooManyParametersError()
	}

	if err := message.EncodeParse(writer, ctx.Name, ctx.Statement, nil); err != nil {
		return nil, err
	}
	if err := message.EncodeDescribe(writer, buffer.PrepareStatement, ctx.Name); err != nil {
		return nil, err
	}
	if err := message.EncodeBind(writer, "", ctx.Name, ctx.Params); err != nil {
		return nil, err
	}
	if err := message.EncodeExecute(writer, "", 0); err != nil {
		return nil, err
	}
	if err := message.EncodeSync(writer); err != nil {
		return nil, err
	}

	return &querySubMachine{
		phase:         queryAwaitParseComplete,
		query:         ctx,
		statementName: ctx.Name,
		loop:          l,
		source:        source,
	}, nil
}

// startExtendedCached sends only Bind, Execute, Sync, reusing a statement
// already known to the caller (via its StatementCache entry).
func startExtendedCached(writer *buffer.Writer, ctx *QueryContext, cached PreparedStatement, l *loop, source DataSource) (*querySubMachine, error) {
	if len(ctx.Params) > buffer.MaxPreparedStatementArgs {
		return nil, newTooManyParametersError()
	}

	if err := message.EncodeBind(writer, "", ctx.Name, ctx.Params); err != nil {
		return nil, err
	}
	if err := message.EncodeExecute(writer, "", 0); err != nil {
		return nil, err
	}
	if err := message.EncodeSync(writer); err != nil {
		return nil, err
	}

	return &querySubMachine{
		phase:         queryAwaitBindComplete,
		query:         ctx,
		statementName: ctx.Name,
		paramOIDs:     cached.ParamOIDs,
		columns:       cached.Columns,
		hasRows:       cached.HasColumns,
		loop:          l,
		source:        source,
	}, nil
}

// startPrepare sends Parse, Describe(statement), Sync; it never binds or
// executes, only populates the caller's statement descriptor.
func startPrepare(writer *buffer.Writer, ctx *PrepareContext) (*querySubMachine, error) {
	if err := message.EncodeParse(writer, ctx.Name, ctx.Statement, nil); err != nil {
		return nil, err
	}
	if err := message.EncodeDescribe(writer, buffer.PrepareStatement, ctx.Name); err != nil {
		return nil, err
	}
	if err := message.EncodeSync(writer); err != nil {
		return nil, err
	}

	return &querySubMachine{
		phase:         queryAwaitParseComplete,
		prepare:       ctx,
		statementName: ctx.Name,
	}, nil
}

// handle routes one decoded backend message through the sub-machine.
// done reports whether the sub-machine has delivered its outcome and the
// connection machine should return to ReadyForQuery bookkeeping (still
// awaiting the server's own ReadyForQuery to confirm).
func (m *querySubMachine) handle(msg message.Message) (done bool, err error) {
	if v, ok := msg.(message.ErrorResponse); ok && m.stream == nil {
		return m.fail(parseServerError(v.Fields))
	}

	switch m.phase {
	case queryAwaitParseComplete:
		if _, ok := msg.(message.ParseComplete); !ok {
			return m.fail(unexpectedMessage(msg))
		}
		m.phase = queryAwaitParamDescription
		return false, nil

	case queryAwaitParamDescription:
		pd, ok := msg.(message.ParameterDescription)
		if !ok {
			return m.fail(unexpectedMessage(msg))
		}
		m.paramOIDs = pd.OIDs
		m.phase = queryAwaitRowDescriptionOrNoData
		return false, nil

	case queryAwaitRowDescriptionOrNoData:
		switch v := msg.(type) {
		case message.NoData:
			m.hasRows = false
			return m.afterDescribe()
		case message.RowDescription:
			m.columns = NewColumns(v)
			m.hasRows = true
			return m.afterDescribe()
		default:
			return m.fail(unexpectedMessage(msg))
		}

	case queryAwaitBindComplete:
		if _, ok := msg.(message.BindComplete); !ok {
			return m.fail(unexpectedMessage(msg))
		}
		return m.afterBindComplete()

	case queryAwaitCommandCompleteNoRows:
		switch v := msg.(type) {
		case message.CommandComplete:
			m.phase = queryDone
			stream := newFinishedStream(m.loop, v.Tag)
			m.query.Sink.Succeed(stream)
			return true, nil
		case message.EmptyQueryResponse:
			m.phase = queryDone
			stream := newFinishedStream(m.loop, "")
			m.query.Sink.Succeed(stream)
			return true, nil
		case message.ErrorResponse:
			perr := parseServerError(v.Fields)
			m.phase = queryError
			m.query.Sink.Fail(perr)
			return true, perr
		default:
			return m.fail(unexpectedMessage(msg))
		}

	case queryStreaming:
		switch v := msg.(type) {
		case message.DataRow:
			row := &Row{columns: m.columns, values: v.Values}
			m.stream.receiveBatch([]*Row{row})
			return false, nil
		case message.CommandComplete:
			m.phase = queryDone
			m.stream.receiveComplete(v.Tag, nil)
			return true, nil
		case message.PortalSuspended:
			// The core never sends a non-zero Execute row limit, so a real
			// server should not emit this; treat it as stream completion
			// with an empty tag rather than failing the connection.
			m.phase = queryDone
			m.stream.receiveComplete("", nil)
			return true, nil
		case message.ErrorResponse:
			perr := parseServerError(v.Fields)
			m.phase = queryError
			m.stream.receiveComplete("", perr)
			return true, perr
		default:
			return m.fail(unexpectedMessage(msg))
		}

	default:
		return m.fail(unexpectedMessage(msg))
	}
}

func (m *querySubMachine) afterDescribe() (bool, error) {
	if m.prepare != nil {
		m.phase = queryDone
		m.prepare.Sink.Succeed(PreparedStatement{
			Name:       m.prepare.Name,
			ParamOIDs:  m.paramOIDs,
			Columns:    m.columns,
			HasColumns: m.hasRows,
		})
		return true, nil
	}

	m.phase = queryAwaitBindComplete
	return false, nil
}

func (m *querySubMachine) afterBindComplete() (bool, error) {
	if !m.hasRows {
		m.phase = queryAwaitCommandCompleteNoRows
		return false, nil
	}

	m.stream = newStream(m.loop, m.columns, m.source)
	m.query.Sink.Succeed(m.stream)
	m.phase = queryStreaming
	return false, nil
}

func (m *querySubMachine) fail(err error) (bool, error) {
	m.phase = queryError

	if m.stream != nil {
		m.stream.receiveComplete("", err)
		return true, err
	}

	if m.query != nil {
		m.query.Sink.Fail(err)
	}
	if m.prepare != nil {
		m.prepare.Sink.Fail(err)
	}

	return true, err
}

// isStreaming reports whether the sub-machine is currently in the row
// streaming phase, the only phase where socket reads are demand-gated.
func (m *querySubMachine) isStreaming() bool {
	return m.phase == queryStreaming
}
