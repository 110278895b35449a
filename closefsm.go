package client

import (
	"github.com/psql-wire/client/message"
	"github.com/psql-wire/client/pkg/buffer"
)

// closeSubState discriminates the three states of the Close sub-state
// machine: send Close(target)+Sync, wait for CloseComplete, then succeed.
type closeSubState int

const (
	closeInitial closeSubState = iota
	closeSyncSent
	closeComplete
	closeError
)

// closeSubMachine drives one Close/Sync round-trip against a portal or
// prepared statement.
type closeSubMachine struct {
	state closeSubState
	ctx   *CloseContext
}

func newCloseSubMachine(ctx *CloseContext) *closeSubMachine {
	return &closeSubMachine{state: closeInitial, ctx: ctx}
}

// start emits the Close+Sync bytes and transitions to closeSyncSent.
func (m *closeSubMachine) start(writer *buffer.Writer) error {
	kind := buffer.PrepareStatement
	if m.ctx.Kind == ClosePortal {
		kind = buffer.PreparePortal
	}

	if err := message.EncodeClose(writer, kind, m.ctx.Name); err != nil {
		return err
	}

	if err := message.EncodeSync(writer); err != nil {
		return err
	}

	m.state = closeSyncSent
	return nil
}

// handle routes one decoded backend message through the sub-machine. It
// returns done=true once the sub-machine has reached a terminal state and
// the connection machine should return to ReadyForQuery bookkeeping.
func (m *closeSubMachine) handle(msg message.Message) (done bool, err error) {
	switch m.state {
	case closeSyncSent:
		switch v := msg.(type) {
		case message.CloseComplete:
			m.state = closeComplete
			m.ctx.Sink.Succeed(struct{}{})
			return true, nil
		case message.ErrorResponse:
			m.state = closeError
			parseErr := parseServerError(v.Fields)
			m.ctx.Sink.Fail(parseErr)
			return true, parseErr
		default:
			err := unexpectedMessage(msg)
			m.state = closeError
			m.ctx.Sink.Fail(err)
			return true, err
		}
	default:
		err := unexpectedMessage(msg)
		m.state = closeError
		m.ctx.Sink.Fail(err)
		return true, err
	}
}
