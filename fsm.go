package client

import (
	"github.com/psql-wire/client/errors"
	"github.com/psql-wire/client/message"
	"github.com/psql-wire/client/pkg/buffer"
)

// connState discriminates the connection state machine's top-level state.
// Most of the interesting sub-states named in the data model (SSL
// negotiation, authenticating, per-task sub-state-machines) are tracked in
// dedicated fields rather than folded into this enum, since Go's sum types
// are closed structs-with-a-tag rather than tagged unions with payloads.
type connState int

const (
	connInitial connState = iota
	connSSLRequestSent
	connWaitingForStartup
	connAuthenticating
	connBackendKeyDataReceived
	connReady
	connBusy
	connClosing
	connClosed
	connErrorState
)

// txStatus mirrors the byte ReadyForQuery carries.
type txStatus byte

// connFSM is the top-level connection state machine: it owns the socket's
// write side (via writer), the task queue, authentication, parameter
// bookkeeping, and dispatch into the Extended-Query and Close sub-machines.
// It never touches the socket's read side directly; that is the channel
// glue's job, driven by the requestRead callback below.
type connFSM struct {
	state connState
	err   error

	cfg    *Config
	writer *buffer.Writer
	loop   *loop
	cache  *StatementCache
	source DataSource

	queue taskQueue

	params    map[string]string
	backendPID, backendSecret int32
	tx        txStatus

	authCtx *AuthContext
	scram   *scramClient

	activeQuery *querySubMachine
	activeClose *closeSubMachine

	// requestRead is invoked whenever the machine expects exactly one more
	// backend message imminently and no consumer-demand gating applies
	// (i.e. whenever the spec's action set would emit Read rather than
	// Wait). It is nil-safe only by construction: newConnFSM always wires it.
	requestRead func()
}

func newConnFSM(cfg *Config, loop *loop, cache *StatementCache, writer *buffer.Writer, source DataSource, requestRead func()) *connFSM {
	return &connFSM{
		state:       connInitial,
		cfg:         cfg,
		writer:      writer,
		loop:        loop,
		cache:       cache,
		source:      source,
		params:      make(map[string]string),
		authCtx:     &AuthContext{Username: cfg.Username, Password: cfg.Password, Database: cfg.Database},
		requestRead: requestRead,
	}
}

// start emits the first frontend bytes: an SSLRequest if TLS is required, a
// StartupMessage otherwise.
func (f *connFSM) start() error {
	if f.cfg.RequireTLS {
		if err := message.EncodeSSLRequest(f.writer); err != nil {
			return err
		}
		f.state = connSSLRequestSent
		f.requestRead()
		return nil
	}

	return f.sendStartup()
}

func (f *connFSM) sendStartup() error {
	if err := message.EncodeStartup(f.writer, f.cfg.StartupParameters()); err != nil {
		return err
	}

	f.state = connWaitingForStartup
	f.requestRead()
	return nil
}

// handleSSLReply processes the single raw byte ('S'/'N') the backend sends
// in reply to an SSLRequest, before TLS is active and before any message
// framing resumes.
func (f *connFSM) handleSSLReply(b byte, upgrade func() error) error {
	if f.state != connSSLRequestSent {
		return f.fail(unexpectedMessage(nil))
	}

	switch b {
	case sslSupported:
		if err := upgrade(); err != nil {
			return f.fail(err)
		}
		return f.sendStartup()
	case sslUnsupported:
		return f.fail(errors.Newf(errors.KindFailedToAddSSLHandler, "TLS required but server refused the upgrade"))
	default:
		return f.fail(unexpectedMessage(nil))
	}
}

// handleMessage routes one decoded backend message through the machine.
// It always runs on the loop goroutine.
func (f *connFSM) handleMessage(msg message.Message) error {
	switch f.state {
	case connWaitingForStartup, connAuthenticating:
		return f.handleAuth(msg)
	case connBackendKeyDataReceived:
		return f.handlePostAuth(msg)
	case connReady:
		return f.handleReady(msg)
	case connBusy:
		return f.handleBusy(msg)
	default:
		return f.fail(unexpectedMessage(msg))
	}
}

func (f *connFSM) handleAuth(msg message.Message) error {
	switch v := msg.(type) {
	case message.AuthenticationOK:
		f.state = connBackendKeyDataReceived
		f.requestRead()
		return nil

	case message.AuthenticationCleartextPassword:
		password, err := requirePassword(f.authCtx)
		if err != nil {
			return f.fail(err)
		}
		if err := message.EncodePasswordMessage(f.writer, password); err != nil {
			return f.fail(err)
		}
		f.state = connAuthenticating
		f.requestRead()
		return nil

	case message.AuthenticationMD5Password:
		password, err := requirePassword(f.authCtx)
		if err != nil {
			return f.fail(err)
		}
		hashed := md5Password(f.authCtx.Username, password, v.Salt)
		if err := message.EncodePasswordMessage(f.writer, hashed); err != nil {
			return f.fail(err)
		}
		f.state = connAuthenticating
		f.requestRead()
		return nil

	case message.AuthenticationSASL:
		password, err := requirePassword(f.authCtx)
		if err != nil {
			return f.fail(err)
		}
		mechanism, err := chooseMechanism(v.Mechanisms)
		if err != nil {
			return f.fail(err)
		}
		scramClient, err := newSCRAMClient(f.authCtx.Username, password)
		if err != nil {
			return f.fail(err)
		}
		initial, err := scramClient.initial()
		if err != nil {
			return f.fail(err)
		}
		if err := message.EncodeSASLInitialResponse(f.writer, mechanism, initial); err != nil {
			return f.fail(err)
		}
		f.scram = scramClient
		f.state = connAuthenticating
		f.requestRead()
		return nil

	case message.AuthenticationSASLContinue:
		if f.scram == nil {
			return f.fail(unexpectedMessage(msg))
		}
		resp, err := f.scram.step(v.Data)
		if err != nil {
			return f.fail(err)
		}
		if err := message.EncodeSASLResponse(f.writer, resp); err != nil {
			return f.fail(err)
		}
		f.requestRead()
		return nil

	case message.AuthenticationSASLFinal:
		if f.scram == nil {
			return f.fail(unexpectedMessage(msg))
		}
		if _, err := f.scram.step(v.Data); err != nil {
			return f.fail(err)
		}
		if !f.scram.valid() {
			return f.fail(errors.Newf(errors.KindUnsupportedAuthMethod, "SCRAM server signature did not validate"))
		}
		f.requestRead()
		return nil

	case message.ParameterStatus:
		f.params[v.Name] = v.Value
		f.requestRead()
		return nil

	case message.ErrorResponse:
		return f.fail(parseServerError(v.Fields))

	default:
		return f.fail(unexpectedMessage(msg))
	}
}

func (f *connFSM) handlePostAuth(msg message.Message) error {
	switch v := msg.(type) {
	case message.BackendKeyData:
		f.backendPID = v.ProcessID
		f.backendSecret = v.SecretKey
		f.requestRead()
		return nil
	case message.ParameterStatus:
		f.params[v.Name] = v.Value
		f.requestRead()
		return nil
	case message.ReadyForQuery:
		f.tx = txStatus(v.TxStatus)
		f.state = connReady
		return f.maybeDispatch()
	case message.ErrorResponse:
		return f.fail(parseServerError(v.Fields))
	default:
		return f.fail(unexpectedMessage(msg))
	}
}

func (f *connFSM) handleReady(msg message.Message) error {
	switch v := msg.(type) {
	case message.ParameterStatus:
		f.params[v.Name] = v.Value
		f.requestRead()
		return nil
	case message.NoticeResponse:
		f.requestRead()
		return nil
	case message.NotificationResponse:
		if f.cfg.NotificationSink != nil {
			f.cfg.NotificationSink.NotificationReceived(Notification{
				ProcessID: v.ProcessID, Channel: v.Channel, Payload: v.Payload,
			})
		}
		f.requestRead()
		return nil
	default:
		return f.fail(unexpectedMessage(msg))
	}
}

func (f *connFSM) handleBusy(msg message.Message) error {
	if _, ok := msg.(message.NoticeResponse); ok {
		f.requestRead()
		return nil
	}

	if n, ok := msg.(message.NotificationResponse); ok {
		if f.cfg.NotificationSink != nil {
			f.cfg.NotificationSink.NotificationReceived(Notification{
				ProcessID: n.ProcessID, Channel: n.Channel, Payload: n.Payload,
			})
		}
		f.requestRead()
		return nil
	}

	var done bool
	var err error

	switch {
	case f.activeQuery != nil:
		done, err = f.activeQuery.handle(msg)
	case f.activeClose != nil:
		done, err = f.activeClose.handle(msg)
	default:
		return f.fail(unexpectedMessage(msg))
	}

	if !done {
		if f.activeQuery != nil && f.activeQuery.isStreaming() {
			// Gated: do not auto-arm. The Stream's Next()/All() will call
			// Request() through the DataSource capability when it wants more.
			return nil
		}
		f.requestRead()
		return nil
	}

	if f.activeQuery != nil && f.activeQuery.prepare != nil && err == nil {
		f.cache.Put(PreparedStatement{
			Name:       f.activeQuery.prepare.Name,
			ParamOIDs:  f.activeQuery.paramOIDs,
			Columns:    f.activeQuery.columns,
			HasColumns: f.activeQuery.hasRows,
		})
	}

	f.activeQuery = nil
	f.activeClose = nil
	f.state = connBackendKeyDataReceived // reuse the "awaiting ReadyForQuery" handling
	f.requestRead()
	return nil
}

// maybeDispatch pops the head task, if any, and starts its sub-machine,
// writing its frontend bytes. Only called while connReady.
func (f *connFSM) maybeDispatch() error {
	task, ok := f.queue.pop()
	if !ok {
		f.requestRead()
		return nil
	}

	switch task.Kind {
	case TaskExtendedQuery:
		ctx := task.Query
		if ctx.Statement == "" {
			if cached, ok := f.cache.Get(ctx.Name); ok {
				sub, err := startExtendedCached(f.writer, ctx, cached, f.loop, f.source)
				if err != nil {
					ctx.Sink.Fail(err)
					return f.maybeDispatch()
				}
				f.activeQuery = sub
				f.state = connBusy
				return nil
			}
		}

		sub, err := startExtendedFresh(f.writer, ctx, f.loop, f.source)
		if err != nil {
			ctx.Sink.Fail(err)
			return f.maybeDispatch()
		}
		f.activeQuery = sub
		f.state = connBusy
		return nil

	case TaskPrepareStatement:
		sub, err := startPrepare(f.writer, task.Prepare)
		if err != nil {
			task.Prepare.Sink.Fail(err)
			return f.maybeDispatch()
		}
		f.activeQuery = sub
		f.state = connBusy
		return nil

	case TaskClose:
		sub := newCloseSubMachine(task.Close)
		if err := sub.start(f.writer); err != nil {
			task.Close.Sink.Fail(err)
			return f.maybeDispatch()
		}
		f.activeClose = sub
		f.state = connBusy
		return nil
	}

	return nil
}

// enqueue appends a task and, if the connection is idle, dispatches it
// immediately.
func (f *connFSM) enqueue(t Task) {
	f.loop.dispatch(func() {
		f.queue.push(t)
		if f.state == connReady {
			f.maybeDispatch()
		}
	})
}

// fail transitions the machine to its terminal error state, failing every
// in-flight and queued task with err exactly once.
func (f *connFSM) fail(err error) error {
	if f.state == connErrorState || f.state == connClosed {
		return err
	}

	f.state = connErrorState
	f.err = err

	if f.activeQuery != nil {
		switch {
		case f.activeQuery.stream != nil:
			f.activeQuery.stream.receiveComplete("", err)
		case f.activeQuery.query != nil:
			f.activeQuery.query.Sink.Fail(err)
		case f.activeQuery.prepare != nil:
			f.activeQuery.prepare.Sink.Fail(err)
		}
	}

	if f.activeClose != nil {
		f.activeClose.ctx.Sink.Fail(err)
	}

	f.queue.drain(err)
	return err
}
