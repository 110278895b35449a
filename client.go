package client

import (
	"context"
	"net"

	"github.com/psql-wire/client/errors"
	"github.com/psql-wire/client/message"
	"github.com/psql-wire/client/pkg/buffer"
)

// Conn is a single PostgreSQL wire-protocol connection. It is safe for
// concurrent use: every operation submits a task to the connection's event
// loop and blocks the calling goroutine (honoring ctx) until it settles, but
// multiple goroutines may have tasks in flight at once — they simply queue
// and run one at a time, in submission order, exactly as the wire protocol's
// single active portal requires.
type Conn struct {
	glue *connGlue
}

// Connect dials cfg.Address() and writes the first startup bytes (an
// SSLRequest if TLS is required, a StartupMessage otherwise), then returns.
// It does not wait for TLS negotiation or authentication to finish: those
// continue on the connection's event loop. The returned Conn's first query
// can be issued immediately; it is queued and dispatched once the backend
// reports ReadyForQuery. A failure during startup fails the tasks queued at
// that moment and is not returned by Connect.
func Connect(ctx context.Context, cfg *Config, opts ...OptionFn) (*Conn, error) {
	merged := *cfg
	for _, opt := range opts {
		opt(&merged)
	}

	g, err := dial(ctx, &merged)
	if err != nil {
		return nil, err
	}

	return &Conn{glue: g}, nil
}

// Query runs statement as a fresh, unnamed extended-query cycle
// (Parse/Describe/Bind/Execute/Sync) and returns a Stream over its results.
// The Stream is returned as soon as the row shape is known; call Next/All/
// OnRow to pull rows.
func (c *Conn) Query(ctx context.Context, statement string, params ...Parameter) (*Stream, error) {
	sink := NewResultSink[*Stream]()
	c.glue.fsm.enqueue(Task{
		Kind: TaskExtendedQuery,
		Query: &QueryContext{
			Statement: statement,
			Params:    params,
			Sink:      sink,
		},
	})

	return waitSink(ctx, sink)
}

// Prepare runs Parse/Describe/Sync for statement under name and populates
// the connection's statement cache, so a later QueryPrepared(name, ...) only
// sends Bind/Execute/Sync.
func (c *Conn) Prepare(ctx context.Context, name, statement string) (PreparedStatement, error) {
	sink := NewResultSink[PreparedStatement]()
	c.glue.fsm.enqueue(Task{
		Kind: TaskPrepareStatement,
		Prepare: &PrepareContext{
			Name:      name,
			Statement: statement,
			Sink:      sink,
		},
	})

	return waitSink(ctx, sink)
}

// QueryPrepared binds and executes the prepared statement named by a prior
// Prepare call on this same Conn, sending only Bind/Execute/Sync. A name
// that is not in this Conn's local statement cache is not looked up on the
// server: the task is sent as a fresh Parse/Describe/Bind/Execute/Sync with
// an empty query text under that name.
func (c *Conn) QueryPrepared(ctx context.Context, name string, params ...Parameter) (*Stream, error) {
	sink := NewResultSink[*Stream]()
	c.glue.fsm.enqueue(Task{
		Kind: TaskExtendedQuery,
		Query: &QueryContext{
			Name:   name,
			Params: params,
			Sink:   sink,
		},
	})

	return waitSink(ctx, sink)
}

// CloseStatement closes a prepared statement by name, freeing server-side
// resources and evicting it from the local statement cache.
func (c *Conn) CloseStatement(ctx context.Context, name string) error {
	return c.closeTarget(ctx, CloseStatement, name)
}

// ClosePortal closes an unnamed or named portal by name.
func (c *Conn) ClosePortal(ctx context.Context, name string) error {
	return c.closeTarget(ctx, ClosePortal, name)
}

func (c *Conn) closeTarget(ctx context.Context, kind CloseTarget, name string) error {
	sink := NewResultSink[struct{}]()
	c.glue.fsm.enqueue(Task{
		Kind: TaskClose,
		Close: &CloseContext{
			Kind: kind,
			Name: name,
			Sink: sink,
		},
	})

	_, err := waitSink(ctx, sink)
	if kind == CloseStatement && err == nil {
		c.glue.fsm.cache.Delete(name)
	}

	return err
}

// BackendProcessID returns the process ID reported by BackendKeyData, used
// to build a CancelRequest on a separate connection.
func (c *Conn) BackendProcessID() int32 { return c.glue.fsm.backendPID }

// BackendSecretKey returns the secret key reported by BackendKeyData, used
// to build a CancelRequest on a separate connection.
func (c *Conn) BackendSecretKey() int32 { return c.glue.fsm.backendSecret }

// Close sends Terminate and closes the underlying socket. It does not wait
// for in-flight tasks to finish; cancel ctx or let them fail naturally as
// the connection tears down.
func (c *Conn) Close(ctx context.Context) error {
	_ = c.glue.loop.dispatchSync(func() error {
		return message.EncodeTerminate(c.glue.writer)
	})

	c.glue.close()
	return nil
}

// Cancel opens a short-lived second connection to address and issues a
// CancelRequest for the given backend process, per the protocol's
// out-of-band cancellation design (a cancellation can only be requested on
// a fresh connection, never on the one running the query).
func Cancel(ctx context.Context, address string, processID, secretKey int32) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return errors.New(errors.KindUncleanShutdown, err)
	}
	defer conn.Close()

	writer := buffer.NewWriter(nil, conn)
	if err := message.EncodeCancelRequest(writer, processID, secretKey); err != nil {
		return err
	}

	// The backend closes the connection without a reply; a short read
	// confirms the socket is torn down rather than left dangling.
	buf := make([]byte, 1)
	_, _ = conn.Read(buf)
	return nil
}

func waitSink[T any](ctx context.Context, sink *ResultSink[T]) (T, error) {
	type outcome struct {
		value T
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		v, err := sink.Wait()
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
