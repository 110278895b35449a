package client

import (
	"context"
	"log/slog"
	"net"

	"github.com/psql-wire/client/errors"
	"github.com/psql-wire/client/message"
	"github.com/psql-wire/client/metrics"
	"github.com/psql-wire/client/pkg/buffer"
)

const defaultBufferSize = 1 << 13

// connGlue wires a net.Conn to a connFSM: it owns the reader goroutine, the
// demand-gating resume token that implements read pacing during row
// streaming, and the translation of socket/decode errors into fsm inputs.
// Everything it hands to the fsm runs through loop.dispatch, so the fsm
// itself never has to reason about which goroutine called it.
type connGlue struct {
	conn    net.Conn
	host    string
	bufSize int
	reader  *buffer.Reader
	writer  *buffer.Writer
	loop    *loop
	fsm     *connFSM
	logger  *slog.Logger
	metric  *metrics.Collector

	// resume is a capacity-1 token channel. The reader goroutine blocks on it
	// before every read; armRead pushes one non-blocking token. Outside of
	// row streaming the fsm re-arms after every message, so reads proceed
	// back-to-back; during streaming only Stream.Next/All (via DataSource)
	// ever calls armRead, bounding outstanding reads to at most one.
	resume chan struct{}
}

// dial opens a TCP connection and starts its event loop and reader
// goroutine, then has the connection machine write its first startup bytes.
// It returns as soon as those are written; SSL negotiation and
// authentication proceed on the loop goroutine afterwards.
func dial(ctx context.Context, cfg *Config) (*connGlue, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Address())
	if err != nil {
		return nil, errors.New(errors.KindUncleanShutdown, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}

	g := &connGlue{
		conn:    conn,
		host:    cfg.Host,
		bufSize: bufSize,
		reader:  buffer.NewReader(logger, conn, bufSize),
		writer:  buffer.NewWriter(logger, conn),
		loop:    newLoop(),
		logger:  logger,
		metric:  cfg.Metrics,
		resume:  make(chan struct{}, 1),
	}

	source := &connDataSource{glue: g}
	cache := NewStatementCache()
	g.fsm = newConnFSM(cfg, g.loop, cache, g.writer, source, g.armRead)

	go g.loop.run()
	go g.readLoop()

	if err := g.loop.dispatchSync(func() error {
		return g.fsm.start()
	}); err != nil {
		g.close()
		return nil, err
	}

	return g, nil
}

// readLoop is the only goroutine that ever calls conn.Read. It alternates
// between waiting for a resume token and performing exactly one blocking
// read, dispatching whatever it finds onto the loop goroutine.
func (g *connGlue) readLoop() {
	for {
		select {
		case <-g.resume:
		case <-g.loop.done:
			return
		}

		if g.awaitingSSLReply() {
			b, err := g.reader.Buffer.ReadByte()
			if err != nil {
				g.deliverReadError(err)
				return
			}

			g.loop.dispatch(func() {
				g.fsm.handleSSLReply(b, g.upgradeTLS)
			})
			continue
		}

		t, n, err := g.reader.ReadTypedMsg()
		if err != nil {
			g.deliverReadError(err)
			return
		}

		g.metric.AddBytesRead(n)

		msg, err := message.Decode(g.reader, t)
		if err != nil {
			g.deliverReadError(err)
			return
		}

		g.loop.dispatch(func() {
			g.fsm.handleMessage(msg)
		})
	}
}

// awaitingSSLReply reports whether the next byte off the wire is the raw
// 'S'/'N' SSLRequest reply rather than a typed message. Reading fsm.state
// here is a benign race (it only ever transitions away from
// connSSLRequestSent on the loop goroutine, strictly after this read
// completes), so no dispatch is needed just to inspect it.
func (g *connGlue) awaitingSSLReply() bool {
	return g.fsm.state == connSSLRequestSent
}

func (g *connGlue) deliverReadError(err error) {
	wrapped := errors.New(errors.KindUncleanShutdown, err)
	g.loop.dispatch(func() {
		g.fsm.fail(wrapped)
	})
}

// armRead pushes one resume token, non-blocking. Safe to call from any
// goroutine; typically called from the loop goroutine via connFSM or
// Stream's DataSource capability.
func (g *connGlue) armRead() {
	select {
	case g.resume <- struct{}{}:
	default:
	}
}

// upgradeTLS swaps conn, reader and writer for TLS-wrapped equivalents. It
// runs on the loop goroutine, called synchronously by connFSM.handleSSLReply
// before the next message is read.
func (g *connGlue) upgradeTLS() error {
	tlsConn, err := upgradeTLS(context.Background(), g.conn, g.host, g.fsm.cfg.TLSConfig)
	if err != nil {
		return err
	}

	g.conn = tlsConn
	g.reader = buffer.NewReader(g.logger, tlsConn, g.bufSize)
	g.writer = buffer.NewWriter(g.logger, tlsConn)
	g.fsm.writer = g.writer
	return nil
}

func (g *connGlue) close() {
	g.loop.stop()
	_ = g.conn.Close()
}

// connDataSource adapts a connGlue into the DataSource capability a Stream
// holds on its producer.
type connDataSource struct {
	glue *connGlue
}

func (d *connDataSource) Request() {
	d.glue.armRead()
}

// Cancel is a best-effort no-op: issuing a real CancelRequest requires a
// second connection carrying the backend's process ID and secret key
// (BackendProcessID/BackendSecretKey on Conn), which this narrow producer
// capability has no way to open itself.
func (d *connDataSource) Cancel() {}
