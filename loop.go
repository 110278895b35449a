package client

// loop serializes every access to the connection's state-bearing objects
// (the connection state machine, its active sub-state-machine, and any
// Stream it owns) onto a single goroutine, matching the single-threaded
// cooperative event-loop confinement the protocol's strict request/response
// discipline requires. Public operations that might be called from other
// goroutines submit a closure instead of touching state directly.
type loop struct {
	cmds chan func()
	done chan struct{}
}

func newLoop() *loop {
	return &loop{
		cmds: make(chan func(), 64),
		done: make(chan struct{}),
	}
}

// run processes submitted closures one at a time until stop is called. It
// must be run from exactly one goroutine for the lifetime of the connection.
func (l *loop) run() {
	for {
		select {
		case fn := <-l.cmds:
			fn()
		case <-l.done:
			return
		}
	}
}

// dispatch submits fn to run on the loop goroutine. Safe to call from any
// goroutine, including the loop goroutine itself (it will simply run after
// whatever is currently executing).
func (l *loop) dispatch(fn func()) {
	select {
	case l.cmds <- fn:
	case <-l.done:
	}
}

// stop terminates run. Submitting further work after stop is a no-op.
func (l *loop) stop() {
	close(l.done)
}

// dispatchSync submits fn to the loop goroutine and blocks until it has run,
// returning its error. Used by callers that need the loop-confined state
// mutated before they proceed (e.g. issuing the first bytes of a connection).
func (l *loop) dispatchSync(fn func() error) error {
	resultCh := make(chan error, 1)
	l.dispatch(func() {
		resultCh <- fn()
	})

	select {
	case err := <-resultCh:
		return err
	case <-l.done:
		return nil
	}
}
