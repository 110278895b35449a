package client

import "sync"

// StatementCache holds PreparedStatement descriptors keyed by statement
// name, so a later ExtendedQuery task can skip straight to Bind/Execute when
// it names a statement that was already prepared. Confined to the
// connection's event loop in practice, but guarded with a mutex (in the
// style of the teacher's own statement/portal caches) since a caller may
// inspect it from another goroutine between queries.
type StatementCache struct {
	mu    sync.Mutex
	items map[string]PreparedStatement
}

// NewStatementCache constructs an empty StatementCache.
func NewStatementCache() *StatementCache {
	return &StatementCache{items: make(map[string]PreparedStatement)}
}

// Get returns the cached descriptor for name, if any.
func (c *StatementCache) Get(name string) (PreparedStatement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stmt, ok := c.items[name]
	return stmt, ok
}

// Put stores or replaces the descriptor for name.
func (c *StatementCache) Put(stmt PreparedStatement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[stmt.Name] = stmt
}

// Delete removes the descriptor for name, if present. Called once a Close
// task against that statement succeeds.
func (c *StatementCache) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, name)
}
