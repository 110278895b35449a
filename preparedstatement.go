package client

// PreparedStatement is the client-side descriptor produced by a
// PrepareStatement task: the parameter type OIDs the backend inferred plus
// the row description of the statement's result columns (absent for
// statements that return no rows). A later ExtendedQuery task naming the
// same statement skips Parse/Describe and issues only Bind/Execute/Sync.
type PreparedStatement struct {
	Name       string
	ParamOIDs  []uint32
	Columns    Columns
	HasColumns bool
}
