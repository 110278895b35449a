package errors

import "fmt"

// Kind discriminates the ways a client-side operation can fail outside of a
// plain backend-reported SQLSTATE. A *PSQLError always wraps the underlying
// cause, so callers can still errors.As/errors.Is through it.
type Kind string

const (
	// KindServer means the backend responded with an ErrorResponse; Cause is
	// the parsed Error (see Parse).
	KindServer Kind = "server"
	// KindUnexpectedBackendMessage means a message arrived that the current
	// state did not expect (e.g. a DataRow outside of an active portal).
	KindUnexpectedBackendMessage Kind = "unexpected_backend_message"
	// KindUncleanShutdown means the socket closed, or returned an I/O error,
	// before a graceful Terminate/close sequence completed.
	KindUncleanShutdown Kind = "unclean_shutdown"
	// KindChannel means a Stream was used out of order: read again after it
	// was fully consumed, CommandTag called before it was consumed, or
	// entered during an in-flight state change. Transport-level I/O failures
	// are reported as KindUncleanShutdown, not KindChannel.
	KindChannel Kind = "channel"
	// KindFailedToAddSSLHandler means the TLS upgrade handshake (after an
	// 'S' SSLRequest response) could not be completed.
	KindFailedToAddSSLHandler Kind = "failed_to_add_ssl_handler"
	// KindTooManyParameters means a query was bound with more parameters
	// than MaxPreparedStatementArgs allows.
	KindTooManyParameters Kind = "too_many_parameters"
	// KindUnsupportedAuthMethod means the backend requested an
	// authentication method this client does not implement.
	KindUnsupportedAuthMethod Kind = "unsupported_auth_method"
	// KindAuthMechanismRequiresPassword means the chosen authentication
	// method needs a password but none was configured.
	KindAuthMechanismRequiresPassword Kind = "auth_mechanism_requires_password"
	// KindCasting means a value returned by a ValueCodec, or handed to one,
	// could not be converted to/from its Go representation.
	KindCasting Kind = "casting"
)

// PSQLError is the error type returned by every public operation of this
// module. It never needs to be constructed by callers; use errors.As to
// inspect Kind and Cause.
type PSQLError struct {
	Kind  Kind
	Cause error
}

// New wraps cause with the given Kind.
func New(kind Kind, cause error) *PSQLError {
	return &PSQLError{Kind: kind, Cause: cause}
}

// Newf wraps a formatted error with the given Kind.
func Newf(kind Kind, format string, args ...any) *PSQLError {
	return &PSQLError{Kind: kind, Cause: fmt.Errorf(format, args...)}
}

func (e *PSQLError) Error() string {
	if e.Cause == nil {
		return string(e.Kind)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Cause)
}

func (e *PSQLError) Unwrap() error {
	return e.Cause
}
