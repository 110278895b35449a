package client

import (
	"crypto/tls"
	"log/slog"

	"github.com/psql-wire/client/metrics"
)

// OptionFn configures a Config. Functional options compose the same way the
// teacher's server-side OptionFn does: each returns nothing and mutates the
// Config in place, so callers can pass any number of them to Connect.
type OptionFn func(*Config)

// WithLogger sets the structured logger used for wire-level debug logging
// and connection-lifecycle events. Defaults to slog.Default() if never set.
func WithLogger(logger *slog.Logger) OptionFn {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithDatabase sets the database name sent in the startup parameters.
func WithDatabase(name string) OptionFn {
	return func(c *Config) {
		c.Database = name
	}
}

// WithPassword sets the password used to answer cleartext, MD5 or SCRAM
// authentication requests.
func WithPassword(password string) OptionFn {
	return func(c *Config) {
		c.Password = password
	}
}

// WithTLSConfig requires a TLS upgrade before startup, using the given
// *tls.Config as a base (ServerName is derived from the host unless already
// set or the host is an IP literal).
func WithTLSConfig(cfg *tls.Config) OptionFn {
	return func(c *Config) {
		c.TLSConfig = cfg
		c.RequireTLS = true
	}
}

// WithBufferSize overrides the default read buffer size of the underlying
// wire reader.
func WithBufferSize(size int) OptionFn {
	return func(c *Config) {
		c.BufferSize = size
	}
}

// WithMetrics attaches a metrics.Collector whose bytes-read counter is
// updated as the connection reads backend messages; the connection does not
// update the Collector's other metrics. Nil-safe: omit this option to run
// without metrics.
func WithMetrics(collector *metrics.Collector) OptionFn {
	return func(c *Config) {
		c.Metrics = collector
	}
}

// WithNotificationSink registers a delegate invoked for every raw
// NotificationResponse (LISTEN/NOTIFY) the backend sends, out of band from
// the task currently in flight.
func WithNotificationSink(sink NotificationSink) OptionFn {
	return func(c *Config) {
		c.NotificationSink = sink
	}
}

// WithStartupParameter sets an additional startup parameter (beyond user
// and database), such as application_name or search_path.
func WithStartupParameter(name, value string) OptionFn {
	return func(c *Config) {
		if c.ExtraParams == nil {
			c.ExtraParams = make(map[string]string)
		}
		c.ExtraParams[name] = value
	}
}
