// Package httpserver configures the HTTP listener for the badge API.
package httpserver

import (
	"net/http"
	"time"
)

// Timeouts sized for a credential API: requests carry small JSON bodies
// plus signing work, never streams, so slow clients are cut off early.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 2 * time.Minute
)

// New wraps the assembled router in a server ready to listen. Graceful
// shutdown is driven by the caller.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
