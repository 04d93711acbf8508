// Package httpc builds the HTTP clients the watcher side of httpcam
// uses. A watcher hits one camera server many times a second for hours,
// so the transport keeps connections to that host alive instead of
// redialing per poll.
package httpc

import (
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds one image fetch end to end. Well above any
	// sane poll interval, so a hung server fails the poll rather than
	// stalling it forever.
	DefaultTimeout = 15 * time.Second

	// connectTimeout bounds dialing the camera server.
	connectTimeout = 5 * time.Second

	// idleConnTimeout is how long a kept-alive connection may sit
	// unused before the transport drops it.
	idleConnTimeout = 2 * time.Minute
)

// Client is the shared polling client.
var Client = NewClient(DefaultTimeout)

// NewClient builds a client for talking to one camera server. A zero
// timeout removes the overall deadline, which long-lived streaming
// responses need; the dialer limits still apply.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   connectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			// One server, sequential polls. A few idle connections
			// cover a stream running next to the poll loop.
			MaxIdleConns:        8,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     idleConnTimeout,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}
}
