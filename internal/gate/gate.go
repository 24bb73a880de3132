// Package gate decides whether a host is eligible for assessment at all.
// Hosts without an open HTTPS port are recorded with a placeholder result
// and never consume remote assessment quota.
package gate

import (
	"context"
	"net"
	"strconv"
	"time"
)

// DefaultTimeout bounds the reachability probe.
const DefaultTimeout = 4 * time.Second

// DefaultPort is the standard HTTPS port.
const DefaultPort = 443

// Prober performs a bounded TCP connect to the HTTPS port. A successful
// connect is closed immediately; any error (refusal, timeout, DNS failure)
// marks the host unreachable.
type Prober struct {
	Timeout time.Duration
	Port    int
}

// IsReachable reports whether host accepts a TCP connection on the HTTPS port
// within the probe timeout.
func (p *Prober) IsReachable(ctx context.Context, host string) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	port := p.Port
	if port == 0 {
		port = DefaultPort
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
