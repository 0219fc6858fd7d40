// Package probe provides the connection-layer target prober.
package probe

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/avalette/credgate/internal/domain/model"
	"github.com/avalette/credgate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TargetProber = (*TCPProber)(nil)

// TCPProber checks target reachability by dialing the host:port embedded in
// the target's connect URL. It verifies the connection layer only; credential
// verification belongs to the management protocol handshake, which other
// prober implementations may add.
type TCPProber struct {
	timeout time.Duration
}

// NewTCPProber creates a TCPProber with the given per-probe dial timeout.
func NewTCPProber(timeout time.Duration) *TCPProber {
	return &TCPProber{timeout: timeout}
}

// Probe dials the target's endpoint. Failures come back as
// *model.ConnectionError so the request gate can classify them.
func (p *TCPProber) Probe(ctx context.Context, target model.Target, _ *model.Credential) error {
	addr, err := endpointAddr(target.ConnectURL)
	if err != nil {
		return &model.ConnectionError{Cause: err}
	}

	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &model.ConnectionError{Cause: err}
	}
	_ = conn.Close()

	return nil
}

// hostPortPattern captures host:port pairs embedded in opaque service URLs,
// e.g. the rmi endpoint inside "service:jmx:rmi:///jndi/rmi://host:9091/jmxrmi".
var hostPortPattern = regexp.MustCompile(`//([^/@:\s]+):(\d+)`)

// endpointAddr extracts the dialable host:port from a connect URL. Supports
// opaque JMX-style service URLs, ordinary URLs with an explicit port, and
// bare host:port strings.
func endpointAddr(connectURL string) (string, error) {
	if strings.HasPrefix(connectURL, "service:") {
		matches := hostPortPattern.FindAllStringSubmatch(connectURL, -1)
		if len(matches) == 0 {
			return "", fmt.Errorf("no host:port in service url %q", connectURL)
		}
		// The last pair is the actual endpoint; earlier ones name protocol stubs.
		last := matches[len(matches)-1]
		return net.JoinHostPort(last[1], last[2]), nil
	}

	if u, err := url.Parse(connectURL); err == nil && u.Host != "" {
		if u.Port() == "" {
			return "", fmt.Errorf("no port in url %q", connectURL)
		}
		return net.JoinHostPort(u.Hostname(), u.Port()), nil
	}

	if host, port, err := net.SplitHostPort(connectURL); err == nil {
		return net.JoinHostPort(host, port), nil
	}

	return "", fmt.Errorf("unparseable connect url %q", connectURL)
}
