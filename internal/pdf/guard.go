package pdf

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// ErrPrivateNetwork is returned when a URL targets a loopback, private or
// otherwise non-routable address, or uses a scheme other than http(s).
var ErrPrivateNetwork = errors.New("pdf: request to private network denied")

// IsPrivateIP reports whether ip is loopback, private (RFC 1918 / RFC 4193),
// link-local, unspecified or multicast.
func IsPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified()
}

// checkScheme rejects everything but absolute http and https URLs.
func checkScheme(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrivateNetwork, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: scheme %q is not allowed", ErrPrivateNetwork, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrPrivateNetwork)
	}
	return u, nil
}

// guardedTransport returns a transport whose dialer refuses private
// addresses. The check runs on the resolved address of every connection,
// redirects included.
func guardedTransport(timeout time.Duration) *http.Transport {
	dialer := &net.Dialer{
		Timeout: timeout,
		Control: func(network, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrPrivateNetwork, err)
			}
			if ip := net.ParseIP(host); ip == nil || IsPrivateIP(ip) {
				return fmt.Errorf("%w: %s", ErrPrivateNetwork, host)
			}
			return nil
		},
	}
	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
	}
}
