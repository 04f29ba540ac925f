package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

// probeTimeout bounds ProbeProxy when ctx carries no earlier deadline.
const probeTimeout = 2 * time.Second

// SOCKS5 greeting bytes.
const (
	socks5Version  = 0x05
	socks5AuthNone = 0x00
)

// ProbeProxy checks that a SOCKS5 proxy at address accepts unauthenticated
// clients. Only the method negotiation is performed; no CONNECT is sent.
func ProbeProxy(ctx context.Context, address string) error {
	if !IsValidProxyAddress(address) {
		return fmt.Errorf("%w: %q", ErrInvalidProxyAddress, address)
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrProxyUnreachable, address, err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("%w %s: %w", ErrProxyUnreachable, address, err)
	}

	// version, one method offered, "no authentication"
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return fmt.Errorf("%w %s: %w", ErrProxyUnreachable, address, err)
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyNotSOCKS5, err)
	}
	if resp[0] != socks5Version || resp[1] != socks5AuthNone {
		return fmt.Errorf("%w: got %#x %#x", ErrProxyNotSOCKS5, resp[0], resp[1])
	}
	return nil
}
