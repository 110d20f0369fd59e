package trust

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/crypto/ssh"
)

// KeyscanFunc actively probes a host and returns the public key it presents
// during an SSH handshake. addr may carry an explicit port; 22 is assumed
// otherwise.
type KeyscanFunc func(ctx context.Context, addr string) (ssh.PublicKey, error)

// Keyscan is the default KeyscanFunc. It opens a TCP connection and runs the
// SSH handshake far enough to capture the host key, then drops the
// connection. No authentication is attempted.
func Keyscan(ctx context.Context, addr string) (ssh.PublicKey, error) {
	target := hostAddr(addr)

	var captured ssh.PublicKey

	config := &ssh.ClientConfig{
		User: "keyscan",
		HostKeyCallback: func(_ string, _ net.Addr, key ssh.PublicKey) error {
			captured = key

			return nil
		},
	}

	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, err
	}

	defer func() { _ = conn.Close() }()

	// The handshake honors the caller's deadline through the socket.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	// The handshake fails at the authentication step (no methods offered),
	// but the host key callback has already run by then.
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, target, config)
	if err == nil {
		_ = ssh.NewClient(sshConn, chans, reqs).Close()
	}

	if captured == nil {
		if err != nil {
			return nil, err
		}

		return nil, fmt.Errorf("host %s presented no key", target)
	}

	return captured, nil
}

// hostAddr returns addr with an explicit port, defaulting to 22.
func hostAddr(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}

	return net.JoinHostPort(addr, "22")
}
