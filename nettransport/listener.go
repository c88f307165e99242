package nettransport

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Listener wraps a single raw, non-blocking IPv4 listening socket bound to
// one (address, port) pair. The event loop polls its file descriptor
// alongside every connection it accepts; there is no net.Listener here
// because Accept must never block the single process thread.
type Listener struct {
	FD   int
	Addr string
	Port int
}

// Listen creates, binds and starts listening on a non-blocking TCP socket,
// grounded on the SO_REUSEADDR/SO_REUSEPORT setup used when the caddy
// package brings up a raw socket for reuse across restarts.
func Listen(addr string, port int) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set nonblocking: %w", err)
	}

	sa := &unix.SockaddrInet4{Port: port}
	ip, err := parseIPv4(addr)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	sa.Addr = ip

	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s:%d: %w", addr, port, err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s:%d: %w", addr, port, err)
	}

	return &Listener{FD: fd, Addr: addr, Port: port}, nil
}

// Accept returns the fd and peer address of one pending connection, or
// ok=false if EAGAIN/EWOULDBLOCK indicates nothing is pending right now --
// the normal case when the listener's readiness turned out to be stale by
// the time Accept ran.
func (l *Listener) Accept() (fd int, remoteAddr string, ok bool, err error) {
	nfd, sa, err := unix.Accept(l.FD)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, "", false, nil
		}
		return 0, "", false, err
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return 0, "", false, err
	}
	if in4, isV4 := sa.(*unix.SockaddrInet4); isV4 {
		remoteAddr = fmt.Sprintf("%d.%d.%d.%d:%d", in4.Addr[0], in4.Addr[1], in4.Addr[2], in4.Addr[3], in4.Port)
	}
	return nfd, remoteAddr, true, nil
}

func (l *Listener) Close() error {
	return unix.Close(l.FD)
}

func parseIPv4(addr string) (out [4]byte, err error) {
	if addr == "" || addr == "0.0.0.0" {
		return [4]byte{0, 0, 0, 0}, nil
	}
	var a, b, c, d int
	n, scanErr := fmt.Sscanf(addr, "%d.%d.%d.%d", &a, &b, &c, &d)
	if scanErr != nil || n != 4 {
		return out, fmt.Errorf("invalid IPv4 bind address %q", addr)
	}
	for _, v := range []int{a, b, c, d} {
		if v < 0 || v > 255 {
			return out, fmt.Errorf("invalid IPv4 bind address %q", addr)
		}
	}
	return [4]byte{byte(a), byte(b), byte(c), byte(d)}, nil
}
