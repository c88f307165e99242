package nettransport

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vallucodes/webserver-sub000/config"
)

// State is a connection's position in its receive/respond lifecycle
// (spec.md §4.9): Receiving -> Framed -> Parsed -> Dispatched -> Sending
// -> Draining -> Closed. A connection with pipelined requests cycles
// Receiving -> Sending repeatedly before Draining.
type State int

const (
	StateReceiving State = iota
	StateFramed
	StateParsed
	StateDispatched
	StateSending
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReceiving:
		return "receiving"
	case StateFramed:
		return "framed"
	case StateParsed:
		return "parsed"
	case StateDispatched:
		return "dispatched"
	case StateSending:
		return "sending"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionBuffer is the per-connection state the event loop owns. It
// never owns the listener group it references -- the Cluster built at
// startup owns every VirtualServer for the life of the process.
type ConnectionBuffer struct {
	ID         string
	FD         int
	RemoteAddr string
	Group      *config.Group

	Inbound  []byte
	Outbound []byte

	State State

	ReceiveDeadline time.Time
	SendDeadline    time.Time

	DataValid bool // false once framing fails unrecoverably; connection is torn down without a response
	KeepAlive bool

	// PendingRequests counts fully framed requests not yet written out,
	// so pipelined responses are flushed in the order they were received
	// (spec.md §4.9).
	PendingRequests int
}

// NewConnectionBuffer wraps a freshly accepted fd.
func NewConnectionBuffer(fd int, remoteAddr string, group *config.Group, idleTimeout time.Duration) *ConnectionBuffer {
	return &ConnectionBuffer{
		ID:              uuid.NewString(),
		FD:              fd,
		RemoteAddr:      remoteAddr,
		Group:           group,
		State:           StateReceiving,
		DataValid:       true,
		KeepAlive:       true,
		ReceiveDeadline: time.Now().Add(idleTimeout),
	}
}

// ResolveMaxBody returns the client_max_body_size that applies given the
// request's Host header, falling back to the listener group's default
// virtual server when host is empty or unmatched (spec.md §4.4 step 3).
func (c *ConnectionBuffer) ResolveMaxBody(host string) int64 {
	vs := c.VirtualServer(host)
	if vs == nil {
		return MaxBufferSize
	}
	return vs.ClientMaxBodySize
}

// VirtualServer resolves host (stripped of any :port suffix, matching
// router.SelectVirtualServer) against the group's server_names, falling
// back to the group's default when host is empty or unmatched.
func (c *ConnectionBuffer) VirtualServer(host string) *config.VirtualServer {
	if idx := strings.IndexByte(host, ':'); idx >= 0 {
		host = host[:idx]
	}
	vs := c.Group.ByName(host)
	if vs == nil {
		vs = c.Group.Default()
	}
	return vs
}

// Reset prepares the buffer to frame the next pipelined request after one
// has been fully dispatched and queued for send.
func (c *ConnectionBuffer) Reset() {
	c.State = StateReceiving
}
