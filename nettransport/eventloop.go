package nettransport

import (
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/vallucodes/webserver-sub000/config"
	"github.com/vallucodes/webserver-sub000/request"
)

// Dispatcher routes a parsed request to a handler and returns its
// response. It is supplied by the caller so nettransport never imports
// the handlers package directly (handlers is the higher-level consumer
// of router+nettransport, not a dependency of either).
type Dispatcher func(group *config.Group, req *request.Request) *request.Response

// ErrorRenderer renders the virtual server's configured or default
// error page for a status code the event loop itself must produce --
// framing failures and parse failures -- before any Dispatcher call
// happens, via the same lookup handlers.ErrorResponse uses for every
// other error response (spec.md §7: every error code "produced the
// same way").
type ErrorRenderer func(vs *config.VirtualServer, code int) *request.Response

const (
	pollTimeoutMillis = 100
	receiveIdleLimit  = 2000 * time.Second
	sendIdleLimit     = 10 * time.Second
	maxClientsCap     = 900
)

// EventLoop is the single-threaded readiness poller wiring every
// listener and connection together (spec.md §4.9).
type EventLoop struct {
	log         *zap.Logger
	listeners   []*boundListener
	conns       map[int]*ConnectionBuffer
	dispatch    Dispatcher
	renderError ErrorRenderer
	maxClients  int
}

type boundListener struct {
	ln    *Listener
	group *config.Group
}

// NewEventLoop wires one Listener per listener group in cluster.
func NewEventLoop(cluster *config.Cluster, dispatch Dispatcher, renderError ErrorRenderer, log *zap.Logger) (*EventLoop, error) {
	el := &EventLoop{log: log, conns: make(map[int]*ConnectionBuffer), dispatch: dispatch, renderError: renderError, maxClients: computeMaxClients()}

	for _, g := range cluster.Groups {
		ln, err := Listen(g.Key.Addr, g.Key.Port)
		if err != nil {
			for _, bl := range el.listeners {
				bl.ln.Close()
			}
			return nil, err
		}
		el.listeners = append(el.listeners, &boundListener{ln: ln, group: g})
	}
	return el, nil
}

// computeMaxClients implements max_clients = min(900, rlimit_nofile - 100)
// from spec.md §4.9.
func computeMaxClients() int {
	var rl syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rl); err != nil {
		return maxClientsCap
	}
	n := int(rl.Cur) - 100
	if n > maxClientsCap {
		return maxClientsCap
	}
	if n < 1 {
		return 1
	}
	return n
}

// Run polls forever until stop is closed.
func (el *EventLoop) Run(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			el.closeAll()
			return nil
		default:
		}

		fds := el.buildPollSet()
		n, err := unix.Poll(fds, pollTimeoutMillis)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}

		if n > 0 {
			el.handleReady(fds)
		}
		el.sweepTimeouts()
	}
}

func (el *EventLoop) buildPollSet() []unix.PollFd {
	fds := make([]unix.PollFd, 0, len(el.listeners)+len(el.conns))
	for _, bl := range el.listeners {
		fds = append(fds, unix.PollFd{Fd: int32(bl.ln.FD), Events: unix.POLLIN})
	}
	for fd, c := range el.conns {
		var events int16 = unix.POLLIN
		if len(c.Outbound) > 0 {
			events |= unix.POLLOUT
		}
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: events})
	}
	return fds
}

func (el *EventLoop) handleReady(fds []unix.PollFd) {
	listenerSet := make(map[int]*boundListener, len(el.listeners))
	for _, bl := range el.listeners {
		listenerSet[bl.ln.FD] = bl
	}

	for _, pfd := range fds {
		fd := int(pfd.Fd)
		if pfd.Revents == 0 {
			continue
		}

		if bl, ok := listenerSet[fd]; ok {
			if pfd.Revents&unix.POLLIN != 0 {
				el.acceptOne(bl)
			}
			continue
		}

		c, ok := el.conns[fd]
		if !ok {
			continue
		}
		if pfd.Revents&(unix.POLLHUP|unix.POLLERR) != 0 {
			el.dropConnection(c, "peer_closed")
			continue
		}
		if pfd.Revents&unix.POLLIN != 0 {
			el.handleReadable(c)
		}
		if c.State != StateClosed && pfd.Revents&unix.POLLOUT != 0 {
			el.handleWritable(c)
		}
	}
}

func (el *EventLoop) acceptOne(bl *boundListener) {
	if len(el.conns) >= el.maxClients {
		return
	}
	fd, remote, ok, err := bl.ln.Accept()
	if err != nil {
		el.log.Error("accept failed", zap.Error(err), zap.String("listener", bl.ln.Addr))
		return
	}
	if !ok {
		return
	}
	c := NewConnectionBuffer(fd, remote, bl.group, receiveIdleLimit)
	el.conns[fd] = c
	el.log.Debug("connection accepted", zap.String("id", c.ID), zap.String("remote", remote))
}

func (el *EventLoop) handleReadable(c *ConnectionBuffer) {
	buf := make([]byte, 64*1024)
	n, err := unix.Read(c.FD, buf)
	if n == 0 || (err != nil && err != unix.EAGAIN) {
		el.dropConnection(c, "client_disconnect")
		return
	}
	if err == unix.EAGAIN {
		return
	}

	c.Inbound = append(c.Inbound, buf[:n]...)
	c.ReceiveDeadline = time.Now().Add(receiveIdleLimit)

	for el.frameOnePending(c) {
	}
}

func (el *EventLoop) frameOnePending(c *ConnectionBuffer) bool {
	result := FrameOne(c.Inbound, c.ResolveMaxBody)
	switch result.Status {
	case FrameNeedMore:
		return false
	case FrameTooLarge:
		vs := c.VirtualServer(extractHostHeader(result.Headers))
		el.respondAndClose(c, el.renderError(vs, 413))
		return false
	case FrameInvalid:
		vs := c.VirtualServer(extractHostHeader(result.Headers))
		el.respondAndClose(c, el.renderError(vs, 400))
		return false
	case FrameBufferBlown, FrameBodyTooLarge:
		c.DataValid = false
		el.dropConnection(c, "malformed_request")
		return false
	}

	c.State = StateFramed
	raw := result.Raw
	c.Inbound = c.Inbound[result.Consumed:]

	req := request.Parse(raw)
	req.RemoteAddr = c.RemoteAddr
	c.State = StateParsed

	var resp *request.Response
	if req.IsError {
		resp = el.renderError(c.VirtualServer(""), 400)
		c.KeepAlive = false
	} else {
		resp = el.dispatch(c.Group, req)
		c.KeepAlive = !req.ConnectionClose
	}
	c.State = StateDispatched

	el.queueResponse(c, resp)
	return len(c.Inbound) > 0
}

func (el *EventLoop) queueResponse(c *ConnectionBuffer, resp *request.Response) {
	resp.Headers.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	if c.KeepAlive {
		resp.Headers.Set("Connection", "keep-alive")
	} else {
		resp.Headers.Set("Connection", "close")
	}

	c.Outbound = append(c.Outbound, resp.Bytes()...)
	c.PendingRequests++
	c.SendDeadline = time.Now().Add(sendIdleLimit)
	if c.KeepAlive {
		c.State = StateSending
	} else {
		c.State = StateDraining
	}
}

func (el *EventLoop) respondAndClose(c *ConnectionBuffer, resp *request.Response) {
	c.KeepAlive = false
	el.queueResponse(c, resp)
}

func (el *EventLoop) handleWritable(c *ConnectionBuffer) {
	if len(c.Outbound) == 0 {
		return
	}
	chunk := c.Outbound
	if len(chunk) > MaxResponseSize {
		chunk = chunk[:MaxResponseSize]
	}
	n, err := unix.Write(c.FD, chunk)
	if err != nil && err != unix.EAGAIN {
		el.dropConnection(c, "send_error")
		return
	}
	if n > 0 {
		c.Outbound = c.Outbound[n:]
	}

	if len(c.Outbound) == 0 {
		c.SendDeadline = time.Time{}
		c.PendingRequests = 0
		if !c.KeepAlive || !c.DataValid {
			el.dropConnection(c, "response_complete")
			return
		}
		c.Reset()
	}
}

func (el *EventLoop) sweepTimeouts() {
	now := time.Now()
	for _, c := range el.conns {
		if len(c.Inbound) > 0 && !c.ReceiveDeadline.IsZero() && now.After(c.ReceiveDeadline) {
			el.dropConnection(c, "client_timeout")
			continue
		}
		if len(c.Outbound) > 0 && !c.SendDeadline.IsZero() && now.After(c.SendDeadline) {
			el.dropConnection(c, "client_timeout")
		}
	}
}

func (el *EventLoop) dropConnection(c *ConnectionBuffer, reason string) {
	c.State = StateClosed
	unix.Close(c.FD)
	delete(el.conns, c.FD)
	el.log.Debug("connection dropped", zap.String("id", c.ID), zap.String("reason", reason))
}

func (el *EventLoop) closeAll() {
	for _, c := range el.conns {
		unix.Close(c.FD)
	}
	for _, bl := range el.listeners {
		bl.ln.Close()
	}
}

