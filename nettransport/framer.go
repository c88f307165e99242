package nettransport

import (
	"bytes"
	"strconv"
	"strings"
)

// Process-wide caps from spec.md §4.4.
const (
	MaxBufferSize   = 10 * 1024 * 1024 // 10 MiB
	MaxHeaderSize   = 8 * 1024         // 8 KiB
	MaxResponseSize = 64 * 1024        // 64 KiB per write
)

// FrameStatus is the outcome of one framing attempt.
type FrameStatus int

const (
	FrameNeedMore     FrameStatus = iota // wait for more bytes
	FrameOK                              // a complete request was extracted
	FrameInvalid                         // malformed framing -> 400, close
	FrameTooLarge                        // Content-Length exceeds the body cap -> 413, close
	FrameBodyTooLarge                    // chunked body exceeded the cap -> drop, no response
	FrameBufferBlown                     // inbound exceeded MaxBufferSize -> drop, no response
)

// FrameResult describes one framing attempt's outcome.
type FrameResult struct {
	Status   FrameStatus
	Raw      []byte // canonical "headers + body" bytes, ready for request.Parse
	Consumed int    // bytes to drop from the front of Inbound

	// Headers is the header block, once found, regardless of outcome --
	// it lets the caller recover the Host header for a 400/413 error
	// page even when no full request.Request is ever parsed.
	Headers []byte
}

// MaxBodyResolver looks up the client_max_body_size that applies to a
// request, given its Host header value (spec.md §4.4 step 3: "select
// the matching virtual server via the Host header and adopt its
// client_max_body_size"). It must tolerate an empty or unresolvable host
// by returning the listener group's default server's cap.
type MaxBodyResolver func(hostHeader string) int64

// FrameOne attempts to extract one complete request from the front of
// inbound. It never mutates inbound; the caller drops Result.Consumed
// bytes from the front once it has copied out Result.Raw.
func FrameOne(inbound []byte, resolveMaxBody MaxBodyResolver) FrameResult {
	if len(inbound) > MaxBufferSize {
		return FrameResult{Status: FrameBufferBlown}
	}

	headerEnd := bytes.Index(inbound, []byte("\r\n\r\n"))
	if headerEnd == -1 {
		if len(inbound) > MaxHeaderSize {
			return FrameResult{Status: FrameInvalid}
		}
		return FrameResult{Status: FrameNeedMore}
	}
	if headerEnd > MaxHeaderSize {
		return FrameResult{Status: FrameInvalid}
	}

	headerBytes := inbound[:headerEnd]
	maxBody := resolveMaxBody(extractHostHeader(headerBytes))

	if isChunked(headerBytes) {
		// Content-Length alongside chunked Transfer-Encoding is a
		// protocol error, but request.Parse already rejects that
		// combination with a 400 -- so the request is still framed
		// (using the chunked decode) rather than dropped here, letting
		// the parser produce the error response instead of a silent close.
		body, consumedBody, status := decodeChunked(inbound[headerEnd+4:], maxBody)
		switch status {
		case FrameNeedMore:
			return FrameResult{Status: FrameNeedMore}
		case FrameInvalid, FrameBodyTooLarge:
			return FrameResult{Status: status, Headers: headerBytes}
		default:
			raw := make([]byte, 0, len(headerBytes)+4+len(body))
			raw = append(raw, headerBytes...)
			raw = append(raw, '\r', '\n', '\r', '\n')
			raw = append(raw, body...)
			return FrameResult{Status: FrameOK, Raw: raw, Consumed: headerEnd + 4 + consumedBody, Headers: headerBytes}
		}
	}

	if n, ok := contentLength(headerBytes); ok {
		if n > maxBody {
			return FrameResult{Status: FrameTooLarge, Headers: headerBytes}
		}
		total := headerEnd + 4 + int(n)
		if len(inbound) < total {
			return FrameResult{Status: FrameNeedMore}
		}
		return FrameResult{Status: FrameOK, Raw: inbound[:total], Consumed: total, Headers: headerBytes}
	}

	// no body: the request ends at the header terminator
	return FrameResult{Status: FrameOK, Raw: inbound[:headerEnd+4], Consumed: headerEnd + 4, Headers: headerBytes}
}

func extractHostHeader(headerBytes []byte) string {
	for _, line := range strings.Split(string(headerBytes), "\r\n") {
		name, val, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "host") {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

func isChunked(headerBytes []byte) bool {
	for _, line := range strings.Split(string(headerBytes), "\r\n") {
		name, val, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "transfer-encoding") {
			return strings.Contains(strings.ToLower(val), "chunked")
		}
	}
	return false
}

func contentLength(headerBytes []byte) (int64, bool) {
	for _, line := range strings.Split(string(headerBytes), "\r\n") {
		name, val, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "content-length") {
			n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
			if err != nil {
				return 0, false
			}
			return n, true
		}
	}
	return 0, false
}
