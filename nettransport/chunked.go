package nettransport

import (
	"bytes"
	"strconv"
	"strings"
)

// decodeChunked decodes a Transfer-Encoding: chunked body starting right
// after the header terminator, per spec.md §4.4.1. It returns the
// decoded body and the number of input bytes consumed once complete.
// FrameNeedMore means data is incomplete and the caller must wait for
// more bytes without consuming anything; FrameInvalid means the encoding
// itself is malformed (bad hex chunk-size line); FrameBodyTooLarge means
// the decoded body has exceeded maxBody, which spec.md §4.4.1 treats as
// an unrecoverable framing failure (the connection is dropped, not sent
// a 413 -- that status is reserved for the Content-Length case).
func decodeChunked(data []byte, maxBody int64) (body []byte, consumed int, status FrameStatus) {
	pos := 0
	for {
		lfRel := bytes.IndexByte(data[pos:], '\n')
		if lfRel == -1 {
			return nil, 0, FrameNeedMore
		}
		lf := pos + lfRel
		contentEnd := lf
		if contentEnd > pos && data[contentEnd-1] == '\r' {
			contentEnd--
		}

		sizeText := strings.TrimSpace(string(data[pos:contentEnd]))
		// chunk extensions (";name=value") are permitted by RFC 7230 but
		// this grammar has no use for them; strip before parsing the size.
		if semi := strings.IndexByte(sizeText, ';'); semi >= 0 {
			sizeText = sizeText[:semi]
		}
		n, err := strconv.ParseInt(sizeText, 16, 64)
		if err != nil || n < 0 {
			return nil, 0, FrameInvalid
		}
		afterLine := lf + 1

		if n == 0 {
			termRel := bytes.Index(data[contentEnd:], []byte("\r\n\r\n"))
			if termRel == -1 {
				return nil, 0, FrameNeedMore
			}
			consumed = contentEnd + termRel + 4
			return body, consumed, FrameOK
		}

		need := int(n) + 2 // chunk octets plus their trailing CRLF
		if len(data)-afterLine < need {
			return nil, 0, FrameNeedMore
		}
		body = append(body, data[afterLine:afterLine+int(n)]...)
		if int64(len(body)) > maxBody {
			return nil, 0, FrameBodyTooLarge
		}
		pos = afterLine + need
	}
}
