package warc

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http/httputil"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// HTTPMessage is the HTTP request or response embedded in a record.
type HTTPMessage struct {
	// StartLine is the status line of a response or the request line of a
	// request.
	StartLine string
	Header    Header
	Body      []byte

	status    int
	hasStatus bool
}

// StatusCode returns the response status. Requests have none, and neither
// does a response whose status line cannot be read.
func (m *HTTPMessage) StatusCode() (int, bool) {
	return m.status, m.hasStatus
}

func parseHTTP(recType string, block []byte) (*HTTPMessage, error) {
	br := bufio.NewReader(bytes.NewReader(block))

	start, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("reading start line: %w", err)
	}
	msg := &HTTPMessage{StartLine: start}

	if recType != TypeRequest {
		msg.status, msg.hasStatus = parseStatusLine(start)
	}

	// Revisit records may stop right after the header block.
	msg.Header, err = readHeader(br, true)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	msg.Body = decodeBody(msg.Header, body)

	return msg, nil
}

func parseStatusLine(line string) (int, bool) {
	proto, rest, _ := strings.Cut(line, " ")
	if !strings.HasPrefix(proto, "HTTP/") {
		return 0, false
	}
	code, _, _ := strings.Cut(strings.TrimSpace(rest), " ")
	n, err := strconv.Atoi(code)
	if err != nil || n < 100 || n > 999 {
		return 0, false
	}
	return n, true
}

// decodeBody undoes chunked transfer coding and content coding. Whatever
// cannot be decoded is kept as captured.
func decodeBody(h Header, body []byte) []byte {
	if te, ok := h.Get("Transfer-Encoding"); ok && strings.Contains(strings.ToLower(te), "chunked") {
		if out, err := io.ReadAll(httputil.NewChunkedReader(bytes.NewReader(body))); err == nil {
			body = out
		}
	}

	ce, ok := h.Get("Content-Encoding")
	if !ok || len(body) == 0 {
		return body
	}
	if out, err := decodeContent(strings.ToLower(strings.TrimSpace(ce)), body); err == nil {
		return out
	}
	return body
}

func decodeContent(coding string, body []byte) ([]byte, error) {
	switch coding {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case "deflate":
		// Servers send either zlib-wrapped or raw deflate.
		if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
			defer zr.Close()
			if out, err := io.ReadAll(zr); err == nil {
				return out, nil
			}
		}
		fr := flate.NewReader(bytes.NewReader(body))
		defer fr.Close()
		return io.ReadAll(fr)
	case "br":
		return io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
	case "identity":
		return body, nil
	default:
		return nil, fmt.Errorf("unsupported content coding %q", coding)
	}
}
