package warc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Field is a single header line, with the name as it appeared on the wire.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered list of header fields. Names keep their original case
// and duplicates are preserved.
type Header []Field

// Get returns the value of the first field whose name matches name
// case-insensitively, and whether such a field exists.
func (h Header) Get(name string) (string, bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// readLine reads one line and strips the CRLF or LF terminator.
// A final line without a terminator is returned with a nil error.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r"), nil
		}
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// readHeader reads "Name: value" lines up to and including the blank line
// that ends the block. Lines starting with space or tab continue the previous
// field.
//
// A WARC header must be well formed. In an embedded HTTP header EOF ends the
// block and lines that are not fields are dropped.
func readHeader(br *bufio.Reader, embedded bool) (Header, error) {
	var h Header
	for {
		line, err := readLine(br)
		if err != nil {
			if errors.Is(err, io.EOF) && embedded {
				return h, nil
			}
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("header block not terminated: %w", io.ErrUnexpectedEOF)
			}
			return nil, err
		}
		if line == "" {
			return h, nil
		}

		if line[0] == ' ' || line[0] == '\t' {
			if len(h) == 0 {
				if embedded {
					continue
				}
				return nil, fmt.Errorf("continuation line without a preceding field: %q", line)
			}
			last := &h[len(h)-1]
			last.Value = strings.TrimSpace(last.Value + " " + strings.TrimSpace(line))
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			if embedded {
				continue
			}
			return nil, fmt.Errorf("malformed header line: %q", line)
		}
		h = append(h, Field{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}
}
