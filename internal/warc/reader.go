package warc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrMalformed is wrapped by every error caused by archive content rather
// than by the underlying stream.
var ErrMalformed = errors.New("malformed WARC record")

// countingReader counts the bytes pulled from the underlying stream.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Reader iterates over the records of a WARC stream in order.
//
// Plain and record-at-a-time gzip archives are supported. Offsets and lengths
// are positions in the stream as given, so for gzip archives they describe
// compressed members rather than decompressed content.
type Reader struct {
	src        *countingReader
	br         *bufio.Reader
	compressed bool

	gz  *gzip.Reader
	dec *bufio.Reader
}

// NewReader returns a Reader over r. Gzip compression is detected from the
// first two bytes of the stream.
func NewReader(r io.Reader) (*Reader, error) {
	src := &countingReader{r: r}
	br := bufio.NewReader(src)

	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading archive: %w", err)
	}

	return &Reader{
		src:        src,
		br:         br,
		compressed: len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b,
	}, nil
}

// Compressed reports whether the stream is gzip compressed.
func (r *Reader) Compressed() bool {
	return r.compressed
}

// pos is the number of stream bytes consumed so far. The gzip decompressor
// reads byte-at-a-time from br, so nothing past a member end is consumed.
func (r *Reader) pos() int64 {
	return r.src.n - int64(r.br.Buffered())
}

// Next returns the next record, or io.EOF when the archive is exhausted.
func (r *Reader) Next() (*Record, error) {
	if r.compressed {
		return r.nextMember()
	}
	return r.nextPlain()
}

func (r *Reader) nextPlain() (*Record, error) {
	if err := skipBlankLines(r.br); err != nil {
		return nil, err
	}
	offset := r.pos()

	version, header, err := readEnvelope(r.br)
	if err != nil {
		return nil, fmt.Errorf("%w at offset %d: %w", ErrMalformed, offset, err)
	}

	size, ok, err := blockSize(header)
	if err != nil {
		return nil, fmt.Errorf("%w at offset %d: %w", ErrMalformed, offset, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w at offset %d: missing Content-Length", ErrMalformed, offset)
	}

	block, err := readBlock(r.br, size)
	if err != nil {
		return nil, fmt.Errorf("%w at offset %d: %w", ErrMalformed, offset, err)
	}
	skipTrailer(r.br)

	return newRecord(version, header, block, offset, r.pos()-offset)
}

func (r *Reader) nextMember() (*Record, error) {
	for {
		if _, err := r.br.Peek(1); err != nil {
			return nil, err
		}
		offset := r.pos()

		if err := r.resetMember(); err != nil {
			return nil, fmt.Errorf("%w: gzip member at offset %d: %w", ErrMalformed, offset, err)
		}

		if err := skipBlankLines(r.dec); err != nil {
			if errors.Is(err, io.EOF) {
				// Empty member, nothing to report.
				continue
			}
			return nil, fmt.Errorf("%w: gzip member at offset %d: %w", ErrMalformed, offset, err)
		}

		version, header, err := readEnvelope(r.dec)
		if err != nil {
			return nil, fmt.Errorf("%w at offset %d: %w", ErrMalformed, offset, err)
		}

		size, ok, err := blockSize(header)
		if err != nil {
			return nil, fmt.Errorf("%w at offset %d: %w", ErrMalformed, offset, err)
		}

		var block []byte
		if ok {
			block, err = readBlock(r.dec, size)
		} else {
			block, err = io.ReadAll(r.dec)
		}
		if err != nil {
			return nil, fmt.Errorf("%w at offset %d: %w", ErrMalformed, offset, err)
		}
		skipTrailer(r.dec)

		// Reading to EOF also consumes and verifies the gzip trailer.
		if err := skipBlankLines(r.dec); !errors.Is(err, io.EOF) {
			if err != nil {
				return nil, fmt.Errorf("%w: gzip member at offset %d: %w", ErrMalformed, offset, err)
			}
			return nil, fmt.Errorf("%w: gzip member at offset %d holds more than one record", ErrMalformed, offset)
		}

		return newRecord(version, header, block, offset, r.pos()-offset)
	}
}

func (r *Reader) resetMember() error {
	if r.gz == nil {
		gz, err := gzip.NewReader(r.br)
		if err != nil {
			return err
		}
		r.gz = gz
	} else if err := r.gz.Reset(r.br); err != nil {
		return err
	}
	r.gz.Multistream(false)

	if r.dec == nil {
		r.dec = bufio.NewReader(r.gz)
	} else {
		r.dec.Reset(r.gz)
	}
	return nil
}

// readEnvelope reads the version line and the WARC header block.
func readEnvelope(br *bufio.Reader) (string, Header, error) {
	version, err := readLine(br)
	if err != nil {
		return "", nil, fmt.Errorf("reading version line: %w", err)
	}
	if !strings.HasPrefix(version, "WARC/") {
		return "", nil, fmt.Errorf("invalid version line %q", version)
	}

	header, err := readHeader(br, false)
	if err != nil {
		return "", nil, fmt.Errorf("reading WARC header: %w", err)
	}
	return version, header, nil
}

func blockSize(h Header) (int64, bool, error) {
	v, ok := h.Get("Content-Length")
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("invalid Content-Length %q", v)
	}
	return n, true, nil
}

func readBlock(r io.Reader, size int64) ([]byte, error) {
	block := make([]byte, size)
	if _, err := io.ReadFull(r, block); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("reading content block: %w", err)
	}
	return block, nil
}

// skipBlankLines consumes CR and LF bytes. It returns io.EOF when the stream
// ends before any other byte.
func skipBlankLines(br *bufio.Reader) error {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return err
		}
		if b[0] != '\r' && b[0] != '\n' {
			return nil
		}
		if _, err := br.ReadByte(); err != nil {
			return err
		}
	}
}

// skipTrailer consumes up to the two line endings that close a record.
func skipTrailer(br *bufio.Reader) {
	for range 2 {
		b, err := br.Peek(1)
		if err != nil {
			return
		}
		switch b[0] {
		case '\r':
			br.ReadByte()
			if b, err := br.Peek(1); err == nil && b[0] == '\n' {
				br.ReadByte()
			}
		case '\n':
			br.ReadByte()
		default:
			return
		}
	}
}
