package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ErrProtocol reports a malformed block header.
var ErrProtocol = errors.New("decode: protocol error")

// initialPayloadCap caps the buffer reserved before any payload arrives.
const initialPayloadCap = 64 << 10

// maxLengthDigits bounds the header length field (IEEE-488.2 allows 1..9).
const maxLengthDigits = 9

// Block is a received definite-length payload.
type Block struct {
	Declared int    // length announced by the header
	Data     []byte // payload bytes actually received
}

// Received returns the number of payload bytes that arrived.
func (b Block) Received() int { return len(b.Data) }

// Short reports whether fewer bytes arrived than the header announced.
func (b Block) Short() bool { return len(b.Data) < b.Declared }

// ReadBlock reads one definite-length block from r.
//
// Leading whitespace before '#' is skipped. A stream that ends inside the
// payload, or times out after part of it arrived, yields a short Block and
// no error.
func ReadBlock(r io.Reader) (Block, error) {
	br, ok := r.(byteReader)
	if !ok {
		br = &unbufferedReader{r: r}
	}

	lead, err := skipSpace(br)
	if err != nil {
		return Block{}, fmt.Errorf("%w: reading header: %w", ErrProtocol, err)
	}

	if lead != '#' {
		return Block{}, fmt.Errorf("%w: expected '#', got %q", ErrProtocol, lead)
	}

	nd, err := br.ReadByte()
	if err != nil {
		return Block{}, fmt.Errorf("%w: reading length digit count: %w", ErrProtocol, err)
	}

	n, err := digitCount(nd)
	if err != nil {
		return Block{}, err
	}

	field := make([]byte, n)
	for i := range field {
		field[i], err = br.ReadByte()
		if err != nil {
			return Block{}, fmt.Errorf("%w: reading length field: %w", ErrProtocol, err)
		}
	}

	declared, err := parseLength(field)
	if err != nil {
		return Block{}, err
	}

	// The header is untrusted; grow with the data instead of allocating the
	// declared length up front.
	var buf bytes.Buffer
	buf.Grow(min(declared, initialPayloadCap))

	_, err = io.CopyN(&buf, br, int64(declared))

	b := Block{Declared: declared, Data: buf.Bytes()}
	if err != nil && !errors.Is(err, io.EOF) && !(isTimeout(err) && buf.Len() > 0) {
		return b, fmt.Errorf("decode: reading payload: %w", err)
	}

	return b, nil
}

// isTimeout reports read deadline expiry, as returned by net.Conn.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var te interface{ Timeout() bool }

	return errors.As(err, &te) && te.Timeout()
}

// ParseBlock parses a block held in memory. Bytes after the payload are
// ignored.
func ParseBlock(b []byte) (Block, error) {
	i := 0
	for i < len(b) && isSpace(b[i]) {
		i++
	}

	if i >= len(b) || b[i] != '#' {
		return Block{}, fmt.Errorf("%w: expected '#'", ErrProtocol)
	}

	i++
	if i >= len(b) {
		return Block{}, fmt.Errorf("%w: missing length digit count", ErrProtocol)
	}

	n, err := digitCount(b[i])
	if err != nil {
		return Block{}, err
	}

	i++
	if i+n > len(b) {
		return Block{}, fmt.Errorf("%w: truncated length field", ErrProtocol)
	}

	declared, err := parseLength(b[i : i+n])
	if err != nil {
		return Block{}, err
	}

	i += n
	end := min(i+declared, len(b))

	return Block{Declared: declared, Data: append([]byte(nil), b[i:end]...)}, nil
}

// AppendBlock appends the definite-length framing of payload to dst.
func AppendBlock(dst, payload []byte) []byte {
	length := strconv.Itoa(len(payload))
	dst = append(dst, '#', byte('0'+len(length)))
	dst = append(dst, length...)

	return append(dst, payload...)
}

func digitCount(c byte) (int, error) {
	if c < '1' || c > '0'+maxLengthDigits {
		return 0, fmt.Errorf("%w: invalid length digit count %q", ErrProtocol, c)
	}

	return int(c - '0'), nil
}

func parseLength(field []byte) (int, error) {
	length := 0

	for _, c := range field {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: non-digit %q in length field", ErrProtocol, c)
		}

		length = length*10 + int(c-'0')
	}

	return length, nil
}

func skipSpace(br byteReader) (byte, error) {
	for {
		c, err := br.ReadByte()
		if err != nil {
			return 0, err
		}

		if !isSpace(c) {
			return c, nil
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

type byteReader interface {
	io.Reader
	io.ByteReader
}

// unbufferedReader reads the header byte by byte so nothing past the
// payload is consumed from the underlying stream.
type unbufferedReader struct {
	r   io.Reader
	buf [1]byte
}

func (u *unbufferedReader) Read(p []byte) (int, error) { return u.r.Read(p) }

func (u *unbufferedReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(u.r, u.buf[:]); err != nil {
		return 0, err
	}

	return u.buf[0], nil
}
