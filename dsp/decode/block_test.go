package decode

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

func TestParseBlock(t *testing.T) {
	b, err := ParseBlock([]byte("#15hello\n"))
	if err != nil {
		t.Fatalf("ParseBlock() error = %v", err)
	}
	if b.Declared != 5 || string(b.Data) != "hello" || b.Short() {
		t.Fatalf("ParseBlock() = %+v", b)
	}
}

func TestParseBlockShort(t *testing.T) {
	b, err := ParseBlock([]byte("#210abc"))
	if err != nil {
		t.Fatalf("ParseBlock() error = %v", err)
	}
	if !b.Short() || b.Declared != 10 || b.Received() != 3 {
		t.Fatalf("ParseBlock() = %+v, want short block 3/10", b)
	}
}

func TestParseBlockProtocolErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing hash", "15hello"},
		{"empty", ""},
		{"zero digit count", "#0"},
		{"non-digit count", "#x5hello"},
		{"non-digit length", "#2a5hello"},
		{"truncated length", "#41"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBlock([]byte(tt.input))
			if !errors.Is(err, ErrProtocol) {
				t.Fatalf("ParseBlock(%q) error = %v, want ErrProtocol", tt.input, err)
			}
		})
	}
}

func TestReadBlock(t *testing.T) {
	r := bytes.NewReader([]byte(" #3004\x01\x02\x03\x04tail"))
	b, err := ReadBlock(r)
	if err != nil {
		t.Fatalf("ReadBlock() error = %v", err)
	}
	if !bytes.Equal(b.Data, []byte{1, 2, 3, 4}) {
		t.Fatalf("ReadBlock() data = %v", b.Data)
	}

	rest, _ := io.ReadAll(r)
	if string(rest) != "tail" {
		t.Fatalf("ReadBlock consumed past the payload, rest = %q", rest)
	}
}

// plainReader hides the io.ByteReader implementation of its source.
type plainReader struct{ r io.Reader }

func (p plainReader) Read(b []byte) (int, error) { return p.r.Read(b) }

func TestReadBlockUnbuffered(t *testing.T) {
	src := bytes.NewReader([]byte("#12ab#11c"))
	r := plainReader{src}

	first, err := ReadBlock(r)
	if err != nil {
		t.Fatalf("first ReadBlock() error = %v", err)
	}
	second, err := ReadBlock(r)
	if err != nil {
		t.Fatalf("second ReadBlock() error = %v", err)
	}
	if string(first.Data) != "ab" || string(second.Data) != "c" {
		t.Fatalf("blocks = %q, %q", first.Data, second.Data)
	}
}

func TestReadBlockShortRead(t *testing.T) {
	b, err := ReadBlock(bytes.NewReader([]byte("#18abc")))
	if err != nil {
		t.Fatalf("ReadBlock() error = %v, want nil for short read", err)
	}
	if !b.Short() || b.Received() != 3 || b.Declared != 8 {
		t.Fatalf("ReadBlock() = %+v", b)
	}
}

func TestReadBlockHugeDeclaredLength(t *testing.T) {
	b, err := ReadBlock(strings.NewReader("#9900000000\x01\x02"))
	if err != nil {
		t.Fatalf("ReadBlock() error = %v", err)
	}
	if b.Declared != 900000000 || b.Received() != 2 || !b.Short() {
		t.Fatalf("ReadBlock() = declared %d received %d", b.Declared, b.Received())
	}
	if cap(b.Data) > initialPayloadCap {
		t.Fatalf("cap(Data) = %d, want at most %d", cap(b.Data), initialPayloadCap)
	}
}

// stalledReader returns its data and then a read deadline error, like a
// net.Conn whose peer stopped sending.
type stalledReader struct {
	data *strings.Reader
	err  error
}

func (s *stalledReader) Read(p []byte) (int, error) {
	if s.data.Len() == 0 {
		return 0, s.err
	}

	return s.data.Read(p)
}

func TestReadBlockTimeout(t *testing.T) {
	t.Run("after partial payload", func(t *testing.T) {
		r := &stalledReader{data: strings.NewReader("#210abc"), err: os.ErrDeadlineExceeded}

		b, err := ReadBlock(r)
		if err != nil {
			t.Fatalf("ReadBlock() error = %v, want nil", err)
		}
		if !b.Short() || b.Received() != 3 || string(b.Data) != "abc" {
			t.Fatalf("ReadBlock() = %+v", b)
		}
	})

	t.Run("before any payload", func(t *testing.T) {
		r := &stalledReader{data: strings.NewReader("#210"), err: os.ErrDeadlineExceeded}

		if _, err := ReadBlock(r); !errors.Is(err, os.ErrDeadlineExceeded) {
			t.Fatalf("ReadBlock() error = %v, want deadline exceeded", err)
		}
	})

	t.Run("other errors", func(t *testing.T) {
		r := &stalledReader{data: strings.NewReader("#210abc"), err: io.ErrClosedPipe}

		if _, err := ReadBlock(r); !errors.Is(err, io.ErrClosedPipe) {
			t.Fatalf("ReadBlock() error = %v, want ErrClosedPipe", err)
		}
	})
}

func TestReadBlockBadHeader(t *testing.T) {
	for _, in := range []string{"", "X15hello", "#", "#9123"} {
		if _, err := ReadBlock(bytes.NewReader([]byte(in))); !errors.Is(err, ErrProtocol) {
			t.Fatalf("ReadBlock(%q) error = %v, want ErrProtocol", in, err)
		}
	}
}

func TestAppendBlock(t *testing.T) {
	payload := bytes.Repeat([]byte{7}, 1200)
	out := AppendBlock([]byte("CURVE "), payload)
	if !bytes.HasPrefix(out, []byte("CURVE #41200")) {
		t.Fatalf("AppendBlock prefix = %q", out[:12])
	}

	b, err := ParseBlock(out[len("CURVE "):])
	if err != nil || b.Declared != 1200 || b.Short() {
		t.Fatalf("ParseBlock(AppendBlock()) = %+v, %v", b, err)
	}
}
