package usbtmc

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Message IDs.
const (
	MsgDevDepOut       = 1
	MsgRequestDevDepIn = 2
	MsgDevDepIn        = 2
)

// HeaderSize is the length of a bulk header.
const HeaderSize = 12

const (
	attrEOM         = 0x01
	attrTermCharEnd = 0x02
)

// ErrFrame is returned for malformed bulk-IN transfers.
var ErrFrame = errors.New("usbtmc: malformed transfer")

// Header is a decoded bulk header.
type Header struct {
	MsgID    byte
	Tag      byte
	Size     uint32
	EOM      bool
	TermChar byte
}

func putHeader(dst []byte, msgID, tag byte, size uint32, attr, term byte) {
	dst[0] = msgID
	dst[1] = tag
	dst[2] = ^tag
	dst[3] = 0
	binary.LittleEndian.PutUint32(dst[4:8], size)
	dst[8] = attr
	dst[9] = term
	dst[10] = 0
	dst[11] = 0
}

// EncodeOut frames payload as a DEV_DEP_MSG_OUT transfer.
func EncodeOut(tag byte, payload []byte, eom bool) []byte {
	n := HeaderSize + len(payload)
	padded := (n + 3) &^ 3

	out := make([]byte, padded)

	var attr byte
	if eom {
		attr = attrEOM
	}

	putHeader(out, MsgDevDepOut, tag, uint32(len(payload)), attr, 0)
	copy(out[HeaderSize:], payload)

	return out
}

// EncodeRequestIn frames a REQUEST_DEV_DEP_MSG_IN for up to max bytes. A
// nonzero term asks the device to stop after that character.
func EncodeRequestIn(tag byte, max uint32, term byte) []byte {
	out := make([]byte, HeaderSize)

	var attr byte
	if term != 0 {
		attr = attrTermCharEnd
	}

	putHeader(out, MsgRequestDevDepIn, tag, max, attr, term)

	return out
}

// DecodeHeader parses the header at the start of a bulk-IN transfer.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d byte header", ErrFrame, len(b))
	}

	if b[2] != ^b[1] {
		return Header{}, fmt.Errorf("%w: tag %d with inverse %d", ErrFrame, b[1], b[2])
	}

	return Header{
		MsgID:    b[0],
		Tag:      b[1],
		Size:     binary.LittleEndian.Uint32(b[4:8]),
		EOM:      b[8]&attrEOM != 0,
		TermChar: b[9],
	}, nil
}

// EncodeIn frames payload as a device's DEV_DEP_MSG_IN response. Simulated
// devices use it; hosts only decode.
func EncodeIn(tag byte, payload []byte, eom bool) []byte {
	out := EncodeOut(tag, payload, eom)
	out[0] = MsgDevDepIn

	return out
}

// nextTag returns the tag after t, skipping zero.
func nextTag(t byte) byte {
	t++
	if t == 0 {
		t = 1
	}

	return t
}
