// Package usbtmc implements the USB Test & Measurement Class bulk protocol.
//
// Every transfer starts with a 12-byte header:
//
//	0     MsgID (1 DEV_DEP_MSG_OUT, 2 REQUEST_DEV_DEP_MSG_IN / DEV_DEP_MSG_IN)
//	1     bTag, 1..255
//	2     ^bTag
//	3     reserved
//	4..7  transfer size, little endian
//	8     attributes (bit 0 EOM for OUT, bit 1 TermCharEnabled for requests)
//	9     TermChar
//	10,11 reserved
//
// OUT payloads are padded to a multiple of four bytes. Conn turns the
// message exchange into an io.ReadWriteCloser so it can carry an
// instrument/scpi Client. Open claims a device through gousb; the framing
// itself works on any pair of bulk endpoints.
package usbtmc
