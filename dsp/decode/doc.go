// Package decode converts instrument binary transfers into calibrated
// waveforms.
//
// Instruments answer waveform queries with an IEEE-488.2 definite-length
// block:
//
//	#<n><n ASCII digits giving the length><length bytes of payload>
//
// ReadBlock and ParseBlock parse that framing. A payload shorter than the
// declared length is not an error: the Block records both counts and the
// Decoder logs a warning before decoding what arrived.
//
// # Usage
//
//	blk, err := decode.ReadBlock(conn)
//	if err != nil {
//		return err
//	}
//	d := decode.Decoder{Logger: logger}
//	w, err := d.Int8(blk, cal, waveform.WithName("CH1"))
//
// Int8 implements the oscilloscope RIBinary width-1 format, where each
// signed byte v maps to ((v - YOffset) * YMult + YZero) * 1000 mV.
// Float32 implements little-endian float32 transfers that are already in mV.
package decode
