// Package tek drives Tektronix TDS2000 series oscilloscopes.
//
// A Scope talks to the instrument through any Conn, normally an
// instrument/scpi Client over USB-TMC. Waveforms are read as signed 8-bit
// RIBinary curves and calibrated from the WFMPRE preamble, giving mV
// samples on a ns time axis.
//
// Scope implements the Acquirer and Aligner collaborators of
// measure/sweep.
package tek
