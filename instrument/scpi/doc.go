// Package scpi is a line-oriented command client for test instruments.
//
// A Client sends newline-terminated commands over any byte stream and reads
// newline-terminated responses. Definite-length binary responses
// ("#<n><length><payload>") are read with QueryBlock. Dial opens a raw TCP
// socket; USB-TMC instruments are reached through instrument/usbtmc, whose
// Conn satisfies the same io.ReadWriteCloser contract.
//
// Commands on one Client are serialized. Deadlines from the context are
// applied to transports that support them.
package scpi
