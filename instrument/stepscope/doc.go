// Package stepscope drives BitWise Laboratories STEPScope instruments.
//
// Every command is prefixed with "stc;" to clear the status register and
// followed by a "st?" query; any answer other than "[none]" is an error.
// Device implements the Device, Aligner, SpanMeter and Acquirer
// collaborators of measure/sweep: pulser settings go through the Pulse,
// Calib, Acc and Step:Cfg branches and waveforms are read from the step
// response view as little-endian float32 blocks.
package stepscope
