// Package sim simulates a pulser bench for dry runs and tests.
//
// Bench renders the pulse the device would produce for the last applied
// setting: a window of width*12.8*1.2 ns with the pulse occupying the
// central 5/6 of it, seeded noise and a finite edge slew. Bench implements
// the sweep collaborators directly; StepConn and TekConn emulate the
// command sets of a STEPScope and a TDS2000 on top of it so the real
// drivers can run without hardware.
//
// Types in this package are not safe for concurrent use.
package sim
