// Command pulsesweep characterizes pulse generators and step-response
// digitizers.
//
// Usage:
//
//	pulsesweep sweep [flags]
//	pulsesweep plan [flags]
//	pulsesweep analyze [flags] waveform.csv
//	pulsesweep summary results.csv ...
//
// Examples:
//
//	pulsesweep sweep --device sim --widths 1,2,4 --amplitudes 300 -v
//	pulsesweep sweep -c bench.yaml --format csv --format xlsx
//	pulsesweep plan --modes Accessory
//	pulsesweep analyze --bandwidth capture.csv
package main

import "github.com/cwbudde/algo-pulse/cmd/pulsesweep/cmd"

func main() {
	cmd.Execute()
}
