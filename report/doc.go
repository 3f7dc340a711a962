// Package report persists sweep results.
//
// Every recorder writes the same column layout, one table per sweep
// group:
//
//	SN, DateTime, Mode, DSP, ACComp, LenW, LenNS, AmplSet, Meas, Atten[, MeasNoAtten], Status
//
// The order is significant; downstream tooling reads columns by position.
// MeasNoAtten is present only when the run was made through an attenuator.
//
// CSV files use a sectioned layout: key/value metadata rows, a "[DATA]"
// marker row, the header and the data rows. XLSX workbooks carry the
// metadata on a "Summary" sheet and the table on a "Data" sheet. The
// Postgres recorder inserts one row per measurement through database/sql.
//
// # Usage
//
//	rec := report.Multi(
//		report.NewCSV("results"),
//		report.NewXLSX("results"),
//	)
//	c := sweep.NewController(device, scope, rec)
package report
