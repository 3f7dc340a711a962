package report

import (
	"context"
	"errors"

	"github.com/cwbudde/algo-pulse/measure/sweep"
)

type multi []sweep.Recorder

// Multi returns a recorder that hands every group to all of recs. All
// recorders run even when one fails; the errors are joined.
func Multi(recs ...sweep.Recorder) sweep.Recorder {
	out := make(multi, 0, len(recs))
	for _, r := range recs {
		if r != nil {
			out = append(out, r)
		}
	}

	return out
}

func (m multi) Record(ctx context.Context, h sweep.Header, rows []sweep.Row) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, h, rows); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
