// Package report renders gate outcomes for people and for CI tooling.
package report

import (
	"github.com/zjy-dev/covgate/internal/gate"
	"github.com/zjy-dev/covgate/internal/threshold"
)

// Reporter publishes gate outcomes.
type Reporter interface {
	// Patch reports the verdict of the patch gate.
	Patch(v *gate.Verdict) error
	// Threshold reports the result of the aggregate gate.
	Threshold(r *threshold.Result) error
}

// Multi fans one outcome out to several reporters, stopping at the first
// error.
type Multi []Reporter

func (m Multi) Patch(v *gate.Verdict) error {
	for _, r := range m {
		if err := r.Patch(v); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) Threshold(res *threshold.Result) error {
	for _, r := range m {
		if err := r.Threshold(res); err != nil {
			return err
		}
	}
	return nil
}
