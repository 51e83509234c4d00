package suite

import (
	"time"

	"github.com/adnsv/latexmlsuite/model"
)

// StageOutcome records what one dispatched stage did.
type StageOutcome struct {
	Stage    model.StageName
	Result   model.StageResult
	Commands [][]string
	Duration time.Duration

	unavailable bool
}

// settle derives the result from what the stage did, unless already failed.
func (o *StageOutcome) settle() {
	switch {
	case o.Result == model.ResultFailed:
	case o.unavailable:
		o.Result = model.ResultUnavailable
	case len(o.Commands) == 0:
		o.Result = model.ResultSkipped
	default:
		o.Result = model.ResultExecuted
	}
}

// Report collects the stage outcomes of one run, in dispatch order.
type Report struct {
	RunID  string
	Mode   model.RunMode
	DryRun bool
	Stages []*StageOutcome
}

func (r *Report) begin(name model.StageName) *StageOutcome {
	o := &StageOutcome{Stage: name}
	r.Stages = append(r.Stages, o)
	return o
}

// Dispatched lists the stages in the order they were run.
func (r *Report) Dispatched() []model.StageName {
	out := make([]model.StageName, len(r.Stages))
	for i, o := range r.Stages {
		out[i] = o.Stage
	}
	return out
}

// Outcome returns the outcome of a stage, or nil if it was not dispatched.
func (r *Report) Outcome(name model.StageName) *StageOutcome {
	for _, o := range r.Stages {
		if o.Stage == name {
			return o
		}
	}
	return nil
}

// Commands returns every command issued during the run.
func (r *Report) Commands() [][]string {
	var out [][]string
	for _, o := range r.Stages {
		out = append(out, o.Commands...)
	}
	return out
}

// Count returns how many stages ended with the given result.
func (r *Report) Count(res model.StageResult) int {
	n := 0
	for _, o := range r.Stages {
		if o.Result == res {
			n++
		}
	}
	return n
}
