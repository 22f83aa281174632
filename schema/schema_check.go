package schema

import "time"

// GoalCheck is the outcome of comparing one commitment against its goal.
type GoalCheck struct {
	Kind      CommitmentKind `json:"kind"`
	Available bool           `json:"available"`
	Reason    string         `json:"reason,omitempty"`
	Period    Period         `json:"period"`
	Value     float64        `json:"value"`
	Goal      float64        `json:"goal"`
	Passed    bool           `json:"passed"`
}

// CheckResult holds the goal checks of a run. It passes when no available check fails.
type CheckResult struct {
	Granularity Granularity `json:"granularity"`
	AsOf        time.Time   `json:"as_of"`
	Checks      []GoalCheck `json:"checks"`
	Passed      bool        `json:"passed"`
}

// Failed returns the available checks below their goal.
func (r CheckResult) Failed() []GoalCheck {
	var out []GoalCheck
	for _, c := range r.Checks {
		if c.Available && !c.Passed {
			out = append(out, c)
		}
	}
	return out
}
