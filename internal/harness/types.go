package harness

import "math"

// Status is the terminal state of one probe.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped" // no callback registered
)

// Outcome is the recorded result of one dispatched descriptor.
type Outcome struct {
	// Index is the dispatch position, starting at 0.
	Index int `json:"index"`

	Name   string `json:"name"`
	Status Status `json:"status"`

	// Code and Message are set for failed probes.
	Code    ErrorCode `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`

	// Note is the optional diagnostic string returned by a passing callback.
	Note string `json:"note,omitempty"`

	// MissingDependencies is only populated for CALLBACK_ERROR failures.
	MissingDependencies []string `json:"missing_dependencies,omitempty"`

	// MissingAliases is populated regardless of status.
	MissingAliases []string `json:"missing_aliases,omitempty"`

	// Err is the failure as a typed *ProbeError.
	Err error `json:"-"`
}

// Summary is the final report of a run.
type Summary struct {
	Environment          string    `json:"environment"`
	Passes               int       `json:"passes"`
	Fails                int       `json:"fails"`
	Skipped              int       `json:"skipped"`
	UndefinedAliasGroups int       `json:"undefined_alias_groups"`
	Executed             int       `json:"executed"`
	SuccessRate          int       `json:"success_rate"`
	Outcomes             []Outcome `json:"outcomes"`
}

// NoTestsExecuted reports whether no probe had a callback to run.
func (s *Summary) NoTestsExecuted() bool {
	return s.Executed == 0
}

// SuccessRate returns round(passes / (passes + fails) * 100).
// With nothing executed the rate is 0 rather than undefined.
func SuccessRate(passes, fails int) int {
	total := passes + fails
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(passes) / float64(total) * 100))
}
