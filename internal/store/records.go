package store

import "time"

// timeLayout is fixed-width so that created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunRecord is one stored harness run.
type RunRecord struct {
	ID                   string          `json:"id"`
	Environment          string          `json:"environment"`
	CreatedAt            time.Time       `json:"created_at"`
	Passes               int             `json:"passes"`
	Fails                int             `json:"fails"`
	Skipped              int             `json:"skipped"`
	UndefinedAliasGroups int             `json:"undefined_alias_groups"`
	SuccessRate          int             `json:"success_rate"`
	Outcomes             []OutcomeRecord `json:"outcomes,omitempty"`
}

// OutcomeRecord is one probe outcome within a run.
type OutcomeRecord struct {
	Index               int      `json:"index"`
	Name                string   `json:"name"`
	Status              string   `json:"status"`
	Code                string   `json:"code,omitempty"`
	Message             string   `json:"message,omitempty"`
	Note                string   `json:"note,omitempty"`
	MissingDependencies []string `json:"missing_dependencies,omitempty"`
	MissingAliases      []string `json:"missing_aliases,omitempty"`
}
