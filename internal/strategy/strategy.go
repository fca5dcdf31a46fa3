// Package strategy provides change-generation strategies: an analyze/modify
// contract, a credential-free heuristic baseline, hosted LLM providers, a
// fallback decorator that absorbs provider failures, and a selector that
// degrades to the baseline when a requested provider is unavailable.
package strategy

import "context"

// Analysis describes what a strategy believes must change, plus degradation
// metadata when the preferred strategy failed and a fallback was used.
type Analysis struct {
	Files         []string            `json:"files"`
	FileTypes     map[string][]string `json:"file_types"`
	MainFiles     []string            `json:"main_files"`
	FilesToModify []string            `json:"files_to_modify"`
	Rationale     string              `json:"analysis,omitempty"`
	Approach      string              `json:"approach,omitempty"`
	Dependencies  []string            `json:"dependencies,omitempty"`
	Risks         []string            `json:"risks,omitempty"`

	Degraded bool   `json:"degraded,omitempty"`
	Cause    string `json:"cause,omitempty"`
}

// Op tags a change variant.
type Op string

const (
	OpEdit   Op = "edit"
	OpCreate Op = "create"
)

// Change is a single file edit or creation. The strategy never writes the
// workspace itself; the pipeline engine applies changes centrally.
type Change struct {
	Op          Op
	Path        string
	OldContent  string // edit only
	NewContent  string // edit: replacement; create: full content
	Description string
}

// ChangeSet is an ordered sequence of changes. Insertion order is the
// application order and must be preserved.
type ChangeSet []Change

// Strategy is the capability contract the pipeline engine needs from a
// change generator. Analyze must be read-only on the workspace; Modify may
// read but must not write it.
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, workspace, instruction string) (*Analysis, error)
	Modify(ctx context.Context, workspace string, analysis *Analysis, instruction string) (ChangeSet, error)
}
