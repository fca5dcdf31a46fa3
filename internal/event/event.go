// Package event defines the progress events a pipeline run streams to its
// caller, and the ordered single-consumer stream that carries them.
package event

// Type categorizes an event.
type Type string

const (
	Info     Type = "info"
	Progress Type = "progress"
	Success  Type = "success"
	Warning  Type = "warning"
	Error    Type = "error"
	Change   Type = "change"
	Done     Type = "done"
)

// Event is a single observable transition in a pipeline run. Events are
// immutable once emitted. Consumers must ignore optional fields they don't
// recognize.
type Event struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`

	// Set on the initial info event.
	RepoURL string `json:"repoUrl,omitempty"`
	Prompt  string `json:"prompt,omitempty"`

	// Set when publication produced a reviewable reference.
	PullRequestURL string `json:"pr_url,omitempty"`

	// Set on the done event: ordered descriptions of applied changes.
	Changes []string `json:"changes,omitempty"`

	// Set on degradation events: a fallback implementation was substituted.
	Degraded bool   `json:"degraded,omitempty"`
	Cause    string `json:"cause,omitempty"`

	// Fatal marks an error event that terminates the run. Not serialized;
	// stream closure is what tells a consumer the run is over.
	Fatal bool `json:"-"`
}

// Terminal reports whether no further events may follow this one.
func (e Event) Terminal() bool {
	return e.Type == Done || (e.Type == Error && e.Fatal)
}
