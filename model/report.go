package model

// GeneralPath is the synthetic location for messages without a source span
const GeneralPath = "general"

// FileMessages holds the messages reported against one file, in emission order
type FileMessages struct {
	Path     string            `json:"path"`
	Messages []*CompileMessage `json:"messages"`
}

// AggregatedReport is the finalized result of one run
type AggregatedReport struct {
	// Files in order of their first message
	Files []FileMessages `json:"files"`
	// Test outcomes in arrival order, unique by name
	Tests []*TestOutcome `json:"tests"`
	// Exit code of the wrapped command
	ExitCode int `json:"exit_code"`
}

// MessageCount returns the number of compile messages across all files.
func (r *AggregatedReport) MessageCount() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Messages)
	}
	return n
}

// Empty reports whether the run produced no records at all.
func (r *AggregatedReport) Empty() bool {
	return r.MessageCount() == 0 && len(r.Tests) == 0
}
