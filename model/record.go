package model

import (
	"fmt"
	"time"
)

// RecordKind identifies which variant a Record holds
type RecordKind uint8

const (
	RecordKindCompileMessage RecordKind = iota + 1
	RecordKindTestOutcome
)

func (k RecordKind) String() string {
	switch k {
	case RecordKindCompileMessage:
		return "compile-message"
	case RecordKindTestOutcome:
		return "test-outcome"
	}
	return fmt.Sprintf("RecordKind(%d)", uint8(k))
}

// Record is a single structured event decoded from the build tool output.
// It is implemented only by *CompileMessage and *TestOutcome.
type Record interface {
	Kind() RecordKind
	sealed()
}

// Severity of a compiler message
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// Source names the tool that produced a compiler message
type Source string

const (
	SourceRustc   Source = "rustc"
	SourceClippy  Source = "clippy"
	SourceRustfmt Source = "rustfmt"
)

// Span locates a message in a source file. Lines and columns are 1-based.
type Span struct {
	// File path as reported by the tool (relative to the workspace root for local crates)
	File        string `json:"file"`
	LineStart   uint64 `json:"line_start"`
	LineEnd     uint64 `json:"line_end"`
	ColumnStart uint64 `json:"column_start"`
	ColumnEnd   uint64 `json:"column_end"`
}

// CompileMessage is a compiler, linter or formatter diagnostic
type CompileMessage struct {
	Severity Severity `json:"severity"`
	// Message text exactly as emitted
	Text string `json:"text"`
	// Primary location, nil when the message is not tied to a file
	Span *Span `json:"span,omitempty"`
	// Diagnostic code (e.g. E0308, clippy::needless_return), may be empty
	Code string `json:"code,omitempty"`
	// Human rendering of the diagnostic
	Rendered string `json:"rendered,omitempty"`
	Source   Source `json:"source"`
}

func (*CompileMessage) Kind() RecordKind { return RecordKindCompileMessage }
func (*CompileMessage) sealed()          {}

// Status of a single test
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusIgnored Status = "ignored"
	StatusTimeout Status = "timeout"
)

// TestOutcome is the final result of one test
type TestOutcome struct {
	// Path-like test name (e.g. tests::parse::empty), unique within a run
	Name   string `json:"name"`
	Status Status `json:"status"`
	// Execution time, zero when the harness did not report it
	Duration time.Duration `json:"duration,omitempty"`
	// Failure output, empty for passing tests
	Message string `json:"message,omitempty"`
}

func (*TestOutcome) Kind() RecordKind { return RecordKindTestOutcome }
func (*TestOutcome) sealed()          {}
