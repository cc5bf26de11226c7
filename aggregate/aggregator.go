// Package aggregate collects parsed records over a whole run and produces
// the finalized report once the wrapped command has exited.
package aggregate

import (
	"errors"
	"fmt"

	"github.com/cargo-phabricator/cargo-phabricator/model"
	"github.com/rs/zerolog"
)

// ErrFinalized is returned when records arrive after Finalize.
var ErrFinalized = errors.New("aggregator already finalized")

// Conflict records two outcomes reported for the same test name.
// The later outcome is the one kept.
type Conflict struct {
	Name     string
	Previous model.Status
	Current  model.Status
}

// messageKey identifies byte-identical compile messages
type messageKey struct {
	path   string
	line   uint64
	column uint64
	text   string
}

// Aggregator accumulates records in arrival order
type Aggregator struct {
	logger zerolog.Logger

	files     []model.FileMessages
	fileIndex map[string]int
	seen      map[messageKey]struct{}

	tests     []*model.TestOutcome
	testIndex map[string]int
	conflicts []Conflict

	coalesced int
	finalized bool
}

// New creates an empty aggregator.
func New(logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		logger:    logger,
		fileIndex: make(map[string]int),
		seen:      make(map[messageKey]struct{}),
		testIndex: make(map[string]int),
	}
}

// Add accepts the next record.
func (a *Aggregator) Add(r model.Record) error {
	if a.finalized {
		return ErrFinalized
	}

	switch rec := r.(type) {
	case *model.CompileMessage:
		a.addMessage(rec)
	case *model.TestOutcome:
		a.addOutcome(rec)
	default:
		return fmt.Errorf("unsupported record kind %v", r.Kind())
	}
	return nil
}

func (a *Aggregator) addMessage(m *model.CompileMessage) {
	key := messageKey{path: model.GeneralPath, text: m.Text}
	if m.Span != nil {
		key.path = m.Span.File
		key.line = m.Span.LineStart
		key.column = m.Span.ColumnStart
	}

	if _, dup := a.seen[key]; dup {
		a.coalesced++
		a.logger.Debug().
			Str("path", key.path).
			Uint64("line", key.line).
			Str("message", m.Text).
			Msg("Coalescing duplicate message")
		return
	}
	a.seen[key] = struct{}{}

	idx, ok := a.fileIndex[key.path]
	if !ok {
		idx = len(a.files)
		a.fileIndex[key.path] = idx
		a.files = append(a.files, model.FileMessages{Path: key.path})
	}
	a.files[idx].Messages = append(a.files[idx].Messages, m)
}

func (a *Aggregator) addOutcome(t *model.TestOutcome) {
	idx, ok := a.testIndex[t.Name]
	if !ok {
		a.testIndex[t.Name] = len(a.tests)
		a.tests = append(a.tests, t)
		return
	}

	previous := a.tests[idx]
	conflict := Conflict{Name: t.Name, Previous: previous.Status, Current: t.Status}
	a.conflicts = append(a.conflicts, conflict)
	a.logger.Warn().
		Str("test", t.Name).
		Str("previous", string(previous.Status)).
		Str("current", string(t.Status)).
		Msg("Test reported more than once, keeping the later outcome")
	a.tests[idx] = t
}

// Conflicts returns the test-name conflicts seen so far.
func (a *Aggregator) Conflicts() []Conflict {
	return a.conflicts
}

// Finalize closes the aggregator and returns the report. It must only be
// called after the wrapped command exited with exitCode.
func (a *Aggregator) Finalize(exitCode int) *model.AggregatedReport {
	a.finalized = true

	report := &model.AggregatedReport{
		Files:    make([]model.FileMessages, len(a.files)),
		Tests:    make([]*model.TestOutcome, len(a.tests)),
		ExitCode: exitCode,
	}
	copy(report.Files, a.files)
	copy(report.Tests, a.tests)

	a.logger.Debug().
		Int("files", len(report.Files)).
		Int("messages", report.MessageCount()).
		Int("coalesced", a.coalesced).
		Int("tests", len(report.Tests)).
		Int("conflicts", len(a.conflicts)).
		Msg("Report finalized")
	return report
}
