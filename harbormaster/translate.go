package harbormaster

import (
	"path/filepath"
	"strings"

	"fortio.org/safecast"
	"github.com/cargo-phabricator/cargo-phabricator/model"
)

// Engine is reported for every unit result
const Engine = "cargo-test"

const timedOutNote = "timed out"

// Translate maps a finalized report onto the harbormaster.sendmessage payload.
// It is deterministic and always returns non-nil lint and unit lists, so a
// clean run still submits an explicit empty report.
func Translate(report *model.AggregatedReport, rc *model.RunContext) Payload {
	payload := Payload{
		BuildTargetPHID: rc.BuildTargetPHID(),
		Type:            messageType(report, rc),
		Lint:            make([]Lint, 0, report.MessageCount()),
		Unit:            make([]Unit, 0, len(report.Tests)),
	}

	for _, file := range report.Files {
		path := model.GeneralPath
		if file.Path != model.GeneralPath {
			path = repositoryPath(rc, file.Path)
		}
		for _, m := range file.Messages {
			payload.Lint = append(payload.Lint, translateMessage(path, m))
		}
	}

	for _, t := range report.Tests {
		payload.Unit = append(payload.Unit, translateOutcome(t))
	}

	return payload
}

func messageType(report *model.AggregatedReport, rc *model.RunContext) MessageType {
	if !rc.Finalize() {
		return MessageTypeWork
	}
	if report.ExitCode == 0 {
		return MessageTypePass
	}
	return MessageTypeFail
}

func translateMessage(path string, m *model.CompileMessage) Lint {
	lint := Lint{
		Name:        m.Text,
		Code:        lintCode(m),
		Severity:    severity(m.Severity),
		Path:        path,
		Description: description(m),
	}
	if m.Span != nil {
		lint.Line = position(m.Span.LineStart)
		lint.Char = position(m.Span.ColumnStart)
	}
	return lint
}

func severity(s model.Severity) Severity {
	switch s {
	case model.SeverityError:
		return SeverityError
	case model.SeverityWarning:
		return SeverityWarning
	case model.SeverityNote:
		return SeverityAdvice
	}
	return SeverityWarning
}

func lintCode(m *model.CompileMessage) string {
	if m.Code != "" {
		return m.Code
	}
	return strings.ToUpper(string(m.Source))
}

func description(m *model.CompileMessage) string {
	rendered := strings.TrimSpace(m.Rendered)
	if rendered == "" {
		return ""
	}
	if m.Source == model.SourceRustfmt {
		return "```lang=diff\n" + rendered + "\n```"
	}
	return "```\n" + rendered + "\n```"
}

// position converts a 1-based line or column, dropping zero and values that
// do not fit an int.
func position(v uint64) *int {
	if v == 0 {
		return nil
	}
	n, err := safecast.Conv[int](v)
	if err != nil {
		return nil
	}
	return &n
}

func translateOutcome(t *model.TestOutcome) Unit {
	unit := Unit{
		Name:     t.Name,
		Engine:   Engine,
		Duration: t.Duration.Seconds(),
		Details:  t.Message,
	}
	switch t.Status {
	case model.StatusPassed:
		unit.Result = ResultPass
	case model.StatusFailed:
		unit.Result = ResultFail
	case model.StatusIgnored:
		unit.Result = ResultSkip
	case model.StatusTimeout:
		unit.Result = ResultFail
		if unit.Details == "" {
			unit.Details = timedOutNote
		} else {
			unit.Details += "\n" + timedOutNote
		}
	default:
		unit.Result = ResultBroken
	}
	return unit
}

// repositoryPath rewrites a path reported by cargo (relative to the workspace
// root) to be relative to the repository root. Paths outside the repository,
// such as registry sources, are returned unchanged.
func repositoryPath(rc *model.RunContext, file string) string {
	if rc.RepositoryRoot() == "" {
		return filepath.ToSlash(file)
	}

	abs := file
	if !filepath.IsAbs(abs) {
		if rc.WorkspaceRoot() == "" {
			return filepath.ToSlash(file)
		}
		abs = filepath.Join(rc.WorkspaceRoot(), file)
	}

	rel, err := filepath.Rel(rc.RepositoryRoot(), abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}
