package cli

// This file re-renders the report on the terminal, since cargo's human
// readable output is replaced by JSON while we run it.

import (
	"fmt"
	"io"
	"strings"

	"github.com/cargo-phabricator/cargo-phabricator/model"
	"github.com/fatih/color"
)

type renderer struct {
	out io.Writer

	errorColor   *color.Color
	warningColor *color.Color
	noteColor    *color.Color
	passColor    *color.Color
	headerColor  *color.Color
}

func newRenderer(out io.Writer, colorize bool) *renderer {
	r := &renderer{
		out:          out,
		errorColor:   color.New(color.FgRed, color.Bold),
		warningColor: color.New(color.FgYellow, color.Bold),
		noteColor:    color.New(color.FgCyan),
		passColor:    color.New(color.FgGreen),
		headerColor:  color.New(color.Bold),
	}
	for _, c := range []*color.Color{r.errorColor, r.warningColor, r.noteColor, r.passColor, r.headerColor} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func (r *renderer) severityColor(s model.Severity) *color.Color {
	switch s {
	case model.SeverityError:
		return r.errorColor
	case model.SeverityWarning:
		return r.warningColor
	default:
		return r.noteColor
	}
}

// Report writes diagnostics, test results and a summary.
func (r *renderer) Report(report *model.AggregatedReport) {
	for _, file := range report.Files {
		for _, m := range file.Messages {
			r.message(file.Path, m)
		}
	}
	if len(report.Tests) > 0 {
		r.tests(report.Tests)
	}
	r.summary(report)
}

func (r *renderer) message(path string, m *model.CompileMessage) {
	switch {
	case m.Source == model.SourceRustfmt:
		line := uint64(0)
		if m.Span != nil {
			line = m.Span.LineStart
		}
		r.headerColor.Fprintf(r.out, "Diff in %s at line %d:\n", path, line)
		for _, l := range strings.Split(m.Rendered, "\n") {
			switch {
			case strings.HasPrefix(l, "-"):
				r.errorColor.Fprintln(r.out, l)
			case strings.HasPrefix(l, "+"):
				r.passColor.Fprintln(r.out, l)
			default:
				fmt.Fprintln(r.out, l)
			}
		}

	case m.Rendered != "":
		fmt.Fprint(r.out, m.Rendered)
		if !strings.HasSuffix(m.Rendered, "\n") {
			fmt.Fprintln(r.out)
		}

	default:
		r.severityColor(m.Severity).Fprintf(r.out, "%s", m.Severity)
		fmt.Fprintf(r.out, ": %s\n", m.Text)
		if m.Span != nil {
			fmt.Fprintf(r.out, "  --> %s:%d:%d\n", m.Span.File, m.Span.LineStart, m.Span.ColumnStart)
		}
	}
}

func (r *renderer) tests(tests []*model.TestOutcome) {
	var failures []*model.TestOutcome
	for _, t := range tests {
		fmt.Fprintf(r.out, "test %s ... ", t.Name)
		switch t.Status {
		case model.StatusPassed:
			r.passColor.Fprintln(r.out, "ok")
		case model.StatusIgnored:
			r.warningColor.Fprintln(r.out, "ignored")
		case model.StatusTimeout:
			r.errorColor.Fprintln(r.out, "TIMEOUT")
			failures = append(failures, t)
		default:
			r.errorColor.Fprintln(r.out, "FAILED")
			failures = append(failures, t)
		}
	}

	if len(failures) == 0 {
		return
	}
	fmt.Fprintln(r.out, "\nfailures:")
	for _, t := range failures {
		if t.Message == "" {
			continue
		}
		fmt.Fprintf(r.out, "\n---- %s ----\n%s\n", t.Name, strings.TrimRight(t.Message, "\n"))
	}
	fmt.Fprintln(r.out)
}

func (r *renderer) summary(report *model.AggregatedReport) {
	var errs, warnings int
	for _, file := range report.Files {
		for _, m := range file.Messages {
			switch m.Severity {
			case model.SeverityError:
				errs++
			case model.SeverityWarning:
				warnings++
			}
		}
	}
	if errs > 0 || warnings > 0 {
		fmt.Fprintf(r.out, "%s, %s\n",
			r.errorColor.Sprintf("%d error(s)", errs),
			r.warningColor.Sprintf("%d warning(s)", warnings))
	}

	if len(report.Tests) == 0 {
		return
	}
	counts := make(map[model.Status]int)
	for _, t := range report.Tests {
		counts[t.Status]++
	}
	result := r.passColor.Sprint("ok")
	if counts[model.StatusFailed]+counts[model.StatusTimeout] > 0 {
		result = r.errorColor.Sprint("FAILED")
	}
	fmt.Fprintf(r.out, "test result: %s. %d passed; %d failed; %d timed out; %d ignored\n",
		result,
		counts[model.StatusPassed],
		counts[model.StatusFailed],
		counts[model.StatusTimeout],
		counts[model.StatusIgnored])
}
