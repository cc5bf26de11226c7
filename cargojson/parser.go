package cargojson

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/cargo-phabricator/cargo-phabricator/model"
	"github.com/rs/zerolog"
)

// Stats counts what the parser saw on the stream
type Stats struct {
	// Lines read, including blank ones
	Lines int
	// Lines recognised as one of the structured formats
	Structured int
	// Records produced
	Records int
	// Lines that could not be decoded and were passed through
	Skipped int
}

// summaryMessage matches rustc's closing summary lines
var summaryMessage = regexp.MustCompile(`^(aborting due to |\d+ warnings? emitted)`)

// Parser decodes the structured output of a cargo subcommand into records
type Parser struct {
	logger      zerolog.Logger
	subcommand  model.Subcommand
	passthrough io.Writer
	stats       Stats
}

// New creates a parser for the output of subcommand. Lines that are not
// structured records are written unchanged to passthrough.
func New(logger zerolog.Logger, subcommand model.Subcommand, passthrough io.Writer) *Parser {
	if passthrough == nil {
		passthrough = io.Discard
	}
	return &Parser{
		logger:      logger,
		subcommand:  subcommand,
		passthrough: passthrough,
	}
}

// Stats returns the counters collected so far.
func (p *Parser) Stats() Stats {
	return p.stats
}

// Parse reads r line by line and sends every decoded record to out. It
// returns when r is exhausted or ctx is done; malformed lines never stop it.
func (p *Parser) Parse(ctx context.Context, r io.Reader, out chan<- model.Record) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			for _, record := range p.ParseLine(line) {
				select {
				case out <- record:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("error reading output: %w", err)
		}
	}

	if p.stats.Structured == 0 {
		p.logger.Warn().
			Str("subcommand", string(p.subcommand)).
			Int("lines", p.stats.Lines).
			Msg("No structured records found in output, an empty report will be submitted")
	}
	return nil
}

// ParseLine decodes a single line of output. It returns no records for lines
// that carry nothing to report.
func (p *Parser) ParseLine(raw []byte) []model.Record {
	p.stats.Lines++
	line := bytes.TrimSpace(raw)
	if len(line) == 0 {
		return nil
	}

	var records []model.Record
	var err error
	switch line[0] {
	case '{':
		records, err = p.parseObject(line)
	case '[':
		records, err = p.parseFmt(line)
	default:
		err = errors.New("not a JSON record")
	}
	if err != nil {
		p.skip(raw, err)
		return nil
	}

	p.stats.Structured++
	p.stats.Records += len(records)
	return records
}

// skip passes a line the parser could not use through to the terminal.
func (p *Parser) skip(raw []byte, err error) {
	p.stats.Skipped++
	p.logger.Warn().
		Err(err).
		Int("line", p.stats.Lines).
		Str("content", strings.TrimRight(string(raw), "\r\n")).
		Msg("Output line could not be parsed, passing it through")

	if _, werr := p.passthrough.Write(raw); werr == nil && raw[len(raw)-1] != '\n' {
		_, _ = p.passthrough.Write([]byte{'\n'})
	}
}

func (p *Parser) parseObject(line []byte) ([]model.Record, error) {
	var kind probe
	if err := json.Unmarshal(line, &kind); err != nil {
		return nil, err
	}

	// libtest events may carry a "reason" too (time limit exceeded)
	switch {
	case kind.Type != "":
		return p.parseLibtest(line, kind.Type)
	case kind.Reason != "":
		return p.parseCargo(line, kind.Reason)
	}
	return nil, errors.New("JSON object has neither a reason nor a type")
}

func (p *Parser) parseCargo(line []byte, reason string) ([]model.Record, error) {
	switch reason {
	case "compiler-message":
	case "compiler-artifact", "build-script-executed", "build-finished":
		p.logger.Debug().Str("reason", reason).Msg("Ignoring cargo record")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cargo record reason %q", reason)
	}

	var msg cargoMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, err
	}
	if msg.Message == nil {
		return nil, errors.New("compiler-message without a message")
	}
	diag := msg.Message

	if diag.Level == "failure-note" || (diag.Code == nil && len(diag.Spans) == 0 && summaryMessage.MatchString(diag.Message)) {
		p.logger.Debug().Str("level", diag.Level).Str("message", diag.Message).Msg("Skipping summary message")
		return nil, nil
	}

	cm := &model.CompileMessage{
		Severity: p.severity(diag.Level, diag.Message),
		Text:     diag.Message,
		Source:   model.SourceRustc,
	}
	if diag.Code != nil {
		cm.Code = diag.Code.Code
		if strings.HasPrefix(cm.Code, "clippy::") {
			cm.Source = model.SourceClippy
		}
	}
	if diag.Rendered != nil {
		cm.Rendered = *diag.Rendered
	}
	for _, span := range diag.Spans {
		if !span.IsPrimary {
			continue
		}
		cm.Span = &model.Span{
			File:        span.FileName,
			LineStart:   span.LineStart,
			LineEnd:     span.LineEnd,
			ColumnStart: span.ColumnStart,
			ColumnEnd:   span.ColumnEnd,
		}
		break
	}

	return []model.Record{cm}, nil
}

// severity maps a rustc level onto the fixed severity set.
func (p *Parser) severity(level, message string) model.Severity {
	switch level {
	case "error", "error: internal compiler error":
		return model.SeverityError
	case "warning":
		return model.SeverityWarning
	case "note", "help":
		return model.SeverityNote
	}
	p.logger.Warn().
		Str("level", level).
		Str("message", message).
		Msg("Unknown diagnostic level, reporting it as a warning")
	return model.SeverityWarning
}

func (p *Parser) parseLibtest(line []byte, eventType string) ([]model.Record, error) {
	var ev libtestEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		return nil, err
	}

	switch eventType {
	case "test":
	case "suite":
		if ev.Event != "started" {
			p.logger.Debug().
				Str("event", ev.Event).
				Int("passed", ev.Passed).
				Int("failed", ev.Failed).
				Int("ignored", ev.Ignored).
				Msg("Test suite finished")
		}
		return nil, nil
	case "bench":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown libtest event type %q", eventType)
	}

	if ev.Name == "" {
		return nil, errors.New("test event without a name")
	}

	outcome := &model.TestOutcome{Name: ev.Name}
	switch ev.Event {
	case "started":
		return nil, nil
	case "ok":
		outcome.Status = model.StatusPassed
	case "failed":
		outcome.Status = model.StatusFailed
		if ev.Reason == "time limit exceeded" {
			outcome.Status = model.StatusTimeout
		}
	case "ignored":
		outcome.Status = model.StatusIgnored
	case "timeout":
		outcome.Status = model.StatusTimeout
	default:
		return nil, fmt.Errorf("unknown test event %q", ev.Event)
	}

	if ev.ExecTime != nil && *ev.ExecTime > 0 {
		outcome.Duration = time.Duration(*ev.ExecTime * float64(time.Second))
	}
	outcome.Message = joinNonEmpty(ev.Message, ev.Stdout)

	return []model.Record{outcome}, nil
}

func (p *Parser) parseFmt(line []byte) ([]model.Record, error) {
	if p.subcommand != model.SubcommandFmt {
		return nil, errors.New("JSON array outside of fmt output")
	}

	var files []fmtFile
	if err := json.Unmarshal(line, &files); err != nil {
		return nil, err
	}

	var records []model.Record
	for _, file := range files {
		for _, mismatch := range file.Mismatches {
			records = append(records, &model.CompileMessage{
				Severity: model.SeverityError,
				Text:     "format mismatch",
				Code:     "RUSTFMT",
				Source:   model.SourceRustfmt,
				Rendered: mismatchDiff(mismatch),
				Span: &model.Span{
					File:      file.Name,
					LineStart: mismatch.OriginalBeginLine,
					LineEnd:   mismatch.OriginalEndLine,
				},
			})
		}
	}
	return records, nil
}

// mismatchDiff renders a rustfmt mismatch as a unified-style hunk body.
func mismatchDiff(m fmtMismatch) string {
	var b strings.Builder
	if m.Original != "" {
		for _, l := range strings.Split(m.Original, "\n") {
			b.WriteString("-" + l + "\n")
		}
	}
	if m.Expected != "" {
		for _, l := range strings.Split(m.Expected, "\n") {
			b.WriteString("+" + l + "\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, part := range parts {
		if s := strings.TrimRight(part, "\n"); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n")
}
