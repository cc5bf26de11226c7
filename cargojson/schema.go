package cargojson

// schema.go mirrors the JSON emitted by `cargo --message-format json`,
// libtest `--format json` and `cargo fmt --message-format json`.

// probe is decoded first to decide which schema a line belongs to.
type probe struct {
	Reason string `json:"reason"`
	Type   string `json:"type"`
}

type cargoMessage struct {
	Reason    string            `json:"reason"`
	PackageID string            `json:"package_id"`
	Target    *targetSchema     `json:"target"`
	Message   *diagnosticSchema `json:"message"`
	// Only set for build-finished
	Success *bool `json:"success"`
}

type targetSchema struct {
	Name    string `json:"name"`
	SrcPath string `json:"src_path"`
}

type codeSchema struct {
	Code string `json:"code"`
}

type diagnosticSchema struct {
	Message  string       `json:"message"`
	Code     *codeSchema  `json:"code"`
	Level    string       `json:"level"`
	Spans    []spanSchema `json:"spans"`
	Rendered *string      `json:"rendered"`
}

type spanSchema struct {
	FileName    string `json:"file_name"`
	LineStart   uint64 `json:"line_start"`
	LineEnd     uint64 `json:"line_end"`
	ColumnStart uint64 `json:"column_start"`
	ColumnEnd   uint64 `json:"column_end"`
	IsPrimary   bool   `json:"is_primary"`
}

type libtestEvent struct {
	Type     string   `json:"type"`
	Event    string   `json:"event"`
	Name     string   `json:"name"`
	ExecTime *float64 `json:"exec_time"`
	Stdout   string   `json:"stdout"`
	Message  string   `json:"message"`
	Reason   string   `json:"reason"`
	// Suite events only
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Ignored int `json:"ignored"`
}

type fmtFile struct {
	Name       string        `json:"name"`
	Mismatches []fmtMismatch `json:"mismatches"`
}

type fmtMismatch struct {
	OriginalBeginLine uint64 `json:"original_begin_line"`
	OriginalEndLine   uint64 `json:"original_end_line"`
	ExpectedBeginLine uint64 `json:"expected_begin_line"`
	ExpectedEndLine   uint64 `json:"expected_end_line"`
	Original          string `json:"original"`
	Expected          string `json:"expected"`
}
