package harbormaster

// types.go defines the wire format of harbormaster.sendmessage.

// Severity of a lint message as understood by Harbormaster
type Severity string

const (
	SeverityAdvice  Severity = "advice"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Result of a unit test as understood by Harbormaster
type Result string

const (
	ResultPass   Result = "pass"
	ResultFail   Result = "fail"
	ResultSkip   Result = "skip"
	// Outcome with a status we do not recognise
	ResultBroken Result = "broken"
)

// MessageType tells Harbormaster whether the build target keeps running
type MessageType string

const (
	MessageTypeWork MessageType = "work"
	MessageTypePass MessageType = "pass"
	MessageTypeFail MessageType = "fail"
)

// Lint is one inline lint message
type Lint struct {
	// Short summary shown inline
	Name string `json:"name"`
	// Diagnostic code (e.g. E0308, RUSTFMT)
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	// Path relative to the repository root
	Path string `json:"path"`
	// 1-based line, omitted for messages without a location
	Line *int `json:"line,omitempty"`
	// 1-based column
	Char *int `json:"char,omitempty"`
	// Remarkup body
	Description string `json:"description,omitempty"`
}

// Unit is one unit test result
type Unit struct {
	Name   string `json:"name"`
	Result Result `json:"result"`
	Engine string `json:"engine,omitempty"`
	// Seconds, zero when unknown
	Duration float64 `json:"duration"`
	// Failure output, empty for passing tests
	Details string `json:"details"`
}

// Payload is everything sent in one harbormaster.sendmessage call
type Payload struct {
	BuildTargetPHID string      `json:"buildTargetPHID"`
	Type            MessageType `json:"type"`
	Lint            []Lint      `json:"lint"`
	Unit            []Unit      `json:"unit"`
}

type conduitAuth struct {
	Token string `json:"token"`
}

// params is the JSON document sent in the "params" form field
type params struct {
	Payload
	Conduit conduitAuth `json:"__conduit__"`
}

// conduitResponse is the envelope of every Conduit response
type conduitResponse struct {
	Result    any     `json:"result"`
	ErrorCode *string `json:"error_code"`
	ErrorInfo *string `json:"error_info"`
}
