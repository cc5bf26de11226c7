package harbormaster

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed submission
type ErrorKind uint8

const (
	// Transport failures and gateway errors, retried once
	ErrorKindNetwork ErrorKind = iota + 1
	// Invalid or missing credentials
	ErrorKindAuth
	// The server refused the payload
	ErrorKindRejected
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNetwork:
		return "network"
	case ErrorKindAuth:
		return "auth"
	case ErrorKindRejected:
		return "rejected"
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// SubmissionError is returned by Client.Submit
type SubmissionError struct {
	Kind ErrorKind
	// HTTP status, zero when no response was received
	StatusCode int
	// Conduit error code, if the API returned one
	Code string
	Err  error
}

func (e *SubmissionError) Error() string {
	msg := fmt.Sprintf("harbormaster submission failed (%s)", e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a submission error, or zero if err is not one.
func KindOf(err error) ErrorKind {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
