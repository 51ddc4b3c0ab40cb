package services

import "fmt"

// AdapterErrorKind distinguishes an engine that is not usable at all from one
// that accepted the input and failed on it.
type AdapterErrorKind int

const (
	// AdapterUnavailable means the engine could not be used: model not
	// loaded, missing system dependency, endpoint not configured.
	AdapterUnavailable AdapterErrorKind = iota
	// AdapterEngineFailure means the engine ran and failed on this input.
	AdapterEngineFailure
)

// AdapterError is the only error type extraction and synthesis adapters
// return. The pipeline matches on Kind to pick a degrade path; adapter
// failures never abort a request.
type AdapterError struct {
	Kind   AdapterErrorKind
	Detail string
}

func (e *AdapterError) Error() string {
	switch e.Kind {
	case AdapterUnavailable:
		return "adapter unavailable: " + e.Detail
	default:
		return "adapter failure: " + e.Detail
	}
}

// Unavailable builds an AdapterError for an engine that cannot be used.
func Unavailable(format string, args ...interface{}) *AdapterError {
	return &AdapterError{Kind: AdapterUnavailable, Detail: fmt.Sprintf(format, args...)}
}

// EngineFailure builds an AdapterError for an engine that failed on input.
func EngineFailure(format string, args ...interface{}) *AdapterError {
	return &AdapterError{Kind: AdapterEngineFailure, Detail: fmt.Sprintf(format, args...)}
}

// TextStatus classifies a text extraction outcome so merge logic branches on
// a type instead of comparing against sentinel strings.
type TextStatus int

const (
	// TextFound means the source yielded genuine text.
	TextFound TextStatus = iota
	// NoTextDetected means extraction ran cleanly but found nothing.
	NoTextDetected
	// SourceUnavailable means extraction could not run; Message carries the
	// user-displayable explanation.
	SourceUnavailable
)

// TextOutcome is the tri-state result of a text extraction stage.
type TextOutcome struct {
	Status  TextStatus
	Text    string
	Message string
}

// FoundText wraps genuine extracted text.
func FoundText(text string) TextOutcome {
	return TextOutcome{Status: TextFound, Text: text}
}

// NoText marks a clean extraction with no content.
func NoText() TextOutcome {
	return TextOutcome{Status: NoTextDetected}
}

// UnavailableText marks a stage that could not run, with a displayable
// explanation.
func UnavailableText(message string) TextOutcome {
	return TextOutcome{Status: SourceUnavailable, Message: message}
}
