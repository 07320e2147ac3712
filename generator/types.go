package generator

import "auto_report_author/document"

// Call is one generation step: what to send and how to read the answer.
type Call struct {
	Instruction string
	Prior       []document.Section
	Task        string
	// Post turns the raw completion into the value the caller keeps. Returning an
	// error wrapping ErrMalformedOutput makes the call retry.
	Post func(raw string) (string, error)
}

// Result is the outcome of a successful Call.
type Result struct {
	Text        string
	Fingerprint string
	Attempts    int
	Included    []string
	Omitted     []string
}
