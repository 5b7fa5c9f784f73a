package xbrl

import "fmt"

// DocumentParseError reports bytes that are not well-formed XML. It is fatal
// for the one document being parsed.
type DocumentParseError struct {
	Err error
}

func (e *DocumentParseError) Error() string {
	return fmt.Sprintf("xbrl: parse document: %v", e.Err)
}

func (e *DocumentParseError) Unwrap() error {
	return e.Err
}

// ValueParseError reports fact text that is not a number. The resolver treats
// it as a non-matching candidate and keeps scanning.
type ValueParseError struct {
	Text string
}

func (e *ValueParseError) Error() string {
	return fmt.Sprintf("xbrl: parse amount %q", e.Text)
}
