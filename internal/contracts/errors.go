package contracts

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSourceUnavailable: network failure, non-2xx or timeout from an exchange
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrMalformedRecord: a raw row is missing a required field or fails to parse
	ErrMalformedRecord = errors.New("malformed record")
	// ErrNoCandidate: no bar satisfies the main-contract rules for a day
	ErrNoCandidate = errors.New("no main contract candidate")
	// ErrNotFound: the requested row does not exist
	ErrNotFound = errors.New("not found")
)

// SourceError reports a failed bulletin fetch for one exchange and day
type SourceError struct {
	Exchange Exchange
	Day      time.Time
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Exchange, e.Day.Format("2006-01-02"), ErrSourceUnavailable, e.Err)
}

func (e *SourceError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.Err}
}

// Unavailable wraps err as a SourceError
func Unavailable(exchange Exchange, day time.Time, err error) error {
	return &SourceError{Exchange: exchange, Day: day, Err: err}
}

// RecordError reports one dropped bulletin row
type RecordError struct {
	Exchange Exchange
	Code     string
	Field    string
	Err      error
}

func (e *RecordError) Error() string {
	msg := fmt.Sprintf("%s %q: %v", e.Exchange, e.Code, ErrMalformedRecord)
	if e.Field != "" {
		msg += ": field " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RecordError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedRecord}
	}
	return []error{ErrMalformedRecord, e.Err}
}

// Malformed builds a RecordError
func Malformed(exchange Exchange, code, field string, err error) error {
	return &RecordError{Exchange: exchange, Code: code, Field: field, Err: err}
}
