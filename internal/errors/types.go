package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Kind classifies failures so callers can tell "nothing found" apart from
// "could not read the input" or "could not persist the result".
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindNotFound
	KindInputUnreadable
	KindStorage
	KindInconsistency
	KindConflict
	KindUpstream
)

// Error is the typed error returned across package boundaries
type Error struct {
	Kind      Kind      `json:"kind"`
	Op        string    `json:"op"`
	Message   string    `json:"message"`
	Path      string    `json:"path,omitempty"`
	Err       error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// String returns a string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "INVALID_INPUT"
	case KindNotFound:
		return "NOT_FOUND"
	case KindInputUnreadable:
		return "INPUT_UNREADABLE"
	case KindStorage:
		return "STORAGE"
	case KindInconsistency:
		return "INCONSISTENCY"
	case KindConflict:
		return "CONFLICT"
	case KindUpstream:
		return "UPSTREAM"
	default:
		return "UNKNOWN"
	}
}

// IsRecoverable reports whether an operation failing with this kind may be
// retried or answered with a default result.
func (k Kind) IsRecoverable() bool {
	switch k {
	case KindConflict, KindInconsistency, KindUpstream:
		return true
	default:
		return false
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Op != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind
func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:      kind,
		Op:        op,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap wraps err with a kind and operation name. A nil err returns nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:      kind,
		Op:        op,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Wrapf wraps err with a kind, operation name and formatted message
func Wrapf(kind Kind, op string, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:      kind,
		Op:        op,
		Message:   fmt.Sprintf(format, args...),
		Err:       err,
		Timestamp: time.Now(),
	}
}

// WithPath adds file path information to an existing Error
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Collection gathers per-item failures of a batch operation
type Collection struct {
	Errors []*Error `json:"errors"`
}

// NewCollection creates an empty collection
func NewCollection() *Collection {
	return &Collection{Errors: make([]*Error, 0)}
}

// Add records err, converting plain errors to KindUnknown
func (c *Collection) Add(path string, err error) {
	if err == nil {
		return
	}
	var e *Error
	if !stderrors.As(err, &e) {
		e = &Error{Kind: KindUnknown, Err: err, Timestamp: time.Now()}
	}
	if e.Path == "" {
		e.Path = path
	}
	c.Errors = append(c.Errors, e)
}

// Len returns the number of collected errors
func (c *Collection) Len() int {
	return len(c.Errors)
}

// Summary returns a text summary of the collected errors by kind
func (c *Collection) Summary() string {
	if len(c.Errors) == 0 {
		return "No errors"
	}

	byKind := make(map[Kind]int)
	for _, e := range c.Errors {
		byKind[e.Kind]++
	}

	summary := fmt.Sprintf("Found %d error(s)", len(c.Errors))
	for k := KindUnknown; k <= KindUpstream; k++ {
		if n := byKind[k]; n > 0 {
			summary += fmt.Sprintf(", %s: %d", k, n)
		}
	}
	return summary
}
