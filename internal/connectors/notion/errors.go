package notion

import (
	"errors"
	"fmt"
)

// Notion connector errors.
var (
	// ErrEmptyFilter indicates a filter expression with no conditions.
	ErrEmptyFilter = errors.New("notion: empty filter expression")

	// ErrNoTargets indicates a bulk update without page IDs or a database.
	ErrNoTargets = errors.New("notion: no target pages")

	// ErrNoUpdates indicates a bulk update without property changes.
	ErrNoUpdates = errors.New("notion: no property updates")

	// ErrUnknownProperty indicates a property name missing from the schema.
	ErrUnknownProperty = errors.New("notion: unknown property")

	// ErrUnsupportedProperty indicates a property type that cannot be set from text.
	ErrUnsupportedProperty = errors.New("notion: unsupported property type")
)

// FilterError reports a problem in a filter expression.
type FilterError struct {
	// Pos is the byte offset in the expression where the problem was found.
	Pos int
	// Msg describes the problem.
	Msg string
	// Err is an optional underlying sentinel (e.g. ErrUnknownProperty).
	Err error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("notion: invalid filter at offset %d: %s", e.Pos, e.Msg)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}
