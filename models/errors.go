package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCommentNotFound is returned when a comment id does not resolve to a
// visible comment.
var ErrCommentNotFound = errors.New("comment not found")

// ErrNotCommentAuthor is returned when someone other than the author tries to
// delete a comment.
var ErrNotCommentAuthor = errors.New("only the author may delete this comment")

// ValidationError aggregates per-field rule violations so a client can fix
// every problem in one round trip.
type ValidationError struct {
	Fields map[string][]string
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

func (e *ValidationError) add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e.Fields[f], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
