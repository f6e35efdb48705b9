package ontology

import (
	"errors"
	"fmt"
)

// DuplicateEntityError is returned when an entity with the same canonical
// value and type already exists.
type DuplicateEntityError struct {
	Value      string
	Type       string
	ExistingID string
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("entity %q (%s) already exists as %s", e.Value, e.Type, e.ExistingID)
}

// DanglingReferenceError is returned when a relationship or knowledge
// element references an entity that is not in the store.
type DanglingReferenceError struct {
	MissingID string
	Operation string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s references missing entity %s", e.Operation, e.MissingID)
}

// NotFoundError is returned by lookups for absent IDs.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
