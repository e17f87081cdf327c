package pagination

import "fmt"

// MappingError reports a raw record that lacks a field the output shape requires.
type MappingError struct {
	Kind     string
	Field    string
	Position int
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%s %d in batch: missing or invalid %s", e.Kind, e.Position, e.Field)
}
