package services

import "strings"

// ValidationError carries the full ordered list of user-facing messages for a
// request whose fields failed validation. Nothing is persisted when it is
// returned.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}
