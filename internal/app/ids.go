package app

import "github.com/google/uuid"

func newID() string { return uuid.NewString() }

// ValidID reports whether id could have been issued by the service.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
