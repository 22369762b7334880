package utils

import "github.com/google/uuid"

// GenerateID returns a random UUID v4 string used as a recording key.
func GenerateID() string {
	return uuid.NewString()
}

// ValidID reports whether s parses as a UUID.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
