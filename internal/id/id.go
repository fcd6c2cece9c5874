package id

import "github.com/google/uuid"

// GenerateID creates a unique record identifier.
func GenerateID() string {
	return uuid.NewString()
}
