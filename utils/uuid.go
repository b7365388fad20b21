package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new unique identifier string
func GenerateID() string {
	return uuid.New().String()
}

// ShortID returns the first 8 characters of a new identifier, used to tag connections in logs
func ShortID() string {
	return uuid.New().String()[:8]
}
