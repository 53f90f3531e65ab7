package model

import (
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// TempPrefix marks placeholder ids given to entities created locally and not yet confirmed.
const TempPrefix = "temp-"

// NewTempID returns a unique, time ordered placeholder id.
func NewTempID() string {
	return TempPrefix + ulid.Make().String()
}

// IsTempID reports whether the id is a local placeholder.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempPrefix)
}

// IsServerID reports whether the id was assigned by the server.
func IsServerID(id string) bool {
	_, err := uuid.Parse(id)

	return err == nil
}
