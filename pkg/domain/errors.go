package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSchemaNotFound is returned when a schema ID is not known to a registry or loader.
var ErrSchemaNotFound = errors.New("schema not found")
