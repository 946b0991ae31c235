// Package repository holds the database access layer. This file defines
// sentinel errors shared across repositories so handlers can map
// failure scenarios onto HTTP responses without string matching.
package repository

import "errors"

// ErrEmailExists is returned when an insert or update collides with the
// unique email constraint. Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")
