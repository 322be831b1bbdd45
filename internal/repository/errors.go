// Package repository implements MySQL persistence for users, tokens,
// events and reservations, plus the transactional store the reservation
// service runs on.  Sentinel errors shared by multiple repositories live
// in this file.
package repository

import "errors"

// ErrEventNotFound is returned by event lookups when no row matches.
var ErrEventNotFound = errors.New("event not found")
