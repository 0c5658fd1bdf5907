// Package domain contains core concepts of the chat relay.
// This file defines Credential records and the normalization rules
// applied to every line read during the handshake.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Credential is one row of the persistent user table.
// The username is the unique identity key and is stored lower-cased.
// A credential is written once at registration and never mutated.
type Credential struct {
	ID        uuid.UUID
	Username  string
	Password  string
	CreatedAt time.Time
}

// Normalize applies the canonical form used for every handshake input:
// surrounding whitespace removed, lower-cased.
func Normalize(line string) string {
	return strings.ToLower(strings.TrimSpace(line))
}
