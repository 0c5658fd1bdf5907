package errors

import "fmt"

var (
	// Handshake taxonomy. Each rejected connection maps to exactly one of
	// these; none of them is fatal to the accept loop.
	ErrInvalidSelection   = fmt.Errorf("invalid selection")
	ErrUserAlreadyExists  = fmt.Errorf("username already taken")
	ErrUnknownUser        = fmt.Errorf("unknown user")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidUsername    = fmt.Errorf("invalid username")
	ErrInvalidPassword    = fmt.Errorf("invalid password")

	// ErrBindExhausted is returned when every candidate port is in use.
	ErrBindExhausted = fmt.Errorf("no free port in range")
)
