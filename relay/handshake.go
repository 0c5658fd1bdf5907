package relay

import (
	stderrors "errors"
	"fmt"
	"log/slog"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/services"
)

// Rejection describes a refused handshake: the reason line sent to the
// peer and the underlying cause for errors.Is classification.
type Rejection struct {
	Reason string
	Cause  error
}

func (r *Rejection) Error() string {
	return r.Reason
}

func (r *Rejection) Unwrap() error {
	return r.Cause
}

// AsRejection extracts a Rejection from a handshake error. A handshake
// error that is not a Rejection is a transport failure: the connection
// is closed without sending anything.
func AsRejection(err error) (*Rejection, bool) {
	var rejection *Rejection
	ok := stderrors.As(err, &rejection)
	return rejection, ok
}

// Handshake drives the fixed login/registration exchange that gates a
// raw connection before it is promoted to a Session.
//
// States: await mode, await username, await password, then admitted or
// rejected. Every input is normalized (trimmed, lower-cased) as it is
// read. Any transport error aborts immediately without consulting the
// credential store further.
type Handshake struct {
	authService services.IAuthService
	log         *slog.Logger
}

func NewHandshake(authService services.IAuthService, log *slog.Logger) *Handshake {
	return &Handshake{authService: authService, log: log}
}

// Run executes the exchange on conn and returns the admitted username.
// A nil error means admission; the caller owns the Session construction
// and registry insertion. A *Rejection error means the caller must send
// the rejection line and close; any other error means the transport
// already failed.
func (h *Handshake) Run(conn *Conn) (string, error) {
	if err := conn.SendLine(domain.PromptMode); err != nil {
		return "", err
	}
	mode, err := conn.ReceiveLine()
	if err != nil {
		return "", err
	}
	mode = domain.Normalize(mode)

	if mode != domain.ModeLogin && mode != domain.ModeRegister {
		return "", &Rejection{Reason: "Invalid selection", Cause: errors.ErrInvalidSelection}
	}

	if err := conn.SendLine(domain.PromptUsername); err != nil {
		return "", err
	}
	username, err := conn.ReceiveLine()
	if err != nil {
		return "", err
	}
	username = domain.Normalize(username)

	if err := conn.SendLine(domain.PromptPassword); err != nil {
		return "", err
	}
	password, err := conn.ReceiveLine()
	if err != nil {
		return "", err
	}
	password = domain.Normalize(password)

	switch mode {
	case domain.ModeRegister:
		if err := h.authService.Register(username, password); err != nil {
			return "", &Rejection{Reason: fmt.Sprintf("Registration failed: %v", err), Cause: err}
		}
	case domain.ModeLogin:
		if err := h.authService.Login(username, password); err != nil {
			return "", &Rejection{Reason: "Login failed: invalid credentials", Cause: err}
		}
	}

	h.log.Debug("handshake admitted", "user", username, "mode", mode)
	return username, nil
}
