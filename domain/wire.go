// Package domain contains core concepts of the chat relay.
// This file defines the line-oriented wire vocabulary spoken between
// server and client. Payloads are limited to printable ASCII.
package domain

import "fmt"

// Handshake prompts, in the order the server sends them.
const (
	PromptMode     = "Login or Registration? (L) (R)"
	PromptUsername = "Enter username"
	PromptPassword = "Enter password"
)

// Mode selectors accepted in response to PromptMode, after Normalize.
const (
	ModeLogin    = "l"
	ModeRegister = "r"
)

// TerminateToken is the reserved literal a client sends to request a
// graceful close of its own session.
const TerminateToken = "TERM"

// NoticeDisconnected is sent best-effort to a session's own connection
// before its transport is closed.
const NoticeDisconnected = "Disconnected"

// RejectLine is the single message a rejected connection receives before
// the server closes it.
func RejectLine(reason string) string {
	return fmt.Sprintf("Entry forbidden. %s\n%s", reason, NoticeDisconnected)
}

// ChatLine is a relayed message as seen by every member except the sender.
func ChatLine(sender, text string) string {
	return fmt.Sprintf("%s: %s", sender, text)
}

// JoinedLine announces a new member to the rest of the room.
func JoinedLine(username string) string {
	return fmt.Sprintf("%s has joined the chatroom", username)
}

// LeftLine announces a departure to the remaining members.
func LeftLine(username string) string {
	return fmt.Sprintf("%s has left the chatroom", username)
}
