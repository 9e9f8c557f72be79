// Package protocol defines the chat server's line protocol: the
// outbound command lines the client sends and the markers by which
// inbound lines are recognised.
package protocol

import "strings"

// Inbound markers.
const (
	MarkerSessionKey     = "SESSION_KEY:"
	MarkerEncrypted      = "ENCRYPTED:"
	MarkerConnected      = "CONNECTED:"
	MarkerConnectedFancy = "🎉 CONNECTED:"
	MarkerChat           = "[CHAT]"
	MarkerDisconnected   = "DISCONNECTED:"

	MarkerError           = "ERROR:"
	MarkerRegisterSuccess = "REGISTER_SUCCESS:"
	MarkerLoginSuccess    = "LOGIN_SUCCESS:"
)

// Outbound command tokens.  They are case-sensitive on the server.
const (
	CmdRegister   = "register"
	CmdLogin      = "login"
	CmdConnect    = "connect"
	CmdDisconnect = "disconnect"
	CmdList       = "list"
	CmdExit       = "exit"
)

// AuthMode selects between creating an account and logging in.
type AuthMode string

const (
	ModeRegister AuthMode = CmdRegister
	ModeLogin    AuthMode = CmdLogin
)

// Valid reports whether m is one of the two modes the server accepts.
func (m AuthMode) Valid() bool {
	return m == ModeRegister || m == ModeLogin
}

// AuthLines returns the three lines of an authentication attempt in the
// order the server reads them.
func AuthLines(mode AuthMode, username, password string) []string {
	return []string{string(mode), username, password}
}

// ConnectLine asks the server to pair this client with username.
func ConnectLine(username string) string {
	return CmdConnect + " " + username
}

// ChatLine formats a message addressed to partner.
func ChatLine(partner, text string) string {
	return MarkerChat + "[" + partner + "] " + text
}

// AuthReply is the server's answer to an authentication attempt.
type AuthReply int

const (
	AuthRejected AuthReply = iota
	AuthAccepted
)

// ParseAuthReply interprets the single line the server sends after the
// credentials.  Anything without a recognised success marker is a
// rejection; detail is the server text with its marker removed, or the
// whole line when no marker matched.
func ParseAuthReply(line string) (reply AuthReply, detail string) {
	switch {
	case strings.HasPrefix(line, MarkerError):
		return AuthRejected, strings.TrimPrefix(line, MarkerError)
	case strings.HasPrefix(line, MarkerRegisterSuccess):
		return AuthAccepted, strings.TrimPrefix(line, MarkerRegisterSuccess)
	case strings.HasPrefix(line, MarkerLoginSuccess):
		return AuthAccepted, strings.TrimPrefix(line, MarkerLoginSuccess)
	default:
		return AuthRejected, line
	}
}
