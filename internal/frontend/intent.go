// Package frontend holds the user interfaces for linechat: a
// line-oriented console and a full-screen terminal UI.  Both implement
// core.Frontend and share the intent parser below.
package frontend

import (
	"errors"
	"strings"

	"linechat/internal/core"
	ncerr "linechat/internal/errors"
)

// IntentKind is what the user asked for.
type IntentKind int

const (
	IntentChat IntentKind = iota
	IntentConnect
	IntentDisconnect
	IntentList
	IntentQuit
	IntentHelp
)

// Intent is one parsed line of user input.
type Intent struct {
	Kind IntentKind
	Arg  string // message text for IntentChat, username for IntentConnect
}

// HelpText lists the commands, one per line.
var HelpText = []string{
	"/connect <user>   start a chat with <user>",
	"/disconnect       leave the current chat",
	"/list             show online users",
	"/quit, /exit      leave linechat",
	"/help             show this help",
	"anything else is sent to your chat partner",
}

// ParseIntent maps input to an intent.  It never fails: text that is
// not a known command is a chat message.
func ParseIntent(input string) Intent {
	input = strings.TrimRight(input, "\r\n")
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return Intent{Kind: IntentChat, Arg: input}
	}

	cmd, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(cmd) {
	case "/connect":
		return Intent{Kind: IntentConnect, Arg: arg}
	case "/disconnect":
		return Intent{Kind: IntentDisconnect}
	case "/list", "/users":
		return Intent{Kind: IntentList}
	case "/quit", "/exit":
		return Intent{Kind: IntentQuit}
	case "/help", "/?":
		return Intent{Kind: IntentHelp}
	default:
		return Intent{Kind: IntentChat, Arg: input}
	}
}

// Dispatch carries out in against c.  Failures and help text are
// reported through n.  It returns true when the user asked to quit.
func Dispatch(c *core.Client, n core.Notifier, in Intent) (quit bool) {
	var err error
	switch in.Kind {
	case IntentQuit:
		return true
	case IntentHelp:
		for _, line := range HelpText {
			n.DisplayMessage(core.Message{Kind: core.System, Text: line})
		}
		return false
	case IntentConnect:
		err = c.ConnectPeer(in.Arg)
	case IntentDisconnect:
		err = c.DisconnectPeer()
	case IntentList:
		err = c.ListUsers()
	default:
		err = c.SendChat(in.Arg)
	}
	if err != nil {
		n.DisplayMessage(core.Message{Kind: core.System, Text: ErrorNotice(err)})
	}
	return false
}

// ErrorNotice turns a command error into text for the user.
func ErrorNotice(err error) string {
	switch {
	case errors.Is(err, ncerr.ErrNoPartner):
		return "Please connect to a user first!"
	case errors.Is(err, ncerr.ErrEmptyUsername):
		return "Usage: /connect <user>"
	case errors.Is(err, ncerr.ErrNotChatting):
		return "Not logged in"
	case errors.Is(err, ncerr.ErrClientClosed):
		return "Connection is closed"
	default:
		return err.Error()
	}
}

// Label returns the prefix shown before a message.
func Label(m core.Message) string {
	switch m.Kind {
	case core.Own:
		return "[You]"
	case core.Peer:
		if m.From == "" {
			return "[Peer]"
		}
		return "[" + m.From + "]"
	default:
		return "[SYSTEM]"
	}
}
