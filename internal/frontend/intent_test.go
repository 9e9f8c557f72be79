package frontend

import (
	"fmt"
	"testing"

	"linechat/internal/core"
	ncerr "linechat/internal/errors"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		in   string
		want Intent
	}{
		{"hello there", Intent{Kind: IntentChat, Arg: "hello there"}},
		{"  spaced  ", Intent{Kind: IntentChat, Arg: "  spaced  "}},
		{"", Intent{Kind: IntentChat}},
		{"/connect bob", Intent{Kind: IntentConnect, Arg: "bob"}},
		{"/CONNECT   bob  ", Intent{Kind: IntentConnect, Arg: "bob"}},
		{"/connect", Intent{Kind: IntentConnect}},
		{"/disconnect", Intent{Kind: IntentDisconnect}},
		{"/list", Intent{Kind: IntentList}},
		{"/users", Intent{Kind: IntentList}},
		{"/quit", Intent{Kind: IntentQuit}},
		{"/exit", Intent{Kind: IntentQuit}},
		{" /help", Intent{Kind: IntentHelp}},
		{"/shrug ok", Intent{Kind: IntentChat, Arg: "/shrug ok"}},
		{"line\r\n", Intent{Kind: IntentChat, Arg: "line"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseIntent(tt.in); got != tt.want {
				t.Errorf("ParseIntent(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestErrorNotice(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ncerr.ErrNoPartner, "Please connect to a user first!"},
		{fmt.Errorf("chat: %w", ncerr.ErrNoPartner), "Please connect to a user first!"},
		{ncerr.ErrEmptyUsername, "Usage: /connect <user>"},
		{ncerr.ErrNotChatting, "Not logged in"},
		{ncerr.ErrClientClosed, "Connection is closed"},
		{fmt.Errorf("boom"), "boom"},
	}
	for _, tt := range tests {
		if got := ErrorNotice(tt.err); got != tt.want {
			t.Errorf("ErrorNotice(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		m    core.Message
		want string
	}{
		{core.Message{Kind: core.System, Text: "x"}, "[SYSTEM]"},
		{core.Message{Kind: core.Own, From: "alice"}, "[You]"},
		{core.Message{Kind: core.Peer, From: "bob"}, "[bob]"},
		{core.Message{Kind: core.Peer}, "[Peer]"},
	}
	for _, tt := range tests {
		if got := Label(tt.m); got != tt.want {
			t.Errorf("Label(%+v) = %q, want %q", tt.m, got, tt.want)
		}
	}
}

func TestDispatch_NotLoggedIn(t *testing.T) {
	client := core.NewClient(core.Options{})
	rec := &recorder{}

	for _, in := range []Intent{
		{Kind: IntentList},
		{Kind: IntentDisconnect},
		{Kind: IntentConnect, Arg: "bob"},
		{Kind: IntentChat, Arg: "hi"},
	} {
		if Dispatch(client, rec, in) {
			t.Errorf("%+v should not quit", in)
		}
	}
	texts := rec.texts()
	if len(texts) != 4 {
		t.Fatalf("got %d notices, want 4: %q", len(texts), texts)
	}
	for _, got := range texts {
		if got != "Not logged in" {
			t.Errorf("notice = %q, want %q", got, "Not logged in")
		}
	}
}

func TestDispatch_HelpAndQuit(t *testing.T) {
	client := core.NewClient(core.Options{})
	rec := &recorder{}

	if Dispatch(client, rec, Intent{Kind: IntentHelp}) {
		t.Error("help should not quit")
	}
	if got := rec.texts(); len(got) != len(HelpText) {
		t.Errorf("help printed %d lines, want %d", len(got), len(HelpText))
	}
	if !Dispatch(client, rec, Intent{Kind: IntentQuit}) {
		t.Error("quit should quit")
	}
}

func TestDispatch_EmptyConnect(t *testing.T) {
	client := core.NewClient(core.Options{})
	rec := &recorder{}
	Dispatch(client, rec, ParseIntent("/connect"))
	if got := rec.texts(); len(got) != 1 || got[0] != "Usage: /connect <user>" {
		t.Errorf("notices = %q", got)
	}
}
