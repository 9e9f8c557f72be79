package protocol

import (
	"strings"
	"unicode"
)

// Event is the classified form of one inbound line.  The concrete types
// below are the only implementations.
type Event interface {
	// Line returns the raw protocol line the event was built from.
	Line() string
	event()
}

type raw struct{ line string }

func (r raw) Line() string { return r.line }
func (raw) event()          {}

// SessionKeyIssued carries the key for decrypting ENCRYPTED payloads.
type SessionKeyIssued struct {
	raw
	Key string
}

// EncryptedMessage is a hex payload from the current partner.
type EncryptedMessage struct {
	raw
	Ciphertext string
}

// PeerConnected reports that the server paired us with Partner.
// Partner is empty when the line named nobody.
type PeerConnected struct {
	raw
	Partner string
}

// PeerDisconnected reports that the pairing ended.
type PeerDisconnected struct {
	raw
	Reason string
}

// ChatMessage is a tagged plaintext chat line relayed by the server.
// Own is set when the sender is the local user, i.e. the server echoing
// our own send back to us.
type ChatMessage struct {
	raw
	Sender string
	Own    bool
}

// SystemNotice is any unmarked server text.
type SystemNotice struct {
	raw
}

// Classify maps a line to its event.  Rules are tried in a fixed order
// and the first match wins, so a line that satisfies several markers
// always resolves the same way.  Classify is total: any input yields an
// event.  localUser is the authenticated username, used to recognise
// echoed chat lines.
func Classify(line, localUser string) Event {
	r := raw{line: line}

	if rest, ok := strings.CutPrefix(line, MarkerSessionKey); ok {
		return SessionKeyIssued{raw: r, Key: rest}
	}

	if rest, ok := strings.CutPrefix(line, MarkerEncrypted); ok {
		return EncryptedMessage{raw: r, Ciphertext: rest}
	}

	if containsConnected(line) {
		return PeerConnected{raw: r, Partner: partnerName(line)}
	}

	if i := strings.Index(line, MarkerChat); i >= 0 {
		sender := chatSender(line[i+len(MarkerChat):])
		own := localUser != "" && strings.EqualFold(sender, localUser)
		return ChatMessage{raw: r, Sender: sender, Own: own}
	}

	if rest, ok := strings.CutPrefix(line, MarkerDisconnected); ok {
		return PeerDisconnected{raw: r, Reason: strings.TrimSpace(rest)}
	}

	return SystemNotice{r}
}

// containsConnected finds MarkerConnected where it is not the tail of a
// longer word.  "DISCONNECTED:" does not count; the decorated form
// "🎉 CONNECTED:" does.
func containsConnected(line string) bool {
	for off := 0; off < len(line); {
		i := strings.Index(line[off:], MarkerConnected)
		if i < 0 {
			return false
		}
		at := off + i
		if at == 0 || !isLetter(line[at-1]) {
			return true
		}
		off = at + len(MarkerConnected)
	}
	return false
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// partnerName returns the text after the first "with " with every
// whitespace character removed.
func partnerName(line string) string {
	_, after, ok := strings.Cut(line, "with ")
	if !ok {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, after)
}

// chatSender extracts the first bracketed token from the text that
// follows the chat tag.
func chatSender(s string) string {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(s[start+1:], ']')
	if end < 0 {
		return ""
	}
	return s[start+1 : start+1+end]
}
