package core

// Kind says who a displayed message is from.
type Kind int

const (
	// System is text from the server or the client itself.
	System Kind = iota
	// Own is a chat message the local user sent.
	Own
	// Peer is a decrypted message from the chat partner.
	Peer
)

func (k Kind) String() string {
	switch k {
	case System:
		return "system"
	case Own:
		return "own"
	case Peer:
		return "peer"
	default:
		return "unknown"
	}
}

// Message is one line for the user to read.  From is the username for
// Own and Peer messages and empty for System.
type Message struct {
	Kind Kind
	From string
	Text string
}

// Notifier is how the client reaches the user interface.  Methods are
// called from both the foreground and the receive goroutine and must
// not call back into the Client synchronously.
type Notifier interface {
	DisplayMessage(Message)
	SetStatus(status string)
}

type nopNotifier struct{}

func (nopNotifier) DisplayMessage(Message) {}
func (nopNotifier) SetStatus(string)       {}

// ── State ────────────────────────────────────────────────────────────

// State is the client's position in the connect → authenticate → chat
// sequence.
type State int

const (
	Disconnected State = iota
	Connected
	Authenticating
	Chatting
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Authenticating:
		return "authenticating"
	case Chatting:
		return "chatting"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
