package core

import (
	"errors"
	"fmt"

	"linechat/internal/cipher"
	ncerr "linechat/internal/errors"
	"linechat/internal/protocol"
	"linechat/internal/session"
)

// Fixed notices shown by the receive loop.
const (
	noticeKeyEstablished = "Secure encryption key established"
	noticeUndecryptable  = "[Unable to decrypt - no key]"
)

// receive reads and applies lines until stop is closed or the
// connection fails.  It is the only reader of sess once the client is
// Chatting.
func (c *Client) receive(sess *session.Session, stop <-chan struct{}, done chan<- struct{}) {
	defer c.wg.Done()
	defer close(done)

	c.logger.Debug("receive loop started")
	for {
		select {
		case <-stop:
			c.logger.Debug("receive loop stopped")
			return
		default:
		}

		line, err := sess.ReadLine()
		if err != nil {
			select {
			case <-stop:
				c.logger.Debug("receive loop stopped")
				return
			default:
			}
			c.teardown(sess, lossNotice(err), false)
			return
		}
		if line == "" {
			continue
		}

		c.logger.Debug("<- %s", line)
		c.apply(sess, protocol.Classify(line, sess.Username()))
	}
}

func lossNotice(err error) string {
	switch {
	case errors.Is(err, ncerr.ErrFrameOverflow):
		return "Server sent an oversized line; connection dropped"
	case errors.Is(err, ncerr.ErrTransportClosed):
		return "Connection closed by server"
	default:
		return fmt.Sprintf("Connection error: %v", err)
	}
}

// apply performs the side effects of one inbound event.
func (c *Client) apply(sess *session.Session, ev protocol.Event) {
	switch ev := ev.(type) {
	case protocol.SessionKeyIssued:
		sess.SetKey(ev.Key)
		c.logger.Verbose("session key received")
		c.system(noticeKeyEstablished)

	case protocol.EncryptedMessage:
		key := sess.Key()
		if key == "" {
			c.metrics.Undecryptable()
			c.logger.Warn("%v", ncerr.ErrDecodeUnavailable)
			c.system(noticeUndecryptable)
			return
		}
		c.notifier.DisplayMessage(Message{
			Kind: Peer,
			From: sess.Partner(),
			Text: cipher.Decode(ev.Ciphertext, key),
		})

	case protocol.PeerConnected:
		if ev.Partner == "" {
			c.system("%s", ev.Line())
			return
		}
		sess.SetPartner(ev.Partner)
		c.system("Connected with %s", ev.Partner)
		c.notifier.SetStatus("Chatting with " + ev.Partner)

	case protocol.ChatMessage:
		if ev.Own {
			c.metrics.EchoSuppressed()
			return
		}
		c.system("%s", ev.Line())

	case protocol.PeerDisconnected:
		prev := sess.ClearPartner()
		c.logger.Verbose("chat with %q ended", prev)
		if ev.Reason != "" {
			c.system("%s", ev.Reason)
		} else {
			c.system("Chat ended")
		}
		c.notifier.SetStatus("Logged in as " + sess.Username())

	default:
		c.system("%s", ev.Line())
	}
}
