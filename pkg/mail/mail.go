// Package mail delivers plain-text notification messages.
package mail

import (
	"context"
	"net/mail"
)

// Message is a single addressed email.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
}

// Sender delivers one message or returns an error.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// FormatAddress renders a display-name mailbox such as `"HW Peer Tutoring" <uspeertutoring@hw.com>`.
func FormatAddress(name, address string) string {
	if name == "" {
		return address
	}
	return (&mail.Address{Name: name, Address: address}).String()
}
