package dispatch

import "tg_joke_bot/internal/stats"

// Sender identifies the user behind an inbound event.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

func (s Sender) identity() stats.Identity {
	return stats.Identity{
		UserID:    s.ID,
		Username:  s.Username,
		FirstName: s.FirstName,
		LastName:  s.LastName,
	}
}

// Event is one of Command, Callback or TextMessage.
type Event interface {
	sender() Sender
	chat() int64
}

// Command is a slash command such as "/joke cats". Name keeps the leading
// slash and is lower-cased; Args holds the rest of the message.
type Command struct {
	From   Sender
	ChatID int64
	Name   string
	Args   string
}

// Callback is an inline button press.
type Callback struct {
	From Sender
	// ID acknowledges the press.
	ID     string
	ChatID int64
	// MessageID is the message carrying the pressed keyboard.
	MessageID int
	Data      string
}

// TextMessage is free text that is not a command.
type TextMessage struct {
	From   Sender
	ChatID int64
	Text   string
}

func (c Command) sender() Sender     { return c.From }
func (c Callback) sender() Sender    { return c.From }
func (m TextMessage) sender() Sender { return m.From }

func (c Command) chat() int64     { return c.ChatID }
func (c Callback) chat() int64    { return c.ChatID }
func (m TextMessage) chat() int64 { return m.ChatID }
