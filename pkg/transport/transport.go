// Package transport defines the chat-transport contract consumed by the
// prompt engine and the command layer. Concrete implementations live under
// pkg/channels (discord, telegram, console).
package transport

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrReactionsUnsupported is returned by transports that cannot attach or
// observe reactions (telegram, console).
var ErrReactionsUnsupported = errors.New("transport: reactions not supported")

// Message is an inbound or sent chat message.
type Message struct {
	ID         string
	ChannelID  string
	AuthorID   string
	AuthorName string
	Content    string
	Timestamp  time.Time
}

// Ref returns the message's reference for edit/delete/react calls.
func (m *Message) Ref() MessageRef {
	return MessageRef{ChannelID: m.ChannelID, MessageID: m.ID}
}

// MessageRef identifies one message on one channel.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// IsZero reports whether the ref points at nothing.
func (r MessageRef) IsZero() bool {
	return r.MessageID == ""
}

// Emoji identifies a reaction emoji. Custom emoji carry an ID and a name;
// unicode emoji carry only the glyph in Name.
type Emoji struct {
	ID   string
	Name string
}

// ParseEmoji turns an allow-list literal into an Emoji. "name:id" denotes a
// custom emoji; anything else is treated as a unicode glyph.
func ParseEmoji(s string) Emoji {
	if name, id, ok := strings.Cut(s, ":"); ok && name != "" && id != "" {
		return Emoji{ID: id, Name: name}
	}
	return Emoji{Name: s}
}

// Identity returns the stable identity used for validation: the custom
// emoji ID when present, else the visible name.
func (e Emoji) Identity() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Name
}

// APIName returns the wire form expected by reaction endpoints: "name:id"
// for custom emoji, the glyph itself otherwise.
func (e Emoji) APIName() string {
	if e.ID != "" {
		return e.Name + ":" + e.ID
	}
	return e.Name
}

// ReactionEvent is one user adding one reaction to one message.
type ReactionEvent struct {
	Message MessageRef
	UserID  string
	Emoji   Emoji
}

// MessageFilter decides whether an incoming message satisfies a waiter.
// Returning true consumes the event.
type MessageFilter func(*Message) bool

// ReactionFilter decides whether a reaction event satisfies a waiter. The
// transport invokes it for every reaction added to the awaited message, so
// decorators (e.g. the reaction scrubber) observe non-matching events too.
type ReactionFilter func(*ReactionEvent) bool

// Capabilities reports what a transport can do beyond plain messages.
type Capabilities struct {
	Reactions bool
}

// Transport is the contract the prompt engine and commands operate against.
// Await calls block until a qualifying event arrives or ctx is done; the
// ctx error is returned as-is so callers can distinguish deadline from
// cancellation.
type Transport interface {
	// Send posts content to a channel and returns the created message.
	Send(ctx context.Context, channelID, content string) (*Message, error)

	// Edit replaces the content of a previously sent message.
	Edit(ctx context.Context, ref MessageRef, content string) error

	// Delete removes a message. Deleting an already-gone message is not an
	// error.
	Delete(ctx context.Context, ref MessageRef) error

	// React attaches an emoji reaction to a message as the bot.
	React(ctx context.Context, ref MessageRef, emoji Emoji) error

	// Unreact removes the given user's reaction from a message. An empty
	// userID removes the bot's own reaction.
	Unreact(ctx context.Context, ref MessageRef, emoji Emoji, userID string) error

	// AwaitMessage returns the first message on channelID accepted by
	// filter.
	AwaitMessage(ctx context.Context, channelID string, filter MessageFilter) (*Message, error)

	// AwaitReaction returns the first reaction on ref accepted by filter.
	AwaitReaction(ctx context.Context, ref MessageRef, filter ReactionFilter) (*ReactionEvent, error)

	// Capabilities reports optional transport features.
	Capabilities() Capabilities
}
