// Package commands provides a unified command system for channels.
package commands

import (
	"context"

	"vancedhelper/pkg/transport"
)

// Command represents a chat command that can be executed.
type Command struct {
	// Name is the command name (without the prefix)
	Name string
	// Description is a short description of what the command does
	Description string
	// Usage shows how to use the command
	Usage string
	// Handler is the function that executes the command
	Handler CommandHandler
}

// CommandHandler is a function that handles a command.
type CommandHandler func(ctx context.Context, req CommandRequest) (CommandResponse, error)

// CommandRequest contains information about a command invocation.
type CommandRequest struct {
	// Channel is the channel name (discord, telegram, console)
	Channel string
	// ChannelID identifies the conversation
	ChannelID string
	// UserID identifies the user who invoked the command
	UserID string
	// Username is the display name of the user
	Username string
	// Command is the command name
	Command string
	// Args are the command arguments (text after the command)
	Args string
	// Transport is the originating channel's transport, for handlers
	// that open prompt sessions or post follow-up messages
	Transport transport.Transport
	// Trigger references the invoking message
	Trigger transport.MessageRef
}

// CommandResponse contains the command execution result. An empty
// Content means the handler already said everything it had to say.
type CommandResponse struct {
	Content string
}
