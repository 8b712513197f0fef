// Package channels provides the channel interface and manager wiring
// chat platforms to the command and prompt layers.
package channels

import (
	"context"

	"vancedhelper/pkg/transport"
)

// Channel represents one chat platform connection (Discord, Telegram,
// console).
type Channel interface {
	// ID returns the unique channel identifier.
	ID() string

	// Name returns the human-readable channel name.
	Name() string

	// Start connects the channel and begins dispatching. It blocks for
	// channels that own their own receive loop.
	Start(ctx context.Context) error

	// Stop disconnects the channel gracefully.
	Stop(ctx context.Context) error

	// IsEnabled reports whether the channel is enabled in configuration.
	IsEnabled() bool

	// Running reports whether the channel is currently connected.
	Running() bool

	// Transport returns the channel's transport for sends outside the
	// dispatch path, such as reminder delivery.
	Transport() transport.Transport
}

// Status is one channel's state for status surfaces.
type Status struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Running bool   `json:"running"`
}
