package commands

import (
	"context"
	"fmt"
	"time"

	"vancedhelper/pkg/version"
)

var processStartTime = time.Now()

// RegisterBuiltinCommands registers the commands with no dependencies.
func RegisterBuiltinCommands(registry *Registry) error {
	builtins := []*Command{
		{
			Name:        "ping",
			Description: "Check that the bot is alive",
			Usage:       "ping",
			Handler:     pingHandler,
		},
		{
			Name:        "version",
			Description: "Show the bot version",
			Usage:       "version",
			Handler:     versionHandler,
		},
	}

	for _, cmd := range builtins {
		if err := registry.Register(cmd); err != nil {
			return fmt.Errorf("failed to register %s: %w", cmd.Name, err)
		}
	}

	return nil
}

// pingHandler handles the ping command.
func pingHandler(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	return CommandResponse{Content: "Pong! 🏓"}, nil
}

// versionHandler handles the version command.
func versionHandler(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	return CommandResponse{Content: version.GetFullVersion()}, nil
}
