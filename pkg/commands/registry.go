package commands

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultPrefix marks command messages when no prefix is configured.
const DefaultPrefix = "!"

// Registry manages command registration and lookup.
type Registry struct {
	prefix   string
	commands map[string]*Command
	mu       sync.RWMutex
}

// NewRegistry creates a new command registry using the given prefix.
func NewRegistry(prefix string) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Registry{
		prefix:   prefix,
		commands: make(map[string]*Command),
	}
}

// Prefix returns the configured command prefix.
func (r *Registry) Prefix() string {
	return r.prefix
}

// Register registers a new command.
func (r *Registry) Register(cmd *Command) error {
	if cmd == nil {
		return fmt.Errorf("command cannot be nil")
	}

	if cmd.Name == "" {
		return fmt.Errorf("command name cannot be empty")
	}

	cmd.Name = strings.ToLower(strings.TrimPrefix(cmd.Name, r.prefix))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[cmd.Name]; exists {
		return fmt.Errorf("command %s already registered", cmd.Name)
	}

	r.commands[cmd.Name] = cmd
	return nil
}

// Get retrieves a command by name.
func (r *Registry) Get(name string) (*Command, bool) {
	name = strings.ToLower(strings.TrimPrefix(name, r.prefix))

	r.mu.RLock()
	defer r.mu.RUnlock()

	cmd, exists := r.commands[name]
	return cmd, exists
}

// List returns all registered commands.
func (r *Registry) List() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}

	return cmds
}

// IsCommand checks if a text invokes a registered command.
func (r *Registry) IsCommand(text string) bool {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, r.prefix) {
		return false
	}

	parts := strings.SplitN(text, " ", 2)
	cmdName := strings.TrimPrefix(parts[0], r.prefix)

	_, exists := r.Get(cmdName)
	return exists
}

// Parse parses a command from text.
// Returns command name and arguments.
func (r *Registry) Parse(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, r.prefix) {
		return "", ""
	}

	text = strings.TrimPrefix(text, r.prefix)

	parts := strings.SplitN(text, " ", 2)
	cmdName := strings.ToLower(parts[0])

	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	return cmdName, args
}
