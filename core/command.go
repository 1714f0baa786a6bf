package core

import (
	"errors"
	"sync"
)

// ErrUnknownCommand is returned by Dispatch for a key with no handler
var ErrUnknownCommand = errors.New("unknown command")

// CommandHandler handles a single-key console command
type CommandHandler func() error

// Command is a console command bound to one key
type Command struct {
	Key     byte
	Name    string
	Handler CommandHandler
}

// CommandRegistry maps keys received over the console to handlers
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[byte]*Command
	order    []byte
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[byte]*Command),
	}
}

// Register binds a handler to a key.
// The first registration wins; it returns false if the key was taken.
func (r *CommandRegistry) Register(key byte, name string, handler CommandHandler) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[key]; exists {
		return false
	}

	r.commands[key] = &Command{
		Key:     key,
		Name:    name,
		Handler: handler,
	}
	r.order = append(r.order, key)
	return true
}

// GetCommand retrieves a command by key
func (r *CommandRegistry) GetCommand(key byte) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[key]
	return cmd, ok
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch calls the handler bound to key
func (r *CommandRegistry) Dispatch(key byte) error {
	cmd, ok := r.GetCommand(key)
	if !ok {
		return ErrUnknownCommand
	}
	return cmd.Handler()
}

// Help lists the commands in registration order, one per line
func (r *CommandRegistry) Help() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	help := ""
	for _, key := range r.order {
		help += "  " + string(rune(key)) + "  " + r.commands[key].Name + "\n"
	}
	return help
}
