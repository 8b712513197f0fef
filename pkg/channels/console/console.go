// Package console implements a local terminal channel. It reads lines
// from stdin, attributes them to a single configured user, and prints
// responses back to stdout. Useful for trying commands and prompt flows
// without connecting a chat platform.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"vancedhelper/pkg/commands"
	"vancedhelper/pkg/config"
	"vancedhelper/pkg/logger"
	"vancedhelper/pkg/transport"
)

// commandTimeout bounds one dispatch. Handlers may hold open prompts
// for minutes.
const commandTimeout = 15 * time.Minute

// channelID is the conversation ID for all console traffic.
const channelID = "console"

const defaultUser = "console"

// Channel implements the console channel.
type Channel struct {
	log      *logger.Logger
	config   config.ConsoleConfig
	commands *commands.Registry
	tp       *Transport

	// in overrides stdin when set; tests inject a reader here.
	in io.Reader

	mu      sync.Mutex
	running bool
	rl      *readline.Instance

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	done     chan struct{}
	doneOnce sync.Once
}

// NewChannel creates a new console channel.
func NewChannel(
	log *logger.Logger,
	cfg config.ConsoleConfig,
	cmdRegistry *commands.Registry,
) *Channel {
	ctx, cancel := context.WithCancel(context.Background())

	return &Channel{
		log:      log,
		config:   cfg,
		commands: cmdRegistry,
		tp: &Transport{
			out:    os.Stdout,
			broker: transport.NewBroker(),
		},
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ID returns the channel identifier.
func (c *Channel) ID() string {
	return "console"
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "Console"
}

// IsEnabled returns whether the channel is enabled.
func (c *Channel) IsEnabled() bool {
	return c.config.Enabled
}

// Running reports whether the read loop is active.
func (c *Channel) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Transport returns the console transport.
func (c *Channel) Transport() transport.Transport {
	return c.tp
}

// Start runs the read loop until the input ends or the channel stops.
func (c *Channel) Start(ctx context.Context) error {
	c.log.Info("starting console channel", zap.String("user", c.user()))
	c.setRunning(true)
	defer c.setRunning(false)
	defer c.doneOnce.Do(func() { close(c.done) })
	defer c.drain()

	if c.in != nil {
		return c.runSimple(ctx, c.in)
	}
	return c.runReadline(ctx)
}

// drain aborts in-flight handlers and waits for them to finish.
func (c *Channel) drain() {
	c.cancel()
	c.wg.Wait()
}

// Done is closed when the read loop has exited, whether the user typed
// exit or the input ended.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Stop stops the console channel. A blocked readline read is closed so
// the loop can exit.
func (c *Channel) Stop(ctx context.Context) error {
	c.log.Info("stopping console channel")
	c.cancel()

	c.mu.Lock()
	rl := c.rl
	c.mu.Unlock()
	if rl != nil {
		rl.Close()
	}
	return nil
}

func (c *Channel) setRunning(v bool) {
	c.mu.Lock()
	c.running = v
	c.mu.Unlock()
}

func (c *Channel) user() string {
	if c.config.User != "" {
		return c.config.User
	}
	return defaultUser
}

func (c *Channel) runReadline(ctx context.Context) error {
	// Try to use readline for better UX
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".vancedhelper_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})

	if err != nil {
		fmt.Printf("Warning: readline not available, using simple mode\n")
		return c.runSimple(ctx, os.Stdin)
	}
	defer rl.Close()

	c.mu.Lock()
	c.rl = rl
	c.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		if done := c.handleLine(line); done {
			return nil
		}
	}
}

func (c *Channel) runSimple(ctx context.Context, in io.Reader) error {
	reader := bufio.NewReader(in)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.ctx.Done():
			return nil
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if done := c.handleLine(line); done {
					return nil
				}
				return nil
			}
			return fmt.Errorf("reading console input: %w", err)
		}

		if done := c.handleLine(line); done {
			return nil
		}
	}
}

// handleLine processes one input line. Returns true when the loop
// should exit.
func (c *Channel) handleLine(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	if input == "exit" || input == "quit" {
		return true
	}

	c.dispatch(input)
	return false
}

// dispatch feeds a line to the waiter broker first; only unconsumed
// lines reach command dispatch.
func (c *Channel) dispatch(input string) {
	msg := &transport.Message{
		ID:         c.tp.nextMessageID(),
		ChannelID:  channelID,
		AuthorID:   c.user(),
		AuthorName: c.user(),
		Content:    input,
		Timestamp:  time.Now(),
	}

	if c.tp.broker.OfferMessage(msg) {
		return
	}

	if c.commands.IsCommand(input) {
		// Handlers run off the read loop so an open prompt can consume
		// the next typed line.
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.handleCommand(msg)
		}()
		return
	}

	if strings.HasPrefix(input, c.commands.Prefix()) {
		c.tp.print("Unknown command. Try " + c.commands.Prefix() + "help")
	}
}

// handleCommand processes a command message.
func (c *Channel) handleCommand(msg *transport.Message) {
	cmdName, args := c.commands.Parse(msg.Content)

	cmd, exists := c.commands.Get(cmdName)
	if !exists {
		return
	}

	c.log.Debug("executing command", zap.String("command", cmdName))

	req := commands.CommandRequest{
		Channel:   "console",
		ChannelID: msg.ChannelID,
		UserID:    msg.AuthorID,
		Username:  msg.AuthorName,
		Command:   cmdName,
		Args:      args,
		Transport: c.tp,
		Trigger:   msg.Ref(),
	}

	ctx, cancel := context.WithTimeout(c.ctx, commandTimeout)
	defer cancel()

	resp, err := cmd.Handler(ctx, req)
	if err != nil {
		c.tp.print("❌ Command failed: " + err.Error())
		return
	}

	if resp.Content != "" {
		c.tp.print(resp.Content)
	}
}

// Transport implements transport.Transport over a terminal. Terminal
// lines are immutable, so Edit reprints and Delete is a no-op.
// Reactions are unsupported.
type Transport struct {
	mu     sync.Mutex
	out    io.Writer
	nextID uint64
	broker *transport.Broker
}

func (t *Transport) nextMessageID() string {
	return fmt.Sprintf("console-%d", atomic.AddUint64(&t.nextID, 1))
}

func (t *Transport) print(content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, content)
}

// Send prints content and returns a synthetic message reference.
func (t *Transport) Send(ctx context.Context, chID, content string) (*transport.Message, error) {
	t.print(content)

	return &transport.Message{
		ID:        t.nextMessageID(),
		ChannelID: chID,
		Content:   content,
		Timestamp: time.Now(),
	}, nil
}

// Edit reprints the content under the same reference.
func (t *Transport) Edit(ctx context.Context, ref transport.MessageRef, content string) error {
	t.print(content)
	return nil
}

// Delete is a no-op on a terminal.
func (t *Transport) Delete(ctx context.Context, ref transport.MessageRef) error {
	return nil
}

// React is unsupported on the console.
func (t *Transport) React(ctx context.Context, ref transport.MessageRef, emoji transport.Emoji) error {
	return transport.ErrReactionsUnsupported
}

// Unreact is unsupported on the console.
func (t *Transport) Unreact(ctx context.Context, ref transport.MessageRef, emoji transport.Emoji, userID string) error {
	return transport.ErrReactionsUnsupported
}

// AwaitMessage blocks until a matching line is typed.
func (t *Transport) AwaitMessage(ctx context.Context, chID string, filter transport.MessageFilter) (*transport.Message, error) {
	return t.broker.AwaitMessage(ctx, chID, filter)
}

// AwaitReaction is unsupported on the console.
func (t *Transport) AwaitReaction(ctx context.Context, ref transport.MessageRef, filter transport.ReactionFilter) (*transport.ReactionEvent, error) {
	return nil, transport.ErrReactionsUnsupported
}

// Capabilities reports the console's feature set.
func (t *Transport) Capabilities() transport.Capabilities {
	return transport.Capabilities{Reactions: false}
}
