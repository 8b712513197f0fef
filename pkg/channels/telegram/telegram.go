// Package telegram implements the Telegram channel: a long-poll update
// loop feeding the waiter broker and the command dispatcher. Telegram's
// bot API has no reaction events, so prompts on this channel are
// message-only.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"vancedhelper/pkg/commands"
	"vancedhelper/pkg/config"
	"vancedhelper/pkg/logger"
	"vancedhelper/pkg/transport"
)

// commandTimeout bounds one dispatch. Handlers may hold open prompts
// for minutes.
const commandTimeout = 15 * time.Minute

// Channel implements the Telegram channel.
type Channel struct {
	log      *logger.Logger
	config   *config.TelegramConfig
	commands *commands.Registry
	tp       *Transport

	bot      *tgbotapi.BotAPI
	stopOnce sync.Once

	mu      sync.Mutex
	running bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Telegram channel.
func New(
	log *logger.Logger,
	cfg *config.TelegramConfig,
	cmdRegistry *commands.Registry,
) (*Channel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Channel{
		log:      log,
		config:   cfg,
		commands: cmdRegistry,
		tp:       &Transport{broker: transport.NewBroker()},
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// ID returns the channel identifier.
func (c *Channel) ID() string {
	return "telegram"
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "Telegram"
}

// IsEnabled returns whether the channel is enabled.
func (c *Channel) IsEnabled() bool {
	return c.config.Enabled
}

// Running reports whether the update loop is connected.
func (c *Channel) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Transport returns the Telegram transport.
func (c *Channel) Transport() transport.Transport {
	return c.tp
}

// Start connects the bot and runs the update loop until stopped.
func (c *Channel) Start(ctx context.Context) error {
	c.log.Info("starting telegram channel")

	// Keep the HTTP timeout longer than the long-poll timeout to avoid
	// periodic forced reconnects.
	httpClient := &http.Client{Timeout: 75 * time.Second}

	bot, err := tgbotapi.NewBotAPIWithClient(c.config.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return fmt.Errorf("creating telegram bot: %w", err)
	}

	c.bot = bot
	c.stopOnce = sync.Once{}
	c.bot.Debug = false
	c.tp.setBot(bot)
	c.setRunning(true)
	defer c.setRunning(false)

	c.log.Info("telegram bot connected",
		zap.String("username", bot.Self.UserName))
	c.syncSlashCommands()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 50

	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			c.handleUpdate(update)

		case <-ctx.Done():
			c.log.Info("telegram channel stopping")
			c.stopReceivingUpdates()
			return nil

		case <-c.ctx.Done():
			c.log.Info("telegram channel stopping")
			c.stopReceivingUpdates()
			return nil
		}
	}
}

// Stop stops the Telegram channel.
func (c *Channel) Stop(ctx context.Context) error {
	c.log.Info("stopping telegram channel")
	c.cancel()
	c.stopReceivingUpdates()

	return nil
}

func (c *Channel) stopReceivingUpdates() {
	if c.bot == nil {
		return
	}
	c.stopOnce.Do(func() {
		c.bot.StopReceivingUpdates()
	})
}

func (c *Channel) setRunning(v bool) {
	c.mu.Lock()
	c.running = v
	c.mu.Unlock()
}

// syncSlashCommands publishes the command registry as Telegram slash
// commands so they autocomplete in clients.
func (c *Channel) syncSlashCommands() {
	cmds := c.commands.List()
	telegramCmds := make([]tgbotapi.BotCommand, 0, len(cmds))

	for _, cmd := range cmds {
		name := sanitizeCommandName(cmd.Name)
		if name == "" {
			continue
		}

		desc := strings.TrimSpace(cmd.Description)
		if desc == "" {
			desc = strings.TrimSpace(cmd.Usage)
		}
		if len(desc) > 256 {
			desc = desc[:256]
		}

		telegramCmds = append(telegramCmds, tgbotapi.BotCommand{
			Command:     name,
			Description: desc,
		})
	}

	if len(telegramCmds) == 0 {
		return
	}

	sort.Slice(telegramCmds, func(i, j int) bool {
		return telegramCmds[i].Command < telegramCmds[j].Command
	})
	// Telegram supports at most 100 commands.
	if len(telegramCmds) > 100 {
		telegramCmds = telegramCmds[:100]
	}

	if _, err := c.bot.Request(tgbotapi.NewSetMyCommands(telegramCmds...)); err != nil {
		c.log.Warn("failed to sync telegram slash commands", zap.Error(err))
		return
	}

	c.log.Info("synced telegram slash commands", zap.Int("count", len(telegramCmds)))
}

// sanitizeCommandName reduces a command name to Telegram's a-z, 0-9 and
// underscore alphabet, capped at 32 characters.
func sanitizeCommandName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))

	var b strings.Builder
	for _, r := range normalized {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
		if b.Len() >= 32 {
			break
		}
	}

	return b.String()
}

// handleUpdate processes a Telegram update.
func (c *Channel) handleUpdate(update tgbotapi.Update) {
	if update.Message != nil {
		msg := *update.Message
		go c.handleMessage(&msg)
	}
}

// handleMessage feeds an incoming message to the waiter broker first;
// only unconsumed messages reach command dispatch.
func (c *Channel) handleMessage(message *tgbotapi.Message) {
	if message.From == nil {
		return
	}

	if !c.isUserAllowed(message.From.ID, message.Chat.ID, message.From.UserName) {
		c.log.Warn("unauthorized access attempt",
			zap.Int64("user_id", message.From.ID),
			zap.String("username", message.From.UserName))
		return
	}

	content := strings.TrimSpace(message.Text)
	if content == "" {
		return
	}

	msg := &transport.Message{
		ID:         strconv.Itoa(message.MessageID),
		ChannelID:  strconv.FormatInt(message.Chat.ID, 10),
		AuthorID:   strconv.FormatInt(message.From.ID, 10),
		AuthorName: message.From.UserName,
		Content:    content,
		Timestamp:  time.Unix(int64(message.Date), 0),
	}

	if c.tp.broker.OfferMessage(msg) {
		return
	}

	if c.commands.IsCommand(content) {
		c.handleCommand(msg)
	}
}

// handleCommand processes a command message.
func (c *Channel) handleCommand(msg *transport.Message) {
	cmdName, args := c.commands.Parse(msg.Content)

	cmd, exists := c.commands.Get(cmdName)
	if !exists {
		c.log.Debug("unknown command", zap.String("command", cmdName))
		return
	}

	c.log.Info("executing command",
		zap.String("command", cmdName),
		zap.String("user", msg.AuthorName))

	req := commands.CommandRequest{
		Channel:   "telegram",
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
		c.log.Error("command execution failed",
			zap.String("command", cmdName),
			zap.Error(err))

		if _, err := c.tp.Send(ctx, msg.ChannelID, "❌ Command failed: "+err.Error()); err != nil {
			c.log.Error("failed to send error response", zap.Error(err))
		}
		return
	}

	if resp.Content != "" {
		if _, err := c.tp.Send(ctx, msg.ChannelID, resp.Content); err != nil {
			c.log.Error("failed to send command response", zap.Error(err))
		}
	}
}

// isUserAllowed checks if a user is allowed to use the bot.
func (c *Channel) isUserAllowed(userID, chatID int64, username string) bool {
	if len(c.config.AllowFrom) == 0 {
		return true
	}

	userIDStr := strconv.FormatInt(userID, 10)
	chatIDStr := strconv.FormatInt(chatID, 10)
	username = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(username)), "@")

	for _, allowed := range c.config.AllowFrom {
		normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(allowed)), "@")
		if normalized == userIDStr || normalized == chatIDStr {
			return true
		}
		if username != "" && normalized == username {
			return true
		}
	}

	return false
}

// Transport implements transport.Transport over the Telegram bot API.
// Reactions are unsupported.
type Transport struct {
	mu     sync.RWMutex
	bot    *tgbotapi.BotAPI
	broker *transport.Broker
}

func (t *Transport) setBot(bot *tgbotapi.BotAPI) {
	t.mu.Lock()
	t.bot = bot
	t.mu.Unlock()
}

func (t *Transport) api() (*tgbotapi.BotAPI, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.bot == nil {
		return nil, fmt.Errorf("telegram bot not initialized")
	}
	return t.bot, nil
}

// Send posts content to a chat. channelID is the decimal chat ID.
func (t *Transport) Send(ctx context.Context, channelID, content string) (*transport.Message, error) {
	bot, err := t.api()
	if err != nil {
		return nil, err
	}

	chatID, err := parseChatID(channelID)
	if err != nil {
		return nil, err
	}

	sent, err := bot.Send(tgbotapi.NewMessage(chatID, content))
	if err != nil {
		return nil, fmt.Errorf("sending telegram message: %w", err)
	}

	return &transport.Message{
		ID:        strconv.Itoa(sent.MessageID),
		ChannelID: channelID,
		Content:   content,
		Timestamp: time.Unix(int64(sent.Date), 0),
	}, nil
}

// Edit replaces the content of a sent message.
func (t *Transport) Edit(ctx context.Context, ref transport.MessageRef, content string) error {
	bot, err := t.api()
	if err != nil {
		return err
	}

	chatID, messageID, err := parseRef(ref)
	if err != nil {
		return err
	}

	if _, err := bot.Send(tgbotapi.NewEditMessageText(chatID, messageID, content)); err != nil {
		return fmt.Errorf("editing telegram message: %w", err)
	}
	return nil
}

// Delete removes a message.
func (t *Transport) Delete(ctx context.Context, ref transport.MessageRef) error {
	bot, err := t.api()
	if err != nil {
		return err
	}

	chatID, messageID, err := parseRef(ref)
	if err != nil {
		return err
	}

	if _, err := bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("deleting telegram message: %w", err)
	}
	return nil
}

// React is unsupported on Telegram.
func (t *Transport) React(ctx context.Context, ref transport.MessageRef, emoji transport.Emoji) error {
	return transport.ErrReactionsUnsupported
}

// Unreact is unsupported on Telegram.
func (t *Transport) Unreact(ctx context.Context, ref transport.MessageRef, emoji transport.Emoji, userID string) error {
	return transport.ErrReactionsUnsupported
}

// AwaitMessage blocks until a matching message arrives on channelID.
func (t *Transport) AwaitMessage(ctx context.Context, channelID string, filter transport.MessageFilter) (*transport.Message, error) {
	return t.broker.AwaitMessage(ctx, channelID, filter)
}

// AwaitReaction is unsupported on Telegram.
func (t *Transport) AwaitReaction(ctx context.Context, ref transport.MessageRef, filter transport.ReactionFilter) (*transport.ReactionEvent, error) {
	return nil, transport.ErrReactionsUnsupported
}

// Capabilities reports Telegram's feature set.
func (t *Transport) Capabilities() transport.Capabilities {
	return transport.Capabilities{Reactions: false}
}

func parseChatID(channelID string) (int64, error) {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat ID %q: %w", channelID, err)
	}
	return chatID, nil
}

func parseRef(ref transport.MessageRef) (int64, int, error) {
	chatID, err := parseChatID(ref.ChannelID)
	if err != nil {
		return 0, 0, err
	}

	messageID, err := strconv.Atoi(ref.MessageID)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid telegram message ID %q: %w", ref.MessageID, err)
	}

	return chatID, messageID, nil
}
