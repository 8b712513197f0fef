// Package discord implements the Discord channel over discordgo: a
// gateway connection feeding the waiter broker and the command
// dispatcher, plus the REST-backed transport the prompt engine edits
// and reacts through.
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"vancedhelper/pkg/commands"
	"vancedhelper/pkg/config"
	"vancedhelper/pkg/logger"
	"vancedhelper/pkg/transport"
)

// commandTimeout bounds one dispatch. Handlers may hold open prompts
// for minutes.
const commandTimeout = 15 * time.Minute

const defaultPresenceInterval = 5 * time.Minute

// embedColor is Discord blurple.
const embedColor = 0x5865F2

// Channel implements the Discord channel.
type Channel struct {
	log      *logger.Logger
	config   config.DiscordConfig
	commands *commands.Registry
	session  *discordgo.Session
	tp       *Transport

	mu      sync.Mutex
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	ticker *time.Ticker
	wg     sync.WaitGroup
}

// NewChannel creates a new Discord channel.
func NewChannel(
	log *logger.Logger,
	cfg config.DiscordConfig,
	cmdRegistry *commands.Registry,
) (*Channel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Channel{
		log:      log,
		config:   cfg,
		commands: cmdRegistry,
		session:  session,
		tp: &Transport{
			session: session,
			broker:  transport.NewBroker(),
		},
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// ID returns the channel identifier.
func (c *Channel) ID() string {
	return "discord"
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "Discord"
}

// IsEnabled returns whether the channel is enabled.
func (c *Channel) IsEnabled() bool {
	return c.config.Enabled
}

// Running reports whether the gateway connection is open.
func (c *Channel) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Transport returns the Discord transport.
func (c *Channel) Transport() transport.Transport {
	return c.tp
}

// Start opens the gateway connection and begins dispatching.
func (c *Channel) Start(ctx context.Context) error {
	c.log.Info("starting discord channel")

	c.session.AddHandler(c.handleMessageCreate)
	c.session.AddHandler(c.handleReactionAdd)

	c.session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessageReactions

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("opening discord connection: %w", err)
	}

	c.setRunning(true)

	botUser, err := c.session.User("@me")
	if err != nil {
		c.log.Warn("failed to get bot user", zap.Error(err))
	} else {
		c.log.Info("discord bot connected",
			zap.String("username", botUser.Username),
			zap.String("user_id", botUser.ID))
	}

	c.startPresenceRotation()

	return nil
}

// Stop closes the gateway connection.
func (c *Channel) Stop(ctx context.Context) error {
	c.log.Info("stopping discord channel")
	c.setRunning(false)

	c.cancel()
	if c.ticker != nil {
		c.ticker.Stop()
	}
	c.wg.Wait()

	if c.session != nil {
		if err := c.session.Close(); err != nil {
			return fmt.Errorf("closing discord session: %w", err)
		}
	}

	return nil
}

func (c *Channel) setRunning(v bool) {
	c.mu.Lock()
	c.running = v
	c.mu.Unlock()
}

// startPresenceRotation cycles the configured status lines as the bot's
// presence.
func (c *Channel) startPresenceRotation() {
	statuses := c.config.Statuses
	if len(statuses) == 0 {
		return
	}

	interval := time.Duration(c.config.StatusIntervalS) * time.Second
	if interval <= 0 {
		interval = defaultPresenceInterval
	}
	c.ticker = time.NewTicker(interval)

	c.wg.Add(1)
	go c.rotatePresence(statuses)
}

func (c *Channel) rotatePresence(statuses []string) {
	defer c.wg.Done()

	idx := 0
	c.setPresence(statuses[idx])

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.ticker.C:
			idx = (idx + 1) % len(statuses)
			c.setPresence(statuses[idx])
		}
	}
}

func (c *Channel) setPresence(status string) {
	if err := c.session.UpdateGameStatus(0, status); err != nil {
		c.log.Warn("failed to update presence",
			zap.String("status", status),
			zap.Error(err))
	}
}

// handleMessageCreate feeds incoming messages to the waiter broker
// first; only unconsumed messages reach command dispatch.
func (c *Channel) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}

	if !c.isAllowed(m.Author.ID) {
		c.log.Warn("unauthorized user",
			zap.String("user_id", m.Author.ID),
			zap.String("username", m.Author.Username))
		return
	}

	msg := messageFromDiscord(m.Message)

	// An open prompt for this user consumes the message before command
	// dispatch sees it.
	if c.tp.broker.OfferMessage(msg) {
		return
	}

	if c.commands.IsCommand(msg.Content) {
		c.handleCommand(msg)
	}
}

// handleReactionAdd feeds reaction events to the waiter broker. The
// bot's own seed reactions are skipped.
func (c *Channel) handleReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.UserID == s.State.User.ID {
		return
	}

	c.tp.broker.OfferReaction(&transport.ReactionEvent{
		Message: transport.MessageRef{ChannelID: r.ChannelID, MessageID: r.MessageID},
		UserID:  r.UserID,
		Emoji:   transport.Emoji{ID: r.Emoji.ID, Name: r.Emoji.Name},
	})
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
		Channel:   "discord",
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
		c.sendResponse(msg.ChannelID, "❌ Command failed: "+err.Error())
		return
	}

	if resp.Content != "" {
		c.sendResponse(msg.ChannelID, resp.Content)
	}
}

// sendResponse posts a command response, rendering it as an embed when
// the content leads with a bold title line.
func (c *Channel) sendResponse(channelID, content string) {
	if title, body, ok := splitEmbedTitle(content); ok {
		embed := &discordgo.MessageEmbed{
			Title:       title,
			Description: body,
			Color:       embedColor,
		}
		_, err := c.session.ChannelMessageSendEmbed(channelID, embed)
		if err == nil {
			return
		}
		c.log.Warn("embed send failed, falling back to plain message", zap.Error(err))
	}

	if _, err := c.session.ChannelMessageSend(channelID, content); err != nil {
		c.log.Error("failed to send command response", zap.Error(err))
	}
}

// splitEmbedTitle recognizes content whose first line is a bold title,
// like the help and status commands produce, and splits it for embed
// rendering.
func splitEmbedTitle(content string) (title, body string, ok bool) {
	first, rest, _ := strings.Cut(content, "\n")
	first = strings.TrimSpace(first)

	if strings.Count(first, "**") != 2 || !strings.HasSuffix(first, "**") {
		return "", "", false
	}

	title = strings.TrimSpace(strings.ReplaceAll(first, "**", ""))
	if title == "" {
		return "", "", false
	}
	return title, strings.TrimSpace(rest), true
}

// isAllowed checks if a user is allowed to use the bot.
func (c *Channel) isAllowed(userID string) bool {
	if len(c.config.AllowFrom) == 0 {
		return true
	}

	for _, allowed := range c.config.AllowFrom {
		if allowed == userID || allowed == "*" {
			return true
		}
	}

	return false
}

func messageFromDiscord(dm *discordgo.Message) *transport.Message {
	msg := &transport.Message{
		ID:        dm.ID,
		ChannelID: dm.ChannelID,
		Content:   dm.Content,
		Timestamp: dm.Timestamp,
	}
	if dm.Author != nil {
		msg.AuthorID = dm.Author.ID
		msg.AuthorName = dm.Author.Username
	}
	return msg
}

// Transport implements transport.Transport over the discordgo REST API,
// with awaits served by the broker the gateway handlers feed.
type Transport struct {
	session *discordgo.Session
	broker  *transport.Broker
}

// Send posts content to a channel.
func (t *Transport) Send(ctx context.Context, channelID, content string) (*transport.Message, error) {
	dm, err := t.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return nil, fmt.Errorf("sending discord message: %w", err)
	}
	return messageFromDiscord(dm), nil
}

// Edit replaces the content of a sent message.
func (t *Transport) Edit(ctx context.Context, ref transport.MessageRef, content string) error {
	if _, err := t.session.ChannelMessageEdit(ref.ChannelID, ref.MessageID, content); err != nil {
		return fmt.Errorf("editing discord message: %w", err)
	}
	return nil
}

// Delete removes a message. A message already gone is not an error.
func (t *Transport) Delete(ctx context.Context, ref transport.MessageRef) error {
	err := t.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID)
	if err == nil || isUnknownMessage(err) {
		return nil
	}
	return fmt.Errorf("deleting discord message: %w", err)
}

// React attaches an emoji reaction as the bot.
func (t *Transport) React(ctx context.Context, ref transport.MessageRef, emoji transport.Emoji) error {
	if err := t.session.MessageReactionAdd(ref.ChannelID, ref.MessageID, emoji.APIName()); err != nil {
		return fmt.Errorf("adding discord reaction: %w", err)
	}
	return nil
}

// Unreact removes a user's reaction. An empty userID removes the bot's
// own reaction.
func (t *Transport) Unreact(ctx context.Context, ref transport.MessageRef, emoji transport.Emoji, userID string) error {
	if userID == "" {
		userID = "@me"
	}
	err := t.session.MessageReactionRemove(ref.ChannelID, ref.MessageID, emoji.APIName(), userID)
	if err == nil || isUnknownMessage(err) {
		return nil
	}
	return fmt.Errorf("removing discord reaction: %w", err)
}

// AwaitMessage blocks until a matching message arrives on channelID.
func (t *Transport) AwaitMessage(ctx context.Context, channelID string, filter transport.MessageFilter) (*transport.Message, error) {
	return t.broker.AwaitMessage(ctx, channelID, filter)
}

// AwaitReaction blocks until a matching reaction arrives on ref.
func (t *Transport) AwaitReaction(ctx context.Context, ref transport.MessageRef, filter transport.ReactionFilter) (*transport.ReactionEvent, error) {
	return t.broker.AwaitReaction(ctx, ref, filter)
}

// Capabilities reports Discord's feature set.
func (t *Transport) Capabilities() transport.Capabilities {
	return transport.Capabilities{Reactions: true}
}

// RecentMessages lists the newest messages on a channel for the purge
// command.
func (t *Transport) RecentMessages(ctx context.Context, channelID string, limit int) ([]transport.MessageRef, error) {
	msgs, err := t.session.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("listing discord messages: %w", err)
	}

	refs := make([]transport.MessageRef, 0, len(msgs))
	for _, dm := range msgs {
		refs = append(refs, transport.MessageRef{ChannelID: channelID, MessageID: dm.ID})
	}
	return refs, nil
}

func isUnknownMessage(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code == discordgo.ErrCodeUnknownMessage
	}
	return false
}
