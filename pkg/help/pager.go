package help

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"vancedhelper/pkg/logger"
	"vancedhelper/pkg/prompt"
	"vancedhelper/pkg/transport"
)

const (
	emojiPrev = "◀️"
	emojiNext = "▶️"
	emojiStop = "⏹️"

	defaultPageTimeout = time.Minute
)

// Pager renders a topic into a channel message and pages it with
// reactions. It is not a prompt: it takes no registry slot, so a user
// can read help while a prompt of theirs is open elsewhere.
type Pager struct {
	log     *logger.Logger
	timeout time.Duration
}

// NewPager creates a pager with the given per-page-flip timeout.
func NewPager(log *logger.Logger, timeout time.Duration) *Pager {
	if timeout <= 0 {
		timeout = defaultPageTimeout
	}
	return &Pager{log: log, timeout: timeout}
}

// Show posts the topic and serves page flips from userID until the stop
// reaction, an idle timeout, or ctx cancellation. The message stays in
// the channel afterwards with the controls removed.
func (p *Pager) Show(ctx context.Context, t transport.Transport, channelID, userID string, topic *Topic) error {
	page := 0

	msg, err := t.Send(ctx, channelID, RenderPage(topic, page))
	if err != nil {
		return fmt.Errorf("sending help page: %w", err)
	}
	ref := msg.Ref()

	if len(topic.Pages) < 2 || !t.Capabilities().Reactions {
		return nil
	}

	controls := []transport.Emoji{
		{Name: emojiPrev},
		{Name: emojiNext},
		{Name: emojiStop},
	}
	for _, em := range controls {
		if err := t.React(ctx, ref, em); err != nil {
			return fmt.Errorf("seeding pager reaction: %w", err)
		}
	}
	defer p.clearControls(t, ref, controls)

	accept := func(ev *transport.ReactionEvent) bool {
		if ev.UserID != userID {
			return false
		}
		switch ev.Emoji.Name {
		case emojiPrev, emojiNext, emojiStop:
			return true
		}
		return false
	}
	filter := prompt.ScrubOther(t, userID, p.log, accept)

	for {
		waitCtx, cancel := context.WithTimeout(ctx, p.timeout)
		ev, err := t.AwaitReaction(waitCtx, ref, filter)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("awaiting page flip: %w", err)
		}

		switch ev.Emoji.Name {
		case emojiStop:
			return nil
		case emojiPrev:
			if page > 0 {
				page--
			}
		case emojiNext:
			if page < len(topic.Pages)-1 {
				page++
			}
		}

		if err := t.Edit(ctx, ref, RenderPage(topic, page)); err != nil {
			return fmt.Errorf("editing help page: %w", err)
		}

		// Remove the press so the same control works again.
		if err := t.Unreact(ctx, ref, ev.Emoji, ev.UserID); err != nil {
			p.log.Debug("removing pager press failed", zap.Error(err))
		}
	}
}

func (p *Pager) clearControls(t transport.Transport, ref transport.MessageRef, controls []transport.Emoji) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, em := range controls {
		if err := t.Unreact(ctx, ref, em, ""); err != nil {
			p.log.Debug("removing pager control failed",
				zap.String("emoji", em.Name),
				zap.Error(err))
		}
	}
}

// RenderPage formats one page of a topic.
func RenderPage(topic *Topic, page int) string {
	if len(topic.Pages) == 0 {
		return fmt.Sprintf("**%s**\n%s", topic.Title, topic.Summary)
	}

	body := topic.Pages[page]
	if len(topic.Pages) == 1 {
		return fmt.Sprintf("**%s**\n\n%s", topic.Title, body)
	}
	return fmt.Sprintf("**%s**\n\n%s\n\n*Page %d/%d*",
		topic.Title, body, page+1, len(topic.Pages))
}

// RenderTopic formats a whole topic without paging.
func RenderTopic(topic *Topic) string {
	var sb strings.Builder
	sb.WriteString("**" + topic.Title + "**\n")
	if topic.Summary != "" {
		sb.WriteString("_" + strings.TrimSpace(topic.Summary) + "_\n")
	}
	for _, page := range topic.Pages {
		sb.WriteString("\n")
		sb.WriteString(strings.TrimSpace(page))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
