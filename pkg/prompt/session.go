// Package prompt implements the interactive prompt engine: a command
// handler asks a single user a question over a chat channel and collects
// either a typed reply or an emoji reaction, with timeout, cancellation,
// validation with retry, and at most one open prompt per user.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vancedhelper/pkg/logger"
	"vancedhelper/pkg/transport"
)

// Terminal prompt outcomes surfaced as errors. Match with errors.Is.
var (
	// ErrPromptOpen means the user already has another prompt open.
	ErrPromptOpen = errors.New("user already has a prompt open")

	// ErrTimedOut means no qualifying answer arrived before the deadline.
	ErrTimedOut = errors.New("prompt timed out")

	// ErrCancelled means the user cancelled the prompt, or the retry
	// limit forced a cancellation.
	ErrCancelled = errors.New("prompt cancelled")

	// ErrReactionsUnsupported mirrors transport.ErrReactionsUnsupported.
	ErrReactionsUnsupported = transport.ErrReactionsUnsupported
)

// Notices sent to the channel of the triggering message.
const (
	busyNotice       = "You already have another prompt open!"
	timeoutNotice    = "The prompt timed out!"
	cancelNotice     = "Successfully cancelled the prompt!"
	retryLimitNotice = "Too many invalid attempts! Cancelling the prompt."
)

// cancelWord cancels an open message prompt. Any non-empty
// case-insensitive prefix of it counts.
const cancelWord = "quit"

const (
	cleanupTimeout = 5 * time.Second
	recordTimeout  = 3 * time.Second
)

// State is a session's position in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateAwaiting   State = "awaiting_input"
	StateValidating State = "validating"
	StateResolved   State = "resolved"
	StateCancelled  State = "cancelled"
	StateTimedOut   State = "timed_out"
)

// Prompter creates prompt sessions. It owns the per-user registry and
// the defaults every ask starts from.
type Prompter struct {
	registry *Registry
	recorder Recorder
	log      *logger.Logger
	defaults Options
}

// NewPrompter creates a prompter. recorder may be nil when completed
// prompts are not recorded.
func NewPrompter(registry *Registry, recorder Recorder, log *logger.Logger, defaults Options) *Prompter {
	return &Prompter{
		registry: registry,
		recorder: recorder,
		log:      log,
		defaults: defaults,
	}
}

// Registry exposes the prompter's registry for status surfaces.
func (p *Prompter) Registry() *Registry {
	return p.registry
}

// Session binds a prompt session to one user on one channel. The trigger
// is the message that caused the prompt; notices about the prompt's fate
// go to its channel. Sessions are not safe for concurrent asks.
func (p *Prompter) Session(t transport.Transport, userID, channelID string, trigger transport.MessageRef) *Session {
	return &Session{
		prompter:  p,
		transport: t,
		userID:    userID,
		channelID: channelID,
		trigger:   trigger,
		state:     StateIdle,
	}
}

// Session drives a single question from render to terminal resolution.
// The rendered question message is owned exclusively by its session: it
// is created once, edited in place on every retry, and deleted on every
// terminal path.
type Session struct {
	prompter  *Prompter
	transport transport.Transport
	userID    string
	channelID string
	trigger   transport.MessageRef

	state   State
	retries int
	ui      transport.MessageRef
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Retries returns how many answers failed validation during the last ask.
func (s *Session) Retries() int {
	return s.retries
}

// AskMessage asks a question answered by a typed reply and returns the
// accepted raw text. Replying with any non-empty case-insensitive prefix
// of "quit" cancels the prompt regardless of the spec. The error is
// ErrPromptOpen, ErrCancelled, ErrTimedOut, a transport error, or the
// context's error.
func (s *Session) AskMessage(ctx context.Context, question string, spec Spec, opts ...Option) (string, error) {
	o := s.prompter.options(opts)
	s.reset()

	if !s.prompter.registry.TryAcquire(s.userID) {
		s.notify(ctx, busyNotice)
		return "", ErrPromptOpen
	}
	defer s.prompter.registry.Release(s.userID)
	defer s.cleanup()

	asked := time.Now()
	content := question
	for {
		s.state = StateAwaiting
		if err := s.render(ctx, content); err != nil {
			return "", err
		}

		msg, err := s.awaitMessage(ctx, o.Timeout)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				s.state = StateTimedOut
				s.notify(ctx, timeoutNotice)
				s.record(question, OutcomeTimedOut, "", asked)
				return "", ErrTimedOut
			}
			return "", err
		}

		s.discard(ctx, msg.Ref())

		if isCancelWord(msg.Content) {
			s.state = StateCancelled
			s.notify(ctx, cancelNotice)
			s.record(question, OutcomeCancelled, "", asked)
			return "", ErrCancelled
		}

		s.state = StateValidating
		if spec.Accepts(msg.Content) {
			s.state = StateResolved
			s.record(question, OutcomeResolved, msg.Content, asked)
			return msg.Content, nil
		}

		s.retries++
		if o.MaxRetries > 0 && s.retries > o.MaxRetries {
			s.state = StateCancelled
			s.notify(ctx, retryLimitNotice)
			s.record(question, OutcomeCancelled, "", asked)
			return "", ErrCancelled
		}
		content = errorLine(o.ErrorTemplate, msg.Content) + "\n\n" + question
	}
}

// AskReaction asks a question answered by an emoji reaction on the
// rendered message and returns the chosen emoji. With WithReactions and
// an allow-list spec, the message is pre-seeded with one reaction per
// allowed value. There is no cancel word in the reaction flow; the
// prompt ends by resolution, timeout, or context cancellation.
func (s *Session) AskReaction(ctx context.Context, question string, spec Spec, opts ...Option) (transport.Emoji, error) {
	var none transport.Emoji
	if !s.transport.Capabilities().Reactions {
		return none, ErrReactionsUnsupported
	}

	o := s.prompter.options(opts)
	s.reset()

	if !s.prompter.registry.TryAcquire(s.userID) {
		s.notify(ctx, busyNotice)
		return none, ErrPromptOpen
	}
	defer s.prompter.registry.Release(s.userID)
	defer s.cleanup()

	filter := func(ev *transport.ReactionEvent) bool {
		return ev.UserID == s.userID
	}
	if o.Scrub {
		filter = ScrubOther(s.transport, s.userID, s.prompter.log, filter)
	}

	asked := time.Now()
	seeded := false
	content := question
	for {
		s.state = StateAwaiting
		if err := s.render(ctx, content); err != nil {
			return none, err
		}
		if o.SeedReactions && !seeded {
			s.seed(ctx, spec.Values())
			seeded = true
		}

		ev, err := s.awaitReaction(ctx, o.Timeout, filter)
		if err != nil {
			if ctx.Err() != nil {
				return none, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				s.state = StateTimedOut
				s.notify(ctx, timeoutNotice)
				s.record(question, OutcomeTimedOut, "", asked)
				return none, ErrTimedOut
			}
			return none, err
		}

		s.state = StateValidating
		if spec.AcceptsEmoji(ev.Emoji) {
			s.state = StateResolved
			s.record(question, OutcomeResolved, ev.Emoji.Identity(), asked)
			return ev.Emoji, nil
		}

		// A rejected reaction left in place would swallow a retry of
		// the same emoji.
		s.unreact(ctx, ev)

		s.retries++
		if o.MaxRetries > 0 && s.retries > o.MaxRetries {
			s.state = StateCancelled
			s.notify(ctx, retryLimitNotice)
			s.record(question, OutcomeCancelled, "", asked)
			return none, ErrCancelled
		}
		display := ev.Emoji.Name
		if display == "" {
			display = ev.Emoji.Identity()
		}
		content = errorLine(o.ErrorTemplate, display) + "\n\n" + question
	}
}

func (s *Session) reset() {
	s.state = StateIdle
	s.retries = 0
	s.ui = transport.MessageRef{}
}

// render sends the question on first use and edits the same message on
// every use after that.
func (s *Session) render(ctx context.Context, content string) error {
	if s.ui.IsZero() {
		msg, err := s.transport.Send(ctx, s.channelID, content)
		if err != nil {
			return fmt.Errorf("rendering prompt: %w", err)
		}
		s.ui = msg.Ref()
		return nil
	}
	if err := s.transport.Edit(ctx, s.ui, content); err != nil {
		return fmt.Errorf("rendering prompt: %w", err)
	}
	return nil
}

func (s *Session) awaitMessage(ctx context.Context, timeout time.Duration) (*transport.Message, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.transport.AwaitMessage(waitCtx, s.channelID, func(m *transport.Message) bool {
		return m.AuthorID == s.userID
	})
}

func (s *Session) awaitReaction(ctx context.Context, timeout time.Duration, filter transport.ReactionFilter) (*transport.ReactionEvent, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.transport.AwaitReaction(waitCtx, s.ui, filter)
}

// seed adds one reaction per allowed value to the rendered message.
func (s *Session) seed(ctx context.Context, values []string) {
	for _, v := range values {
		if err := s.transport.React(ctx, s.ui, transport.ParseEmoji(v)); err != nil {
			s.prompter.log.Debug("seeding reaction failed",
				zap.String("emoji", v),
				zap.Error(err))
		}
	}
}

// notify reports the prompt's fate on the trigger message's channel.
func (s *Session) notify(ctx context.Context, text string) {
	ch := s.trigger.ChannelID
	if ch == "" {
		ch = s.channelID
	}
	if _, err := s.transport.Send(ctx, ch, text); err != nil {
		s.prompter.log.Warn("sending prompt notice failed",
			zap.String("channel_id", ch),
			zap.Error(err))
	}
}

// discard deletes the user's raw answer message, best-effort.
func (s *Session) discard(ctx context.Context, ref transport.MessageRef) {
	if err := s.transport.Delete(ctx, ref); err != nil {
		s.prompter.log.Debug("deleting answer message failed", zap.Error(err))
	}
}

func (s *Session) unreact(ctx context.Context, ev *transport.ReactionEvent) {
	if err := s.transport.Unreact(ctx, ev.Message, ev.Emoji, ev.UserID); err != nil {
		s.prompter.log.Debug("removing rejected reaction failed", zap.Error(err))
	}
}

// cleanup deletes the rendered question. It runs on every terminal path
// and must not depend on the ask's context still being alive.
func (s *Session) cleanup() {
	if s.ui.IsZero() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if err := s.transport.Delete(ctx, s.ui); err != nil {
		s.prompter.log.Debug("deleting prompt message failed", zap.Error(err))
	}
}

// record hands the completed prompt to the recorder.
func (s *Session) record(question string, outcome Outcome, answer string, asked time.Time) {
	if s.prompter.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	s.prompter.recorder.Record(ctx, Result{
		ID:        uuid.NewString(),
		UserID:    s.userID,
		ChannelID: s.channelID,
		Channel:   transportName(s.transport),
		Question:  question,
		Outcome:   outcome,
		Answer:    answer,
		Retries:   s.retries,
		AskedAt:   asked,
		Duration:  time.Since(asked),
	})
}

// isCancelWord reports whether text is a non-empty case-insensitive
// prefix of the cancel word.
func isCancelWord(text string) bool {
	t := strings.ToLower(text)
	return t != "" && strings.HasPrefix(cancelWord, t)
}

// errorLine substitutes the rejected value into the error template.
func errorLine(template, value string) string {
	return strings.ReplaceAll(template, "{VALUE}", value)
}

// transportName identifies the transport when it can name itself.
func transportName(t transport.Transport) string {
	if n, ok := t.(interface{ Name() string }); ok {
		return n.Name()
	}
	return ""
}
