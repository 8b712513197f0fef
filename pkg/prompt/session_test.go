package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"vancedhelper/pkg/logger"
	"vancedhelper/pkg/transport"
)

const (
	testUser    = "user-1"
	testChannel = "chan-1"
)

// fakeTransport is a scripted in-memory transport. Incoming answers are
// queued on buffered channels before the ask runs; every outbound call
// is recorded for assertions. Sent messages get deterministic IDs m1,
// m2, ... so reaction tests can predict the rendered message's ref.
type fakeTransport struct {
	mu           sync.Mutex
	hasReactions bool
	nextID       int
	userID       int

	sent    []sentMessage
	edits   []editCall
	deleted []transport.MessageRef
	reacted []reactCall
	removed []unreactCall

	messages  chan *transport.Message
	reactions chan *transport.ReactionEvent
}

type sentMessage struct {
	ChannelID string
	Content   string
	Ref       transport.MessageRef
}

type editCall struct {
	Ref     transport.MessageRef
	Content string
}

type reactCall struct {
	Ref   transport.MessageRef
	Emoji transport.Emoji
}

type unreactCall struct {
	Ref    transport.MessageRef
	Emoji  transport.Emoji
	UserID string
}

func newFakeTransport(hasReactions bool) *fakeTransport {
	return &fakeTransport{
		hasReactions: hasReactions,
		messages:     make(chan *transport.Message, 16),
		reactions:    make(chan *transport.ReactionEvent, 16),
	}
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Capabilities() transport.Capabilities {
	return transport.Capabilities{Reactions: f.hasReactions}
}

func (f *fakeTransport) Send(ctx context.Context, channelID, content string) (*transport.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	msg := &transport.Message{
		ID:        fmt.Sprintf("m%d", f.nextID),
		ChannelID: channelID,
		Content:   content,
	}
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, Content: content, Ref: msg.Ref()})
	return msg, nil
}

func (f *fakeTransport) Edit(ctx context.Context, ref transport.MessageRef, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.edits = append(f.edits, editCall{Ref: ref, Content: content})
	return nil
}

func (f *fakeTransport) Delete(ctx context.Context, ref transport.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeTransport) React(ctx context.Context, ref transport.MessageRef, emoji transport.Emoji) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reacted = append(f.reacted, reactCall{Ref: ref, Emoji: emoji})
	return nil
}

func (f *fakeTransport) Unreact(ctx context.Context, ref transport.MessageRef, emoji transport.Emoji, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.removed = append(f.removed, unreactCall{Ref: ref, Emoji: emoji, UserID: userID})
	return nil
}

func (f *fakeTransport) AwaitMessage(ctx context.Context, channelID string, filter transport.MessageFilter) (*transport.Message, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case m := <-f.messages:
			if m.ChannelID != channelID {
				continue
			}
			if filter == nil || filter(m) {
				return m, nil
			}
		}
	}
}

func (f *fakeTransport) AwaitReaction(ctx context.Context, ref transport.MessageRef, filter transport.ReactionFilter) (*transport.ReactionEvent, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev := <-f.reactions:
			if ev.Message != ref {
				continue
			}
			if filter == nil || filter(ev) {
				return ev, nil
			}
		}
	}
}

// reply queues an incoming message answer.
func (f *fakeTransport) reply(author, content string) {
	f.mu.Lock()
	f.userID++
	id := fmt.Sprintf("u%d", f.userID)
	f.mu.Unlock()

	f.messages <- &transport.Message{
		ID:        id,
		ChannelID: testChannel,
		AuthorID:  author,
		Content:   content,
	}
}

// react queues an incoming reaction answer on the given message.
func (f *fakeTransport) react(user string, ref transport.MessageRef, emoji string) {
	f.reactions <- &transport.ReactionEvent{
		Message: ref,
		UserID:  user,
		Emoji:   transport.ParseEmoji(emoji),
	}
}

func (f *fakeTransport) sentContents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.Content
	}
	return out
}

func (f *fakeTransport) sentContains(want string) bool {
	for _, c := range f.sentContents() {
		if c == want {
			return true
		}
	}
	return false
}

func (f *fakeTransport) deletedContains(ref transport.MessageRef) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, d := range f.deleted {
		if d == ref {
			return true
		}
	}
	return false
}

// captureRecorder keeps every recorded result.
type captureRecorder struct {
	mu      sync.Mutex
	results []Result
}

func (c *captureRecorder) Record(ctx context.Context, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results = append(c.results, res)
}

func (c *captureRecorder) all() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Result(nil), c.results...)
}

func testPrompter(t *testing.T, rec Recorder) *Prompter {
	t.Helper()

	log, err := logger.New(&logger.Config{Level: logger.LevelError})
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	return NewPrompter(NewRegistry(), rec, log, Options{Timeout: 2 * time.Second})
}

func testSession(p *Prompter, ft *fakeTransport) *Session {
	trigger := transport.MessageRef{ChannelID: testChannel, MessageID: "trigger-1"}
	return p.Session(ft, testUser, testChannel, trigger)
}

func TestAskMessageResolvesValidInput(t *testing.T) {
	rec := &captureRecorder{}
	p := testPrompter(t, rec)
	ft := newFakeTransport(false)
	s := testSession(p, ft)

	ft.reply(testUser, "blue")

	got, err := s.AskMessage(context.Background(), "Favourite colour?", Any())
	if err != nil {
		t.Fatalf("AskMessage returned error: %v", err)
	}
	if got != "blue" {
		t.Fatalf("AskMessage = %q, want %q", got, "blue")
	}
	if s.State() != StateResolved {
		t.Errorf("state = %q, want %q", s.State(), StateResolved)
	}
	if p.Registry().Open(testUser) {
		t.Error("registry entry still held after resolution")
	}

	// The question was rendered once and cleaned up; the user's answer
	// message was discarded.
	if len(ft.sent) != 1 || ft.sent[0].Content != "Favourite colour?" {
		t.Fatalf("sent = %v, want single question render", ft.sentContents())
	}
	if !ft.deletedContains(ft.sent[0].Ref) {
		t.Error("rendered question was not deleted")
	}
	if len(ft.deleted) != 2 {
		t.Errorf("deleted %d messages, want 2 (question + answer)", len(ft.deleted))
	}

	results := rec.all()
	if len(results) != 1 {
		t.Fatalf("recorded %d results, want 1", len(results))
	}
	res := results[0]
	if res.Outcome != OutcomeResolved || res.Answer != "blue" {
		t.Errorf("recorded outcome %q answer %q, want resolved/blue", res.Outcome, res.Answer)
	}
	if res.UserID != testUser || res.Channel != "fake" || res.Retries != 0 {
		t.Errorf("recorded result = %+v, want user/channel/retries filled", res)
	}
	if res.ID == "" || res.AskedAt.IsZero() {
		t.Errorf("recorded result missing id or timestamp: %+v", res)
	}
}

func TestAskMessageIgnoresOtherUsers(t *testing.T) {
	p := testPrompter(t, nil)
	ft := newFakeTransport(false)
	s := testSession(p, ft)

	ft.reply("intruder", "first")
	ft.reply(testUser, "second")

	got, err := s.AskMessage(context.Background(), "Who goes there?", Any())
	if err != nil {
		t.Fatalf("AskMessage returned error: %v", err)
	}
	if got != "second" {
		t.Fatalf("AskMessage = %q, want the target user's answer", got)
	}
}

func TestAskMessageRetryEditsSameMessage(t *testing.T) {
	rec := &captureRecorder{}
	p := testPrompter(t, rec)
	ft := newFakeTransport(false)
	s := testSession(p, ft)

	ft.reply(testUser, "green")
	ft.reply(testUser, "blue")

	got, err := s.AskMessage(context.Background(), "Red or blue?", OneOf("red", "blue"))
	if err != nil {
		t.Fatalf("AskMessage returned error: %v", err)
	}
	if got != "blue" {
		t.Fatalf("AskMessage = %q, want %q", got, "blue")
	}

	if len(ft.sent) != 1 {
		t.Fatalf("sent %d messages, want 1; retries must edit, not send", len(ft.sent))
	}
	if len(ft.edits) != 1 {
		t.Fatalf("edited %d times, want 1", len(ft.edits))
	}
	edit := ft.edits[0]
	if edit.Ref != ft.sent[0].Ref {
		t.Error("retry edited a different message than the rendered question")
	}
	wantLine := "`green` is not a valid choice! Please try again."
	if !strings.HasPrefix(edit.Content, wantLine) {
		t.Errorf("retry content = %q, want prefix %q", edit.Content, wantLine)
	}
	if !strings.Contains(edit.Content, "Red or blue?") {
		t.Errorf("retry content %q lost the original question", edit.Content)
	}

	results := rec.all()
	if len(results) != 1 || results[0].Retries != 1 {
		t.Fatalf("recorded results = %+v, want one result with 1 retry", results)
	}
}

func TestAskMessageCustomErrorTemplate(t *testing.T) {
	p := testPrompter(t, nil)
	ft := newFakeTransport(false)
	s := testSession(p, ft)

	ft.reply(testUser, "7")
	ft.reply(testUser, "2")

	_, err := s.AskMessage(context.Background(), "Pick 1 or 2", OneOf("1", "2"),
		WithErrorTemplate("Nope, {VALUE} is not on offer."))
	if err != nil {
		t.Fatalf("AskMessage returned error: %v", err)
	}
	if len(ft.edits) != 1 || !strings.HasPrefix(ft.edits[0].Content, "Nope, 7 is not on offer.") {
		t.Fatalf("edits = %+v, want custom template applied", ft.edits)
	}
}

func TestAskMessageQuitPrefixCancels(t *testing.T) {
	for _, input := range []string{"q", "qu", "qui", "quit", "Q", "QUIT", "qUi"} {
		t.Run(input, func(t *testing.T) {
			p := testPrompter(t, nil)
			ft := newFakeTransport(false)
			s := testSession(p, ft)

			ft.reply(testUser, input)

			// The spec would reject this input; cancellation outranks
			// validation.
			_, err := s.AskMessage(context.Background(), "Say something", OneOf("never"))
			if !errors.Is(err, ErrCancelled) {
				t.Fatalf("AskMessage error = %v, want ErrCancelled", err)
			}
			if !ft.sentContains(cancelNotice) {
				t.Errorf("missing cancellation notice, sent: %v", ft.sentContents())
			}
			if p.Registry().Open(testUser) {
				t.Error("registry entry still held after cancellation")
			}
		})
	}
}

func TestAskMessageQuitNeedsExactPrefix(t *testing.T) {
	p := testPrompter(t, nil)
	ft := newFakeTransport(false)
	s := testSession(p, ft)

	ft.reply(testUser, "quit now")

	got, err := s.AskMessage(context.Background(), "Say something", Any())
	if err != nil {
		t.Fatalf("AskMessage returned error: %v", err)
	}
	if got != "quit now" {
		t.Fatalf("AskMessage = %q, want the literal answer back", got)
	}
}

func TestAskMessageTimeout(t *testing.T) {
	rec := &captureRecorder{}
	p := testPrompter(t, rec)
	ft := newFakeTransport(false)
	s := testSession(p, ft)

	_, err := s.AskMessage(context.Background(), "Anyone there?", Any(),
		WithTimeout(25*time.Millisecond))
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("AskMessage error = %v, want ErrTimedOut", err)
	}
	if !ft.sentContains(timeoutNotice) {
		t.Errorf("missing timeout notice, sent: %v", ft.sentContents())
	}
	if !ft.deletedContains(ft.sent[0].Ref) {
		t.Error("rendered question was not deleted on timeout")
	}
	if p.Registry().Open(testUser) {
		t.Error("registry entry still held after timeout")
	}

	results := rec.all()
	if len(results) != 1 || results[0].Outcome != OutcomeTimedOut {
		t.Fatalf("recorded results = %+v, want one timed_out result", results)
	}
}

func TestAskMessageWhenPromptAlreadyOpen(t *testing.T) {
	rec := &captureRecorder{}
	p := testPrompter(t, rec)
	ft := newFakeTransport(false)
	s := testSession(p, ft)

	if !p.Registry().TryAcquire(testUser) {
		t.Fatal("priming registry failed")
	}

	_, err := s.AskMessage(context.Background(), "Second question", Any())
	if !errors.Is(err, ErrPromptOpen) {
		t.Fatalf("AskMessage error = %v, want ErrPromptOpen", err)
	}
	if len(ft.sent) != 1 || ft.sent[0].Content != busyNotice {
		t.Fatalf("sent = %v, want only the busy notice", ft.sentContents())
	}
	if !p.Registry().Open(testUser) {
		t.Error("first prompt's registry entry was disturbed")
	}
	if len(rec.all()) != 0 {
		t.Error("rejected ask must not be recorded")
	}
}

func TestAskMessageRetryLimit(t *testing.T) {
	rec := &captureRecorder{}
	p := testPrompter(t, rec)
	ft := newFakeTransport(false)
	s := testSession(p, ft)

	ft.reply(testUser, "a")
	ft.reply(testUser, "b")

	_, err := s.AskMessage(context.Background(), "Type ok", OneOf("ok"),
		WithMaxRetries(1))
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("AskMessage error = %v, want ErrCancelled", err)
	}
	if !ft.sentContains(retryLimitNotice) {
		t.Errorf("missing retry limit notice, sent: %v", ft.sentContents())
	}

	results := rec.all()
	if len(results) != 1 || results[0].Outcome != OutcomeCancelled || results[0].Retries != 2 {
		t.Fatalf("recorded results = %+v, want cancelled after 2 failures", results)
	}
}

func TestAskMessageContextCancelled(t *testing.T) {
	p := testPrompter(t, nil)
	ft := newFakeTransport(false)
	s := testSession(p, ft)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.AskMessage(ctx, "Too late", Any())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("AskMessage error = %v, want context.Canceled", err)
	}
	if ft.sentContains(timeoutNotice) {
		t.Error("context cancellation must not look like a user timeout")
	}
	if !ft.deletedContains(ft.sent[0].Ref) {
		t.Error("rendered question was not cleaned up")
	}
	if p.Registry().Open(testUser) {
		t.Error("registry entry still held after context cancellation")
	}
}

func TestAskReactionResolves(t *testing.T) {
	rec := &captureRecorder{}
	p := testPrompter(t, rec)
	ft := newFakeTransport(true)
	s := testSession(p, ft)

	// The ask's first send is the rendered question, so its ref is m1.
	uiRef := transport.MessageRef{ChannelID: testChannel, MessageID: "m1"}
	ft.react(testUser, uiRef, "✅")

	em, err := s.AskReaction(context.Background(), "Confirm?", OneOf("✅", "❌"),
		WithReactions())
	if err != nil {
		t.Fatalf("AskReaction returned error: %v", err)
	}
	if em.Identity() != "✅" {
		t.Fatalf("AskReaction = %q, want ✅", em.Identity())
	}

	if len(ft.reacted) != 2 {
		t.Fatalf("seeded %d reactions, want 2", len(ft.reacted))
	}
	if ft.reacted[0].Emoji.Name != "✅" || ft.reacted[1].Emoji.Name != "❌" {
		t.Errorf("seeded %+v, want ✅ then ❌", ft.reacted)
	}
	if ft.reacted[0].Ref != uiRef {
		t.Error("reactions were seeded on the wrong message")
	}
	if !ft.deletedContains(uiRef) {
		t.Error("rendered question was not deleted")
	}
	if p.Registry().Open(testUser) {
		t.Error("registry entry still held after resolution")
	}

	results := rec.all()
	if len(results) != 1 || results[0].Outcome != OutcomeResolved || results[0].Answer != "✅" {
		t.Fatalf("recorded results = %+v, want one resolved ✅", results)
	}
}

func TestAskReactionRejectsWrongEmoji(t *testing.T) {
	p := testPrompter(t, nil)
	ft := newFakeTransport(true)
	s := testSession(p, ft)

	uiRef := transport.MessageRef{ChannelID: testChannel, MessageID: "m1"}
	ft.react(testUser, uiRef, "🎉")
	ft.react(testUser, uiRef, "❌")

	em, err := s.AskReaction(context.Background(), "Confirm?", OneOf("✅", "❌"))
	if err != nil {
		t.Fatalf("AskReaction returned error: %v", err)
	}
	if em.Identity() != "❌" {
		t.Fatalf("AskReaction = %q, want ❌", em.Identity())
	}

	if len(ft.edits) != 1 || !strings.Contains(ft.edits[0].Content, "🎉") {
		t.Fatalf("edits = %+v, want one retry mentioning the rejected emoji", ft.edits)
	}
	if len(ft.removed) != 1 || ft.removed[0].UserID != testUser || ft.removed[0].Emoji.Name != "🎉" {
		t.Fatalf("removed = %+v, want the rejected reaction cleared", ft.removed)
	}
}

func TestAskReactionIgnoresOtherUsers(t *testing.T) {
	p := testPrompter(t, nil)
	ft := newFakeTransport(true)
	s := testSession(p, ft)

	uiRef := transport.MessageRef{ChannelID: testChannel, MessageID: "m1"}
	ft.react("intruder", uiRef, "✅")
	ft.react(testUser, uiRef, "❌")

	em, err := s.AskReaction(context.Background(), "Confirm?", OneOf("✅", "❌"))
	if err != nil {
		t.Fatalf("AskReaction returned error: %v", err)
	}
	if em.Identity() != "❌" {
		t.Fatalf("AskReaction = %q, want the target user's pick", em.Identity())
	}
	if len(ft.removed) != 0 {
		t.Errorf("removed = %+v, want no scrubbing without the option", ft.removed)
	}
}

func TestAskReactionScrubsOtherUsers(t *testing.T) {
	p := testPrompter(t, nil)
	ft := newFakeTransport(true)
	s := testSession(p, ft)

	uiRef := transport.MessageRef{ChannelID: testChannel, MessageID: "m1"}
	ft.react("intruder", uiRef, "🎉")
	ft.react(testUser, uiRef, "✅")

	em, err := s.AskReaction(context.Background(), "Confirm?", OneOf("✅", "❌"),
		WithScrubber())
	if err != nil {
		t.Fatalf("AskReaction returned error: %v", err)
	}
	if em.Identity() != "✅" {
		t.Fatalf("AskReaction = %q, want ✅", em.Identity())
	}

	// Scrubbing runs off the event path; wait for it.
	deadline := time.Now().Add(2 * time.Second)
	for {
		ft.mu.Lock()
		n := len(ft.removed)
		var got unreactCall
		if n > 0 {
			got = ft.removed[0]
		}
		ft.mu.Unlock()
		if n > 0 {
			if got.UserID != "intruder" || got.Emoji.Name != "🎉" {
				t.Fatalf("scrubbed %+v, want intruder's 🎉", got)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the intruder's reaction to be scrubbed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAskReactionUnsupportedTransport(t *testing.T) {
	p := testPrompter(t, nil)
	ft := newFakeTransport(false)
	s := testSession(p, ft)

	_, err := s.AskReaction(context.Background(), "Confirm?", OneOf("✅"))
	if !errors.Is(err, ErrReactionsUnsupported) {
		t.Fatalf("AskReaction error = %v, want ErrReactionsUnsupported", err)
	}
	if len(ft.sent) != 0 {
		t.Errorf("sent = %v, want nothing rendered", ft.sentContents())
	}
	if p.Registry().Count() != 0 {
		t.Error("registry must stay untouched when reactions are unsupported")
	}
}

func TestSessionSequentialAsks(t *testing.T) {
	p := testPrompter(t, nil)
	ft := newFakeTransport(false)
	s := testSession(p, ft)

	ft.reply(testUser, "first")
	got, err := s.AskMessage(context.Background(), "One?", Any())
	if err != nil || got != "first" {
		t.Fatalf("first ask = %q, %v", got, err)
	}

	ft.reply(testUser, "second")
	got, err = s.AskMessage(context.Background(), "Two?", Any())
	if err != nil || got != "second" {
		t.Fatalf("second ask = %q, %v", got, err)
	}

	if len(ft.sent) != 2 || ft.sent[0].Ref == ft.sent[1].Ref {
		t.Fatalf("sent = %+v, want two distinct question messages", ft.sent)
	}
	if p.Registry().Count() != 0 {
		t.Error("registry entries leaked across sequential asks")
	}
}
