package help

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"vancedhelper/pkg/transport"
)

const pagerUser = "user-1"

// pagerTransport is a scripted transport covering the calls the pager
// makes. Reactions are queued before Show runs.
type pagerTransport struct {
	mu           sync.Mutex
	hasReactions bool
	nextID       int

	sent    []string
	edits   []string
	reacted []transport.Emoji
	removed []removedCall

	reactions chan *transport.ReactionEvent
}

type removedCall struct {
	Emoji  transport.Emoji
	UserID string
}

func newPagerTransport(hasReactions bool) *pagerTransport {
	return &pagerTransport{
		hasReactions: hasReactions,
		reactions:    make(chan *transport.ReactionEvent, 16),
	}
}

func (f *pagerTransport) Capabilities() transport.Capabilities {
	return transport.Capabilities{Reactions: f.hasReactions}
}

func (f *pagerTransport) Send(ctx context.Context, channelID, content string) (*transport.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	f.sent = append(f.sent, content)
	return &transport.Message{
		ID:        fmt.Sprintf("m%d", f.nextID),
		ChannelID: channelID,
		Content:   content,
	}, nil
}

func (f *pagerTransport) Edit(ctx context.Context, ref transport.MessageRef, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.edits = append(f.edits, content)
	return nil
}

func (f *pagerTransport) Delete(ctx context.Context, ref transport.MessageRef) error {
	return nil
}

func (f *pagerTransport) React(ctx context.Context, ref transport.MessageRef, emoji transport.Emoji) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reacted = append(f.reacted, emoji)
	return nil
}

func (f *pagerTransport) Unreact(ctx context.Context, ref transport.MessageRef, emoji transport.Emoji, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.removed = append(f.removed, removedCall{Emoji: emoji, UserID: userID})
	return nil
}

func (f *pagerTransport) AwaitMessage(ctx context.Context, channelID string, filter transport.MessageFilter) (*transport.Message, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *pagerTransport) AwaitReaction(ctx context.Context, ref transport.MessageRef, filter transport.ReactionFilter) (*transport.ReactionEvent, error) {
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

func (f *pagerTransport) press(user, emoji string) {
	f.reactions <- &transport.ReactionEvent{
		Message: transport.MessageRef{MessageID: "m1"},
		UserID:  user,
		Emoji:   transport.Emoji{Name: emoji},
	}
}

func testTopic() *Topic {
	return &Topic{
		Name:    "demo",
		Title:   "Demo",
		Summary: "demo topic",
		Pages:   []string{"first page", "second page", "third page"},
	}
}

func TestPagerSinglePageSkipsControls(t *testing.T) {
	ft := newPagerTransport(true)
	pager := NewPager(testLogger(t), time.Second)

	topic := &Topic{Name: "one", Title: "One", Pages: []string{"only"}}
	if err := pager.Show(context.Background(), ft, "chan-1", pagerUser, topic); err != nil {
		t.Fatalf("Show: %v", err)
	}

	if len(ft.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(ft.sent))
	}
	if len(ft.reacted) != 0 {
		t.Errorf("seeded %d controls on a single page, want 0", len(ft.reacted))
	}
}

func TestPagerWithoutReactionsSendsFirstPage(t *testing.T) {
	ft := newPagerTransport(false)
	pager := NewPager(testLogger(t), time.Second)

	if err := pager.Show(context.Background(), ft, "chan-1", pagerUser, testTopic()); err != nil {
		t.Fatalf("Show: %v", err)
	}

	if len(ft.sent) != 1 || !strings.Contains(ft.sent[0], "first page") {
		t.Errorf("sent = %v, want the first page only", ft.sent)
	}
	if len(ft.reacted) != 0 {
		t.Errorf("seeded controls without reaction support")
	}
}

func TestPagerFlipsAndStops(t *testing.T) {
	ft := newPagerTransport(true)
	pager := NewPager(testLogger(t), time.Second)

	ft.press(pagerUser, emojiNext)
	ft.press(pagerUser, emojiNext)
	ft.press(pagerUser, emojiStop)

	if err := pager.Show(context.Background(), ft, "chan-1", pagerUser, testTopic()); err != nil {
		t.Fatalf("Show: %v", err)
	}

	if len(ft.reacted) != 3 {
		t.Errorf("seeded %d controls, want 3", len(ft.reacted))
	}
	if len(ft.edits) != 2 {
		t.Fatalf("%d edits, want 2", len(ft.edits))
	}
	if !strings.Contains(ft.edits[0], "second page") {
		t.Errorf("first flip = %q, want second page", ft.edits[0])
	}
	if !strings.Contains(ft.edits[1], "third page") {
		t.Errorf("second flip = %q, want third page", ft.edits[1])
	}

	var userPresses, botClears int
	for _, r := range ft.removed {
		if r.UserID == pagerUser {
			userPresses++
		}
		if r.UserID == "" {
			botClears++
		}
	}
	if userPresses != 2 {
		t.Errorf("removed %d user presses, want 2", userPresses)
	}
	if botClears != 3 {
		t.Errorf("cleared %d controls, want 3", botClears)
	}
}

func TestPagerClampsAtFirstPage(t *testing.T) {
	ft := newPagerTransport(true)
	pager := NewPager(testLogger(t), time.Second)

	ft.press(pagerUser, emojiPrev)
	ft.press(pagerUser, emojiStop)

	if err := pager.Show(context.Background(), ft, "chan-1", pagerUser, testTopic()); err != nil {
		t.Fatalf("Show: %v", err)
	}

	if len(ft.edits) != 1 || !strings.Contains(ft.edits[0], "first page") {
		t.Errorf("edits = %v, want a re-render of the first page", ft.edits)
	}
}

func TestPagerIdleTimeoutStops(t *testing.T) {
	ft := newPagerTransport(true)
	pager := NewPager(testLogger(t), 30*time.Millisecond)

	if err := pager.Show(context.Background(), ft, "chan-1", pagerUser, testTopic()); err != nil {
		t.Fatalf("Show after idle timeout: %v", err)
	}

	var botClears int
	for _, r := range ft.removed {
		if r.UserID == "" {
			botClears++
		}
	}
	if botClears != 3 {
		t.Errorf("cleared %d controls after timeout, want 3", botClears)
	}
}

func TestPagerIgnoresForeignPresses(t *testing.T) {
	ft := newPagerTransport(true)
	pager := NewPager(testLogger(t), time.Second)

	ft.press("someone-else", emojiNext)
	ft.press(pagerUser, emojiStop)

	if err := pager.Show(context.Background(), ft, "chan-1", pagerUser, testTopic()); err != nil {
		t.Fatalf("Show: %v", err)
	}

	if len(ft.edits) != 0 {
		t.Errorf("foreign press flipped the page: %v", ft.edits)
	}

	// The foreign press is scrubbed from a goroutine.
	deadline := time.Now().Add(time.Second)
	for {
		found := false
		ft.mu.Lock()
		for _, r := range ft.removed {
			if r.UserID == "someone-else" {
				found = true
			}
		}
		ft.mu.Unlock()
		if found {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("foreign press was never scrubbed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPagerParentCancel(t *testing.T) {
	ft := newPagerTransport(true)
	pager := NewPager(testLogger(t), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	topic := &Topic{Name: "one", Title: "One", Pages: []string{"a", "b"}}
	err := pager.Show(ctx, ft, "chan-1", pagerUser, topic)
	if err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}
