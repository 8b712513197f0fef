package channels

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"vancedhelper/pkg/logger"
	"vancedhelper/pkg/reminders"
	"vancedhelper/pkg/transport"
)

type fakeChannel struct {
	id      string
	enabled bool
	tp      transport.Transport

	stopOrder *[]string
	orderMu   *sync.Mutex

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	stopped sync.Once
}

func newFakeChannel(id string, enabled bool) *fakeChannel {
	return &fakeChannel{
		id:      id,
		enabled: enabled,
		stopCh:  make(chan struct{}),
	}
}

func (f *fakeChannel) ID() string   { return f.id }
func (f *fakeChannel) Name() string { return f.id }

func (f *fakeChannel) IsEnabled() bool { return f.enabled }

func (f *fakeChannel) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeChannel) Transport() transport.Transport { return f.tp }

func (f *fakeChannel) Start(ctx context.Context) error {
	f.setRunning(true)
	defer f.setRunning(false)

	select {
	case <-ctx.Done():
	case <-f.stopCh:
	}
	return nil
}

func (f *fakeChannel) Stop(ctx context.Context) error {
	f.stopped.Do(func() { close(f.stopCh) })

	if f.stopOrder != nil {
		f.orderMu.Lock()
		*f.stopOrder = append(*f.stopOrder, f.id)
		f.orderMu.Unlock()
	}
	return nil
}

func (f *fakeChannel) setRunning(v bool) {
	f.mu.Lock()
	f.running = v
	f.mu.Unlock()
}

type fakeTransport struct {
	mu         sync.Mutex
	sent       []string
	channelIDs []string
}

func (f *fakeTransport) Send(ctx context.Context, channelID, content string) (*transport.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channelIDs = append(f.channelIDs, channelID)
	f.sent = append(f.sent, content)
	return &transport.Message{ID: "m1", ChannelID: channelID, Content: content}, nil
}

func (f *fakeTransport) Edit(ctx context.Context, ref transport.MessageRef, content string) error {
	return nil
}

func (f *fakeTransport) Delete(ctx context.Context, ref transport.MessageRef) error { return nil }

func (f *fakeTransport) React(ctx context.Context, ref transport.MessageRef, emoji transport.Emoji) error {
	return nil
}

func (f *fakeTransport) Unreact(ctx context.Context, ref transport.MessageRef, emoji transport.Emoji, userID string) error {
	return nil
}

func (f *fakeTransport) AwaitMessage(ctx context.Context, channelID string, filter transport.MessageFilter) (*transport.Message, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeTransport) AwaitReaction(ctx context.Context, ref transport.MessageRef, filter transport.ReactionFilter) (*transport.ReactionEvent, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeTransport) Capabilities() transport.Capabilities {
	return transport.Capabilities{}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	log, err := logger.New(&logger.Config{Level: logger.LevelError})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewManager(log)
}

func waitRunning(t *testing.T, ch Channel, want bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ch.Running() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("channel %s running=%v, want %v", ch.ID(), ch.Running(), want)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	m := newTestManager(t)

	if err := m.Register(newFakeChannel("discord", true)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Register(newFakeChannel("discord", true)); err == nil {
		t.Fatal("expected error registering duplicate channel")
	}
}

func TestStartRunsOnlyEnabledChannels(t *testing.T) {
	m := newTestManager(t)
	enabled := newFakeChannel("discord", true)
	disabled := newFakeChannel("telegram", false)

	if err := m.Register(enabled); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Register(disabled); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	waitRunning(t, enabled, true)
	if disabled.Running() {
		t.Error("disabled channel should not be started")
	}
}

func TestStopUnwindsInReverseOrder(t *testing.T) {
	m := newTestManager(t)

	var stops []string
	var orderMu sync.Mutex
	ids := []string{"discord", "telegram", "console"}
	chans := make([]*fakeChannel, 0, len(ids))

	for _, id := range ids {
		ch := newFakeChannel(id, true)
		ch.stopOrder = &stops
		ch.orderMu = &orderMu
		chans = append(chans, ch)
		if err := m.Register(ch); err != nil {
			t.Fatalf("Register(%s): %v", id, err)
		}
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, ch := range chans {
		waitRunning(t, ch, true)
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	want := []string{"console", "telegram", "discord"}
	if len(stops) != len(want) {
		t.Fatalf("stop order = %v, want %v", stops, want)
	}
	for i := range want {
		if stops[i] != want[i] {
			t.Fatalf("stop order = %v, want %v", stops, want)
		}
	}
}

func TestStopChannelUnregisters(t *testing.T) {
	m := newTestManager(t)
	ch := newFakeChannel("discord", true)

	if err := m.Register(ch); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()
	waitRunning(t, ch, true)

	if err := m.StopChannel("discord"); err != nil {
		t.Fatalf("StopChannel: %v", err)
	}
	waitRunning(t, ch, false)

	if _, err := m.GetChannel("discord"); err == nil {
		t.Error("stopped channel should be unregistered")
	}
	if got := len(m.Statuses()); got != 0 {
		t.Errorf("Statuses() length = %d, want 0", got)
	}
}

func TestReloadChannelReplaces(t *testing.T) {
	m := newTestManager(t)
	old := newFakeChannel("discord", true)

	if err := m.Register(old); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()
	waitRunning(t, old, true)

	replacement := newFakeChannel("discord", true)
	if err := m.ReloadChannel(replacement); err != nil {
		t.Fatalf("ReloadChannel: %v", err)
	}

	waitRunning(t, old, false)
	waitRunning(t, replacement, true)

	got, err := m.GetChannel("discord")
	if err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	if got.(*fakeChannel) != replacement {
		t.Error("GetChannel returned the old channel after reload")
	}
}

func TestReloadChannelDisabledStaysStopped(t *testing.T) {
	m := newTestManager(t)
	old := newFakeChannel("telegram", true)

	if err := m.Register(old); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()
	waitRunning(t, old, true)

	replacement := newFakeChannel("telegram", false)
	if err := m.ReloadChannel(replacement); err != nil {
		t.Fatalf("ReloadChannel: %v", err)
	}

	waitRunning(t, old, false)
	if replacement.Running() {
		t.Error("disabled replacement should not be started")
	}
}

func TestStatuses(t *testing.T) {
	m := newTestManager(t)

	if err := m.Register(newFakeChannel("discord", true)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Register(newFakeChannel("telegram", false)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	statuses := m.Statuses()
	if len(statuses) != 2 {
		t.Fatalf("Statuses() length = %d, want 2", len(statuses))
	}
	if statuses[0].ID != "discord" || !statuses[0].Enabled || statuses[0].Running {
		t.Errorf("unexpected discord status: %+v", statuses[0])
	}
	if statuses[1].ID != "telegram" || statuses[1].Enabled {
		t.Errorf("unexpected telegram status: %+v", statuses[1])
	}
}

func TestDeliverSendsOverChannel(t *testing.T) {
	m := newTestManager(t)
	tp := &fakeTransport{}
	ch := newFakeChannel("discord", true)
	ch.tp = tp

	if err := m.Register(ch); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()
	waitRunning(t, ch, true)

	r := &reminders.Reminder{
		Channel:   "discord",
		ChannelID: "chat-9",
		Text:      "water the plants",
	}
	if err := m.Deliver(context.Background(), r); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	tp.mu.Lock()
	defer tp.mu.Unlock()
	if len(tp.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(tp.sent))
	}
	if tp.channelIDs[0] != "chat-9" {
		t.Errorf("sent to %q, want chat-9", tp.channelIDs[0])
	}
	if !strings.Contains(tp.sent[0], "water the plants") {
		t.Errorf("sent %q, want reminder text", tp.sent[0])
	}
}

func TestDeliverUnknownChannel(t *testing.T) {
	m := newTestManager(t)

	r := &reminders.Reminder{Channel: "discord", ChannelID: "chat-9", Text: "x"}
	if err := m.Deliver(context.Background(), r); err == nil {
		t.Fatal("expected error delivering to unknown channel")
	}
}

func TestDeliverStoppedChannel(t *testing.T) {
	m := newTestManager(t)
	ch := newFakeChannel("discord", true)
	ch.tp = &fakeTransport{}

	if err := m.Register(ch); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r := &reminders.Reminder{Channel: "discord", ChannelID: "chat-9", Text: "x"}
	err := m.Deliver(context.Background(), r)
	if err == nil {
		t.Fatal("expected error delivering over stopped channel")
	}
	if !strings.Contains(err.Error(), "not running") {
		t.Errorf("error = %v, want mention of not running", err)
	}
}
