package channels

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"vancedhelper/pkg/logger"
	"vancedhelper/pkg/reminders"
)

const stopTimeout = 30 * time.Second

// Manager owns all registered channels and drives their lifecycle.
type Manager struct {
	log      *logger.Logger
	channels map[string]Channel
	// order remembers registration order so Stop can unwind in reverse.
	order []string
	mu    sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a new channel manager.
func NewManager(log *logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		log:      log,
		channels: make(map[string]Channel),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register registers a channel with the manager.
func (m *Manager) Register(channel Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := channel.ID()
	if _, exists := m.channels[id]; exists {
		return fmt.Errorf("channel %s already registered", id)
	}

	m.channels[id] = channel
	m.order = append(m.order, id)
	m.log.Info("registered channel",
		zap.String("id", id),
		zap.String("name", channel.Name()))

	return nil
}

// Start starts all enabled channels.
func (m *Manager) Start() error {
	m.log.Info("starting channel manager")

	m.mu.RLock()
	enabled := make([]Channel, 0, len(m.channels))
	for _, id := range m.order {
		if ch := m.channels[id]; ch.IsEnabled() {
			enabled = append(enabled, ch)
		}
	}
	m.mu.RUnlock()

	for _, ch := range enabled {
		channel := ch

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()

			m.log.Info("starting channel",
				zap.String("id", channel.ID()),
				zap.String("name", channel.Name()))

			if err := channel.Start(m.ctx); err != nil {
				m.log.Error("channel start failed",
					zap.String("channel", channel.ID()),
					zap.Error(err))
			}
		}()
	}

	if len(enabled) == 0 {
		m.log.Warn("no channels enabled")
	} else {
		m.log.Info("started channels", zap.Int("count", len(enabled)))
	}

	return nil
}

// Stop stops all channels in reverse registration order.
func (m *Manager) Stop() error {
	m.log.Info("stopping channel manager")

	m.cancel()

	m.mu.RLock()
	ordered := make([]Channel, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		if ch, ok := m.channels[m.order[i]]; ok {
			ordered = append(ordered, ch)
		}
	}
	m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	for _, ch := range ordered {
		if err := ch.Stop(ctx); err != nil {
			m.log.Error("error stopping channel",
				zap.String("channel", ch.ID()),
				zap.Error(err))
		}
	}

	m.wg.Wait()

	m.log.Info("channel manager stopped")
	return nil
}

// StopChannel stops and unregisters a specific channel.
func (m *Manager) StopChannel(channelID string) error {
	m.mu.RLock()
	ch, exists := m.channels[channelID]
	m.mu.RUnlock()
	if !exists {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := ch.Stop(ctx); err != nil {
		m.log.Error("error stopping channel",
			zap.String("channel", channelID),
			zap.Error(err))
	}

	m.mu.Lock()
	delete(m.channels, channelID)
	for i, id := range m.order {
		if id == channelID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.log.Info("stopped channel", zap.String("id", channelID))
	return nil
}

// ReloadChannel replaces an existing channel and starts the new one if
// enabled. The config watcher uses this after channel settings change.
func (m *Manager) ReloadChannel(channel Channel) error {
	if channel == nil {
		return fmt.Errorf("channel cannot be nil")
	}

	id := channel.ID()
	if err := m.StopChannel(id); err != nil {
		return err
	}

	m.mu.Lock()
	m.channels[id] = channel
	m.order = append(m.order, id)
	m.mu.Unlock()

	m.log.Info("reloaded channel",
		zap.String("id", id),
		zap.String("name", channel.Name()),
		zap.Bool("enabled", channel.IsEnabled()))

	if !channel.IsEnabled() {
		return nil
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := channel.Start(m.ctx); err != nil {
			m.log.Error("channel start failed after reload",
				zap.String("channel", id),
				zap.Error(err))
		}
	}()

	return nil
}

// GetChannel returns a channel by ID.
func (m *Manager) GetChannel(channelID string) (Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	channel, exists := m.channels[channelID]
	if !exists {
		return nil, fmt.Errorf("channel %s not found", channelID)
	}

	return channel, nil
}

// ListChannels returns all registered channels in registration order.
func (m *Manager) ListChannels() []Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()

	channels := make([]Channel, 0, len(m.order))
	for _, id := range m.order {
		channels = append(channels, m.channels[id])
	}

	return channels
}

// GetEnabledChannels returns all enabled channels in registration order.
func (m *Manager) GetEnabledChannels() []Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()

	channels := make([]Channel, 0)
	for _, id := range m.order {
		if ch := m.channels[id]; ch.IsEnabled() {
			channels = append(channels, ch)
		}
	}

	return channels
}

// Statuses returns a snapshot of every channel's state for status
// surfaces.
func (m *Manager) Statuses() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]Status, 0, len(m.order))
	for _, id := range m.order {
		ch := m.channels[id]
		statuses = append(statuses, Status{
			ID:      ch.ID(),
			Name:    ch.Name(),
			Enabled: ch.IsEnabled(),
			Running: ch.Running(),
		})
	}

	return statuses
}

// Deliver implements reminders.Notifier by sending the reminder text
// over the channel it was created on.
func (m *Manager) Deliver(ctx context.Context, r *reminders.Reminder) error {
	ch, err := m.GetChannel(r.Channel)
	if err != nil {
		return err
	}
	if !ch.Running() {
		return fmt.Errorf("channel %s is not running", r.Channel)
	}

	_, err = ch.Transport().Send(ctx, r.ChannelID, "⏰ **Reminder:** "+r.Text)
	if err != nil {
		return fmt.Errorf("delivering reminder: %w", err)
	}
	return nil
}
