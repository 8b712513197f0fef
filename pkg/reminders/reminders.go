// Package reminders schedules one-shot and recurring reminders and
// delivers them back to the channel they were created in.
package reminders

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"vancedhelper/pkg/fileutil"
	"vancedhelper/pkg/logger"
)

// ScheduleKind distinguishes how a reminder is scheduled.
type ScheduleKind string

const (
	// ScheduleCron fires on a standard 5-field cron line or an @every
	// descriptor.
	ScheduleCron ScheduleKind = "cron"
	// ScheduleAt fires once at a fixed time.
	ScheduleAt ScheduleKind = "at"
)

// Reminder is one scheduled reminder.
type Reminder struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Channel   string       `json:"channel"`
	ChannelID string       `json:"channel_id"`
	Text      string       `json:"text"`
	Kind      ScheduleKind `json:"kind"`
	Schedule  string       `json:"schedule,omitempty"`
	At        *time.Time   `json:"at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	NextRun   time.Time    `json:"next_run"`
	RunCount  int          `json:"run_count"`
}

// Notifier delivers a fired reminder to its channel.
type Notifier interface {
	Deliver(ctx context.Context, r *Reminder) error
}

// Config configures the reminders manager.
type Config struct {
	FilePath   string
	MaxPerUser int
}

// Manager owns the schedule and the reminders file.
type Manager struct {
	log      *logger.Logger
	notifier Notifier
	filePath string
	maxPer   int

	scheduler *cron.Cron
	reminders map[string]*Reminder
	entries   map[string]cron.EntryID
	mu        sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	ticker *time.Ticker
	wg     sync.WaitGroup
}

const (
	atCheckInterval = 10 * time.Second
	deliverTimeout  = 30 * time.Second
)

var inPattern = regexp.MustCompile(`(?i)^in\s+(\d+)\s*(m|h)$`)

// New creates a reminders manager. Deliveries go through notifier.
func New(log *logger.Logger, notifier Notifier, cfg *Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		log:       log,
		notifier:  notifier,
		filePath:  cfg.FilePath,
		maxPer:    cfg.MaxPerUser,
		scheduler: cron.New(),
		reminders: make(map[string]*Reminder),
		entries:   make(map[string]cron.EntryID),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start loads persisted reminders and begins scheduling.
func (m *Manager) Start() error {
	m.log.Info("starting reminders manager")

	if err := m.load(); err != nil {
		m.log.Warn("failed to load reminders", zap.Error(err))
	}

	m.mu.Lock()
	for _, r := range m.reminders {
		if r.Kind != ScheduleCron {
			continue
		}
		if err := m.scheduleCron(r); err != nil {
			m.log.Error("failed to schedule reminder",
				zap.String("reminder_id", r.ID),
				zap.Error(err))
		}
	}
	m.mu.Unlock()

	m.scheduler.Start()

	// The scheduler computes entry times once running.
	m.mu.Lock()
	for id, entryID := range m.entries {
		if r, ok := m.reminders[id]; ok {
			r.NextRun = m.scheduler.Entry(entryID).Next
		}
	}
	m.mu.Unlock()

	m.ticker = time.NewTicker(atCheckInterval)
	m.wg.Add(1)
	go m.run()

	return nil
}

// Stop halts scheduling. Reminders stay on disk for the next start.
func (m *Manager) Stop() error {
	m.log.Info("stopping reminders manager")

	if m.ticker != nil {
		m.ticker.Stop()
	}

	stopCtx := m.scheduler.Stop()
	<-stopCtx.Done()

	m.cancel()
	m.wg.Wait()

	m.log.Info("reminders manager stopped")
	return nil
}

// Add parses the schedule input and registers a reminder. Accepted
// forms: "in <N>m", "in <N>h", a 5-field cron line, or "@every <dur>".
func (m *Manager) Add(userID, channel, channelID, text, schedule string) (*Reminder, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("reminder text cannot be empty")
	}

	if m.maxPer > 0 && m.countByUser(userID) >= m.maxPer {
		return nil, fmt.Errorf("you already have %d reminders, cancel one first", m.maxPer)
	}

	r := &Reminder{
		ID:        generateID(),
		UserID:    userID,
		Channel:   channel,
		ChannelID: channelID,
		Text:      text,
		CreatedAt: time.Now(),
	}

	schedule = strings.TrimSpace(schedule)
	if match := inPattern.FindStringSubmatch(schedule); match != nil {
		n, err := strconv.Atoi(match[1])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid delay: %s", schedule)
		}
		unit := time.Minute
		if strings.EqualFold(match[2], "h") {
			unit = time.Hour
		}
		at := time.Now().Add(time.Duration(n) * unit)

		r.Kind = ScheduleAt
		r.At = &at
		r.NextRun = at
	} else {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
		}
		r.Kind = ScheduleCron
		r.Schedule = schedule
	}

	m.mu.Lock()
	m.reminders[r.ID] = r
	if r.Kind == ScheduleCron {
		if err := m.scheduleCron(r); err != nil {
			delete(m.reminders, r.ID)
			m.mu.Unlock()
			return nil, fmt.Errorf("scheduling reminder: %w", err)
		}
	}
	m.mu.Unlock()

	if err := m.save(); err != nil {
		m.log.Error("failed to save reminders", zap.Error(err))
	}

	m.log.Info("added reminder",
		zap.String("reminder_id", r.ID),
		zap.String("user_id", userID),
		zap.String("kind", string(r.Kind)))

	copied := *r
	return &copied, nil
}

// Remove deletes the user's reminder. Other users' reminders are not
// removable.
func (m *Manager) Remove(userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, exists := m.reminders[id]
	if !exists || r.UserID != userID {
		return fmt.Errorf("reminder not found: %s", id)
	}

	m.removeLocked(id)

	if err := m.save(); err != nil {
		m.log.Error("failed to save reminders", zap.Error(err))
	}

	m.log.Info("removed reminder",
		zap.String("reminder_id", id),
		zap.String("user_id", userID))
	return nil
}

// ListByUser returns the user's reminders ordered by next run.
func (m *Manager) ListByUser(userID string) []*Reminder {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Reminder
	for _, r := range m.reminders {
		if r.UserID != userID {
			continue
		}
		copied := *r
		out = append(out, &copied)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].NextRun.Before(out[j].NextRun)
	})
	return out
}

// Count returns the total number of reminders.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reminders)
}

// scheduleCron registers a cron-kind reminder with the scheduler.
// Caller must hold m.mu.
func (m *Manager) scheduleCron(r *Reminder) error {
	if entryID, exists := m.entries[r.ID]; exists {
		m.scheduler.Remove(entryID)
	}

	id := r.ID
	entryID, err := m.scheduler.AddFunc(r.Schedule, func() {
		m.fire(id)
	})
	if err != nil {
		return err
	}

	m.entries[r.ID] = entryID
	r.NextRun = m.scheduler.Entry(entryID).Next
	return nil
}

func (m *Manager) run() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ticker.C:
			m.checkAtJobs()
		case <-m.ctx.Done():
			return
		}
	}
}

// checkAtJobs fires due one-shot reminders.
func (m *Manager) checkAtJobs() {
	now := time.Now()

	m.mu.RLock()
	var due []string
	for id, r := range m.reminders {
		if r.Kind == ScheduleAt && !r.NextRun.After(now) {
			due = append(due, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range due {
		m.fire(id)
	}
}

// fire delivers one reminder. One-shot reminders are removed after
// delivery; cron reminders update their next run time.
func (m *Manager) fire(id string) {
	m.mu.Lock()
	r, exists := m.reminders[id]
	if !exists {
		m.mu.Unlock()
		return
	}
	snapshot := *r
	m.mu.Unlock()

	m.log.Info("delivering reminder",
		zap.String("reminder_id", id),
		zap.String("user_id", snapshot.UserID))

	ctx, cancel := context.WithTimeout(m.ctx, deliverTimeout)
	err := m.notifier.Deliver(ctx, &snapshot)
	cancel()
	if err != nil {
		m.log.Error("reminder delivery failed",
			zap.String("reminder_id", id),
			zap.Error(err))
	}

	m.mu.Lock()
	if r, exists := m.reminders[id]; exists {
		r.RunCount++
		switch r.Kind {
		case ScheduleAt:
			m.removeLocked(id)
		case ScheduleCron:
			if entryID, ok := m.entries[id]; ok {
				r.NextRun = m.scheduler.Entry(entryID).Next
			}
		}
	}
	m.mu.Unlock()

	if err := m.save(); err != nil {
		m.log.Error("failed to save reminders after delivery", zap.Error(err))
	}
}

// removeLocked drops a reminder and its schedule entry. Caller must
// hold m.mu.
func (m *Manager) removeLocked(id string) {
	if entryID, exists := m.entries[id]; exists {
		m.scheduler.Remove(entryID)
		delete(m.entries, id)
	}
	delete(m.reminders, id)
}

func (m *Manager) countByUser(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, r := range m.reminders {
		if r.UserID == userID {
			n++
		}
	}
	return n
}

func (m *Manager) load() error {
	var stored []*Reminder
	if err := fileutil.LoadJSON(m.filePath, &stored); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	m.mu.Lock()
	for _, r := range stored {
		m.reminders[r.ID] = r
	}
	m.mu.Unlock()

	m.log.Info("loaded reminders", zap.Int("count", len(stored)))
	return nil
}

func (m *Manager) save() error {
	m.mu.RLock()
	stored := make([]*Reminder, 0, len(m.reminders))
	for _, r := range m.reminders {
		stored = append(stored, r)
	}
	m.mu.RUnlock()

	sort.Slice(stored, func(i, j int) bool {
		return stored[i].CreatedAt.Before(stored[j].CreatedAt)
	})

	return fileutil.SaveJSON(m.filePath, stored, 0o644)
}

func generateID() string {
	return fmt.Sprintf("rem_%d", time.Now().UnixNano())
}
