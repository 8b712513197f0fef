// Package prefs stores per-user preferences on top of the state store.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"vancedhelper/pkg/state"
)

const keyPrefix = "prefs"

// Profile stores user preferences per (channel, user).
type Profile struct {
	PreferredName string    `json:"preferred_name,omitempty"`
	MentionStyle  string    `json:"mention_style,omitempty"`
	Timezone      string    `json:"timezone,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// Manager manages profile persistence.
type Manager struct {
	store state.KV
}

// New creates a new preferences manager.
func New(store state.KV) *Manager {
	return &Manager{store: store}
}

// Get gets a profile by channel and user ID.
func (m *Manager) Get(ctx context.Context, channel, userID string) (Profile, bool, error) {
	if m == nil || m.store == nil {
		return Profile{}, false, nil
	}

	v, ok, err := m.store.Get(ctx, key(channel, userID))
	if err != nil || !ok {
		return Profile{}, false, err
	}

	p, err := decodeProfile(v)
	if err != nil {
		return Profile{}, false, err
	}

	return p, true, nil
}

// Save saves a profile.
func (m *Manager) Save(ctx context.Context, channel, userID string, p Profile) error {
	if m == nil || m.store == nil {
		return nil
	}

	p.PreferredName = strings.TrimSpace(p.PreferredName)
	p.MentionStyle = NormalizeMentionStyle(p.MentionStyle)
	p.Timezone = strings.TrimSpace(p.Timezone)
	p.UpdatedAt = time.Now()

	return m.store.Set(ctx, key(channel, userID), p)
}

// Clear removes a profile.
func (m *Manager) Clear(ctx context.Context, channel, userID string) error {
	if m == nil || m.store == nil {
		return nil
	}
	return m.store.Delete(ctx, key(channel, userID))
}

// NormalizeMentionStyle returns a normalized mention style with default
// mention.
func NormalizeMentionStyle(style string) string {
	style = strings.ToLower(strings.TrimSpace(style))
	switch style {
	case "mention", "name", "none":
		return style
	default:
		return "mention"
	}
}

// ValidTimezone reports whether tz names a loadable IANA timezone.
func ValidTimezone(tz string) bool {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// Location resolves the profile timezone, falling back to UTC.
func (p Profile) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Summary returns a compact one-line rendering of the set fields.
func (p Profile) Summary() string {
	var parts []string
	if p.PreferredName != "" {
		parts = append(parts, "preferred_name="+p.PreferredName)
	}
	if p.MentionStyle != "" {
		parts = append(parts, "mention_style="+NormalizeMentionStyle(p.MentionStyle))
	}
	if p.Timezone != "" {
		parts = append(parts, "timezone="+p.Timezone)
	}
	if len(parts) == 0 {
		return "no preferences set"
	}
	return strings.Join(parts, ", ")
}

func key(channel, userID string) string {
	ch := strings.ToLower(strings.TrimSpace(channel))
	uid := strings.TrimSpace(userID)
	if ch == "" {
		ch = "default"
	}
	if uid == "" {
		uid = "unknown"
	}
	return fmt.Sprintf("%s:%s:%s", keyPrefix, ch, uid)
}

func decodeProfile(v any) (Profile, error) {
	if v == nil {
		return Profile{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Profile{}, fmt.Errorf("marshal profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("unmarshal profile: %w", err)
	}

	p.MentionStyle = NormalizeMentionStyle(p.MentionStyle)
	return p, nil
}
