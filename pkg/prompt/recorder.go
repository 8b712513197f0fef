package prompt

import (
	"context"
	"time"
)

// Outcome classifies how a completed prompt ended.
type Outcome string

const (
	OutcomeResolved  Outcome = "resolved"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeTimedOut  Outcome = "timed_out"
)

// Result describes one completed prompt.
type Result struct {
	ID        string
	UserID    string
	ChannelID string
	Channel   string
	Question  string
	Outcome   Outcome
	Answer    string
	Retries   int
	AskedAt   time.Time
	Duration  time.Duration
}

// Recorder receives completed prompts for auditing. Recording is
// best-effort: failures are the recorder's to log and never change a
// prompt's outcome. Implementations must tolerate concurrent calls.
type Recorder interface {
	Record(ctx context.Context, res Result)
}

// NopRecorder discards every result.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, Result) {}
