package prompt

import (
	"context"

	"go.uber.org/zap"

	"vancedhelper/pkg/logger"
	"vancedhelper/pkg/transport"
)

// ScrubOther decorates a reaction filter: events the inner filter
// rejects are never consumed, and when they come from a user other than
// userID the reaction is removed from the message, best-effort. The
// target user's own rejected events are left alone.
func ScrubOther(t transport.Transport, userID string, log *logger.Logger, inner transport.ReactionFilter) transport.ReactionFilter {
	return func(ev *transport.ReactionEvent) bool {
		if inner(ev) {
			return true
		}
		if ev.UserID != userID {
			// ev may be reused once the filter returns.
			scrubbed := *ev
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
				defer cancel()

				if err := t.Unreact(ctx, scrubbed.Message, scrubbed.Emoji, scrubbed.UserID); err != nil && log != nil {
					log.Debug("scrubbing reaction failed",
						zap.String("user_id", scrubbed.UserID),
						zap.Error(err))
				}
			}()
		}
		return false
	}
}
