package prompt

import "sync"

// Registry tracks which users currently have an open prompt and enforces
// at most one per user, process-wide. It is constructed once and shared;
// entries are transient and always released on a terminal prompt path.
type Registry struct {
	mu   sync.Mutex
	open map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		open: make(map[string]struct{}),
	}
}

// TryAcquire marks the user as having an open prompt. It returns false
// if the user already has one.
func (r *Registry) TryAcquire(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, held := r.open[userID]; held {
		return false
	}
	r.open[userID] = struct{}{}
	return true
}

// Release removes the user's entry. Releasing a user without an open
// prompt is a no-op.
func (r *Registry) Release(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.open, userID)
}

// Open reports whether the user currently has an open prompt.
func (r *Registry) Open(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, held := r.open[userID]
	return held
}

// Count returns the number of currently open prompts.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.open)
}
