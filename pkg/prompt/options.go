package prompt

import "time"

// DefaultErrorTemplate annotates rejected answers. The literal {VALUE}
// is replaced with the rejected input.
const DefaultErrorTemplate = "`{VALUE}` is not a valid choice! Please try again."

// DefaultTimeout bounds an ask when neither configuration nor the call
// sets one.
const DefaultTimeout = 2 * time.Minute

// Options controls a single ask. Each ask starts from the prompter's
// defaults; per-call options override them.
type Options struct {
	// Timeout bounds the wait for each answer.
	Timeout time.Duration

	// ErrorTemplate annotates rejected answers. The literal {VALUE} is
	// replaced with the rejected input.
	ErrorTemplate string

	// SeedReactions pre-seeds the rendered message with one reaction
	// per allow-list value on reaction asks.
	SeedReactions bool

	// MaxRetries bounds validation failures before the prompt is
	// force-cancelled. Zero means unbounded retries.
	MaxRetries int

	// Scrub removes other users' reactions from the rendered message
	// while a reaction ask is open.
	Scrub bool
}

// Option adjusts a single ask.
type Option func(*Options)

// WithTimeout bounds the wait for each answer.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithErrorTemplate replaces the rejection annotation. The literal
// {VALUE} stands for the rejected input.
func WithErrorTemplate(template string) Option {
	return func(o *Options) { o.ErrorTemplate = template }
}

// WithReactions pre-seeds the rendered message with one reaction per
// allow-list value.
func WithReactions() Option {
	return func(o *Options) { o.SeedReactions = true }
}

// WithMaxRetries bounds validation failures before the prompt is
// force-cancelled. Zero restores unbounded retries.
func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

// WithScrubber removes other users' reactions from the rendered message
// while the ask is open.
func WithScrubber() Option {
	return func(o *Options) { o.Scrub = true }
}

// options resolves one ask's options from the prompter's defaults.
func (p *Prompter) options(opts []Option) Options {
	o := p.defaults
	for _, opt := range opts {
		opt(&o)
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ErrorTemplate == "" {
		o.ErrorTemplate = DefaultErrorTemplate
	}
	return o
}
