package prompt

import (
	"regexp"

	"vancedhelper/pkg/transport"
)

// Spec defines which answers a prompt accepts. A Spec is either a
// pattern, accepted when the pattern is found anywhere in the candidate,
// or an allow-list of literal values, where an empty list accepts
// anything. The zero value accepts anything.
type Spec struct {
	pattern *regexp.Regexp
	allowed []string
}

// Any returns a Spec that accepts every answer.
func Any() Spec {
	return Spec{}
}

// Match returns a Spec accepting answers the pattern is found in.
func Match(re *regexp.Regexp) Spec {
	return Spec{pattern: re}
}

// OneOf returns a Spec accepting only the listed values. Called with no
// values it accepts anything.
func OneOf(values ...string) Spec {
	return Spec{allowed: values}
}

// Values returns the allow-list literals, nil for pattern specs. The
// reaction flow seeds one reaction per value.
func (s Spec) Values() []string {
	return s.allowed
}

// Accepts reports whether a text answer satisfies the spec. Text values
// compare case-sensitively.
func (s Spec) Accepts(text string) bool {
	if s.pattern != nil {
		return s.pattern.MatchString(text)
	}
	if len(s.allowed) == 0 {
		return true
	}
	for _, v := range s.allowed {
		if v == text {
			return true
		}
	}
	return false
}

// AcceptsEmoji reports whether a reaction answer satisfies the spec.
// Emoji compare by Identity. An allow-list entry written as name:id also
// matches on its id part, so one literal can both seed a custom emoji
// and validate it.
func (s Spec) AcceptsEmoji(em transport.Emoji) bool {
	id := em.Identity()
	if s.pattern != nil {
		return s.pattern.MatchString(id)
	}
	if len(s.allowed) == 0 {
		return true
	}
	for _, v := range s.allowed {
		if v == id {
			return true
		}
		if pv := transport.ParseEmoji(v); pv.ID != "" && pv.ID == id {
			return true
		}
	}
	return false
}
