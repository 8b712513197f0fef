package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ChooseOne renders an enumerated list beneath the question and asks the
// user to answer with an option's 1-based index. It returns the chosen
// value, not the typed index. Cancellation and timeout surface as the
// underlying ask's error.
func ChooseOne[T any](ctx context.Context, s *Session, question string, choices []T, opts ...Option) (T, error) {
	var chosen T
	if len(choices) == 0 {
		return chosen, fmt.Errorf("choice prompt needs at least one option")
	}

	var b strings.Builder
	b.WriteString(question)
	b.WriteString("\n```\n")
	allowed := make([]string, len(choices))
	for i, c := range choices {
		fmt.Fprintf(&b, "%d | %v\n", i+1, c)
		allowed[i] = strconv.Itoa(i + 1)
	}
	b.WriteString("```")

	opts = append(opts, WithErrorTemplate(DefaultErrorTemplate))
	answer, err := s.AskMessage(ctx, b.String(), OneOf(allowed...), opts...)
	if err != nil {
		return chosen, err
	}

	i, err := strconv.Atoi(answer)
	if err != nil || i < 1 || i > len(choices) {
		return chosen, fmt.Errorf("unexpected choice answer %q", answer)
	}
	return choices[i-1], nil
}
