package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestChooseOneResolvesValue(t *testing.T) {
	p := testPrompter(t, nil)
	ft := newFakeTransport(false)
	s := testSession(p, ft)

	ft.reply(testUser, "2")

	got, err := ChooseOne(context.Background(), s, "Pick a letter", []string{"A", "B", "C"})
	if err != nil {
		t.Fatalf("ChooseOne returned error: %v", err)
	}
	if got != "B" {
		t.Fatalf("ChooseOne = %q, want %q", got, "B")
	}

	rendered := ft.sent[0].Content
	for _, want := range []string{"Pick a letter", "```", "1 | A", "2 | B", "3 | C"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered list %q missing %q", rendered, want)
		}
	}
}

func TestChooseOneRejectsOutOfRange(t *testing.T) {
	p := testPrompter(t, nil)
	ft := newFakeTransport(false)
	s := testSession(p, ft)

	ft.reply(testUser, "9")
	ft.reply(testUser, "1")

	got, err := ChooseOne(context.Background(), s, "Pick one", []string{"only"})
	if err != nil {
		t.Fatalf("ChooseOne returned error: %v", err)
	}
	if got != "only" {
		t.Fatalf("ChooseOne = %q, want %q", got, "only")
	}
	if len(ft.edits) != 1 || !strings.Contains(ft.edits[0].Content, "`9` is not a valid choice!") {
		t.Fatalf("edits = %+v, want one rejection of 9", ft.edits)
	}
}

func TestChooseOneCancelled(t *testing.T) {
	p := testPrompter(t, nil)
	ft := newFakeTransport(false)
	s := testSession(p, ft)

	ft.reply(testUser, "quit")

	got, err := ChooseOne(context.Background(), s, "Pick one", []string{"A", "B"})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("ChooseOne error = %v, want ErrCancelled", err)
	}
	if got != "" {
		t.Fatalf("ChooseOne = %q, want zero value on cancellation", got)
	}
}

func TestChooseOneTypedValues(t *testing.T) {
	p := testPrompter(t, nil)
	ft := newFakeTransport(false)
	s := testSession(p, ft)

	ft.reply(testUser, "3")

	got, err := ChooseOne(context.Background(), s, "Pick a number", []int{10, 20, 30})
	if err != nil {
		t.Fatalf("ChooseOne returned error: %v", err)
	}
	if got != 30 {
		t.Fatalf("ChooseOne = %d, want 30", got)
	}
}

func TestChooseOneEmptyChoices(t *testing.T) {
	p := testPrompter(t, nil)
	ft := newFakeTransport(false)
	s := testSession(p, ft)

	if _, err := ChooseOne(context.Background(), s, "Pick one", []string{}); err == nil {
		t.Fatal("expected error for an empty choice list")
	}
	if len(ft.sent) != 0 {
		t.Errorf("sent = %v, want nothing rendered", ft.sentContents())
	}
}
