package commands

import (
	"context"
	"testing"
)

func nopHandler(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	return CommandResponse{}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry("!")

	if err := r.Register(&Command{Name: "Ping", Handler: nopHandler}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	cmd, ok := r.Get("ping")
	if !ok {
		t.Fatal("registered command not found")
	}
	if cmd.Name != "ping" {
		t.Errorf("Name = %q, want normalized ping", cmd.Name)
	}

	if _, ok := r.Get("!ping"); !ok {
		t.Error("Get should strip the prefix")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry("!")

	if err := r.Register(&Command{Name: "ping", Handler: nopHandler}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&Command{Name: "ping", Handler: nopHandler}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
	if err := r.Register(&Command{Name: ""}); err == nil {
		t.Error("expected empty name to fail")
	}
	if err := r.Register(nil); err == nil {
		t.Error("expected nil command to fail")
	}
}

func TestRegistryIsCommand(t *testing.T) {
	r := NewRegistry("!")
	if err := r.Register(&Command{Name: "ping", Handler: nopHandler}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		text string
		want bool
	}{
		{"!ping", true},
		{"  !ping extra", true},
		{"!unknown", false},
		{"ping", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := r.IsCommand(tt.text); got != tt.want {
			t.Errorf("IsCommand(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestRegistryParse(t *testing.T) {
	r := NewRegistry("!")

	name, args := r.Parse("!Remind  list ")
	if name != "remind" {
		t.Errorf("name = %q, want remind", name)
	}
	if args != "list" {
		t.Errorf("args = %q, want list", args)
	}

	name, args = r.Parse("hello there")
	if name != "" || args != "" {
		t.Errorf("non-command parsed as %q/%q", name, args)
	}
}

func TestRegistryCustomPrefix(t *testing.T) {
	r := NewRegistry("?")
	if err := r.Register(&Command{Name: "ping", Handler: nopHandler}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !r.IsCommand("?ping") {
		t.Error("custom prefix not recognized")
	}
	if r.IsCommand("!ping") {
		t.Error("default prefix should not work with a custom prefix")
	}

	if NewRegistry("").Prefix() != DefaultPrefix {
		t.Errorf("empty prefix should fall back to %s", DefaultPrefix)
	}
}
