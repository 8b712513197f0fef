package help

import (
	"os"
	"path/filepath"
	"testing"

	"vancedhelper/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(&logger.Config{Level: logger.LevelError})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestLibraryBuiltins(t *testing.T) {
	lib, err := NewLibrary(testLogger(t), "")
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}

	topic, ok := lib.Get("prompts")
	if !ok {
		t.Fatal("built-in topic prompts missing")
	}
	if topic.Title == "" || len(topic.Pages) == 0 {
		t.Errorf("prompts topic incomplete: %+v", topic)
	}

	if _, ok := lib.Get("PROMPTS"); !ok {
		t.Error("Get should be case-insensitive")
	}
	if _, ok := lib.Get("no-such-topic"); ok {
		t.Error("unknown topic should not resolve")
	}
}

func TestLibraryFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	content := `topics:
  - name: Prompts
    title: Custom Prompt Help
    summary: replaced
    pages:
      - only page
  - name: extra
    title: Extra Topic
    summary: added by file
    pages:
      - extra content
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write content file: %v", err)
	}

	lib, err := NewLibrary(testLogger(t), path)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}

	topic, ok := lib.Get("prompts")
	if !ok {
		t.Fatal("prompts topic missing")
	}
	if topic.Title != "Custom Prompt Help" {
		t.Errorf("Title = %q, file should override built-in", topic.Title)
	}

	if _, ok := lib.Get("extra"); !ok {
		t.Error("file-only topic missing")
	}
	if _, ok := lib.Get("reminders"); !ok {
		t.Error("untouched built-in topic should survive the overlay")
	}
}

func TestLibraryMissingFileFallsBack(t *testing.T) {
	lib, err := NewLibrary(testLogger(t), filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("NewLibrary with absent file: %v", err)
	}
	if _, ok := lib.Get("prompts"); !ok {
		t.Error("built-ins should load when the content file is absent")
	}
}

func TestLibraryReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	lib, err := NewLibrary(testLogger(t), path)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	if _, ok := lib.Get("fresh"); ok {
		t.Fatal("fresh topic should not exist yet")
	}

	content := `topics:
  - name: fresh
    title: Fresh
    summary: appeared after reload
    pages:
      - hello
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write content file: %v", err)
	}
	if err := lib.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if _, ok := lib.Get("fresh"); !ok {
		t.Error("reload should pick up the new topic")
	}
}

func TestLibraryNamesSorted(t *testing.T) {
	lib, err := NewLibrary(testLogger(t), "")
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}

	names := lib.Names()
	if len(names) == 0 {
		t.Fatal("expected built-in topic names")
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("names not sorted: %v", names)
			break
		}
	}
}
