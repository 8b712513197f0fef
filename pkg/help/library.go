// Package help serves paged help content from a YAML topic library.
package help

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"vancedhelper/pkg/logger"
)

//go:embed topics.yaml
var builtinTopics []byte

// Topic is one help subject with its pages.
type Topic struct {
	Name    string   `yaml:"name"`
	Title   string   `yaml:"title"`
	Summary string   `yaml:"summary"`
	Pages   []string `yaml:"pages"`
}

type libraryFile struct {
	Topics []Topic `yaml:"topics"`
}

// Library holds the loaded topics. A content file configured by the user
// overrides the built-in set topic by topic.
type Library struct {
	log  *logger.Logger
	path string

	mu     sync.RWMutex
	topics map[string]*Topic
}

// NewLibrary loads the built-in topics plus the optional content file.
func NewLibrary(log *logger.Logger, path string) (*Library, error) {
	l := &Library{
		log:    log,
		path:   path,
		topics: make(map[string]*Topic),
	}

	if err := l.Reload(); err != nil {
		return nil, err
	}

	return l, nil
}

// Reload re-reads the content file over the built-in defaults. Called by
// the config watcher when the file changes.
func (l *Library) Reload() error {
	topics := make(map[string]*Topic)

	if err := mergeYAML(topics, builtinTopics); err != nil {
		return fmt.Errorf("parse built-in topics: %w", err)
	}

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		switch {
		case os.IsNotExist(err):
			l.log.Debug("help content file not found, using built-ins",
				zap.String("path", l.path))
		case err != nil:
			return fmt.Errorf("read help content: %w", err)
		default:
			if err := mergeYAML(topics, data); err != nil {
				return fmt.Errorf("parse help content: %w", err)
			}
		}
	}

	l.mu.Lock()
	l.topics = topics
	l.mu.Unlock()

	l.log.Debug("help topics loaded", zap.Int("count", len(topics)))
	return nil
}

// Get returns the topic with the given name, case-insensitively.
func (l *Library) Get(name string) (*Topic, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.topics[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Names returns all topic names, sorted.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.topics))
	for name := range l.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mergeYAML(topics map[string]*Topic, data []byte) error {
	var file libraryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	for i := range file.Topics {
		t := file.Topics[i]
		name := strings.ToLower(strings.TrimSpace(t.Name))
		if name == "" {
			continue
		}
		t.Name = name
		topics[name] = &t
	}
	return nil
}
