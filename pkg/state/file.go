package state

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"vancedhelper/pkg/fileutil"
	"vancedhelper/pkg/logger"
)

// FileStore is a file-backed key-value store. The whole store is one
// JSON document written atomically.
type FileStore struct {
	log      *logger.Logger
	filePath string
	data     map[string]any
	mu       sync.RWMutex
	dirty    bool

	autoSave     bool
	saveInterval time.Duration
	saveTicker   *time.Ticker
	stopSave     chan struct{}
}

// FileStoreConfig configures the file store.
type FileStoreConfig struct {
	FilePath     string
	AutoSave     bool
	SaveInterval time.Duration
}

// NewFileStore creates a file-backed store, loading existing data when
// the file is present.
func NewFileStore(log *logger.Logger, cfg *FileStoreConfig) (*FileStore, error) {
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = 5 * time.Second
	}

	s := &FileStore{
		log:          log,
		filePath:     cfg.FilePath,
		data:         make(map[string]any),
		autoSave:     cfg.AutoSave,
		saveInterval: cfg.SaveInterval,
		stopSave:     make(chan struct{}),
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading state: %w", err)
	}

	if s.autoSave {
		s.startAutoSave()
	}

	return s, nil
}

// Get retrieves a value from the store.
func (s *FileStore) Get(ctx context.Context, key string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.data[key]
	return value, exists, nil
}

// GetString retrieves a string value.
func (s *FileStore) GetString(ctx context.Context, key string) (string, bool, error) {
	value, exists, err := s.Get(ctx, key)
	if err != nil || !exists {
		return "", false, err
	}

	str, ok := value.(string)
	return str, ok, nil
}

// Set stores a value.
func (s *FileStore) Set(ctx context.Context, key string, value any) error {
	s.mu.Lock()
	s.data[key] = value
	s.dirty = true
	s.mu.Unlock()

	if !s.autoSave {
		return s.Save()
	}
	return nil
}

// Delete removes a value.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.dirty = true
	s.mu.Unlock()

	if !s.autoSave {
		return s.Save()
	}
	return nil
}

// Keys returns all keys in the store.
func (s *FileStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// Exists checks if a key exists.
func (s *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[key]
	return exists, nil
}

// UpdateFunc applies fn to the current value and stores the result. The
// read-modify-write runs under the store's lock; the save happens after.
func (s *FileStore) UpdateFunc(ctx context.Context, key string, fn func(current any) any) error {
	s.mu.Lock()
	s.data[key] = fn(s.data[key])
	s.dirty = true
	s.mu.Unlock()

	if !s.autoSave {
		return s.Save()
	}
	return nil
}

// Save persists the store to disk if anything changed.
func (s *FileStore) Save() error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snapshot := make(map[string]any, len(s.data))
	for k, v := range s.data {
		snapshot[k] = v
	}
	s.dirty = false
	s.mu.Unlock()

	if err := fileutil.SaveJSON(s.filePath, snapshot, 0o644); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return fmt.Errorf("saving state: %w", err)
	}

	s.log.Debug("saved state",
		zap.String("file", s.filePath),
		zap.Int("keys", len(snapshot)))
	return nil
}

// Close stops auto-save and performs a final save.
func (s *FileStore) Close() error {
	if s.autoSave && s.saveTicker != nil {
		s.saveTicker.Stop()
		close(s.stopSave)
	}
	return s.Save()
}

func (s *FileStore) load() error {
	var data map[string]any
	if err := fileutil.LoadJSON(s.filePath, &data); err != nil {
		return err
	}
	if data == nil {
		data = make(map[string]any)
	}
	s.data = data

	s.log.Info("loaded state",
		zap.String("file", s.filePath),
		zap.Int("keys", len(s.data)))
	return nil
}

func (s *FileStore) startAutoSave() {
	s.saveTicker = time.NewTicker(s.saveInterval)

	go func() {
		for {
			select {
			case <-s.saveTicker.C:
				if err := s.Save(); err != nil {
					s.log.Error("auto-save failed", zap.Error(err))
				}
			case <-s.stopSave:
				return
			}
		}
	}()
}
