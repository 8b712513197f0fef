package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"vancedhelper/pkg/logger"
)

const sweepInterval = 12 * time.Hour

// Sweeper periodically deletes entries past the retention window.
type Sweeper struct {
	log   *logger.Logger
	store *Store

	ctx    context.Context
	cancel context.CancelFunc
	ticker *time.Ticker
	wg     sync.WaitGroup
}

// NewSweeper creates a sweeper for the store.
func NewSweeper(store *Store) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())

	return &Sweeper{
		log:    store.log,
		store:  store,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins periodic sweeping. The first sweep runs immediately.
func (s *Sweeper) Start() {
	s.ticker = time.NewTicker(sweepInterval)

	s.wg.Add(1)
	go s.run()
}

// Stop halts sweeping and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.cancel()
	s.wg.Wait()
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	s.sweep()

	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweep() {
	removed, err := s.store.Sweep(s.ctx)
	if err != nil {
		s.log.Error("history sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.log.Info("swept expired history entries", zap.Int64("removed", removed))
	}
}
