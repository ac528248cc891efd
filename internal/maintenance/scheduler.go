// Package maintenance runs periodic structural verification against a
// storage core on a cron schedule, independent of any caller driving reads
// or writes.
package maintenance

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dbcore/pagestore/internal/btree"
)

// Scheduler runs btree.BTree.VerifyAll on a cron schedule and records the
// outcome of the most recent run. It holds no lock of its own beyond what
// guards its bookkeeping fields; concurrent readers/writers against the
// tree are unaffected, since Verify only ever reads.
type Scheduler struct {
	tree *btree.BTree
	cron *cron.Cron

	mu        sync.RWMutex
	running   bool
	lastStart time.Time
	lastErr   error

	onResult func(err error)
}

// NewScheduler builds a scheduler that verifies tree on the given cron
// expression (standard five-field form, as parsed by robfig/cron's default
// parser). onResult, if non-nil, is called after every run with the
// outcome (nil on success).
func NewScheduler(tree *btree.BTree, cronExpr string, onResult func(err error)) (*Scheduler, error) {
	loc, err := time.LoadLocation("UTC")
	if err != nil {
		return nil, fmt.Errorf("maintenance: load UTC location: %w", err)
	}

	s := &Scheduler{
		tree:     tree,
		cron:     cron.New(cron.WithLocation(loc)),
		onResult: onResult,
	}

	if _, err := s.cron.AddFunc(cronExpr, s.runOnce); err != nil {
		return nil, fmt.Errorf("maintenance: invalid cron expression %q: %w", cronExpr, err)
	}
	return s, nil
}

// Start begins the cron loop. It returns immediately; verification runs in
// the cron library's own goroutine on each scheduled tick.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("maintenance: verification scheduler started")
}

// Stop halts the scheduler, waiting for any in-flight run to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("maintenance: verification scheduler stopped")
}

// RunOnce runs VerifyAll immediately, outside the cron schedule, and
// records the outcome the same way a scheduled tick would.
func (s *Scheduler) RunOnce() error {
	s.runOnce()
	_, err := s.LastResult()
	return err
}

// LastResult reports when the most recent run started and what it
// returned. Before any run, when is the zero time and err is nil.
func (s *Scheduler) LastResult() (when time.Time, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastStart, s.lastErr
}

func (s *Scheduler) runOnce() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Println("maintenance: previous verification still running, skipping tick")
		return
	}
	s.running = true
	s.lastStart = time.Now()
	s.mu.Unlock()

	err := s.tree.VerifyAll()

	s.mu.Lock()
	s.running = false
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		log.Printf("maintenance: verification failed: %v", err)
	} else {
		log.Println("maintenance: verification passed")
	}
	if s.onResult != nil {
		s.onResult(err)
	}
}
