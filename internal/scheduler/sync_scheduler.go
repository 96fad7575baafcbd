// Package scheduler triggers periodic incremental syncs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs an incremental sync every day at 04:30.
const DefaultSchedule = "30 4 * * *"

// SyncSettings exposes the persisted scheduling preferences.
type SyncSettings interface {
	SyncEnabled(fallback bool) bool
	SyncSchedule(fallback string) string
}

// Authorizer reports whether the remote service can be called at all.
// Scheduled runs are pointless before the OAuth handshake completed.
type Authorizer interface {
	HasValidCredentials(ctx context.Context) bool
}

// SyncEnqueuer puts an incremental import task on the queue.
type SyncEnqueuer interface {
	EnqueueSync() error
}

// SyncScheduler manages the periodic incremental sync trigger.
type SyncScheduler struct {
	settings SyncSettings
	auth     Authorizer
	enqueuer SyncEnqueuer

	fallbackEnabled  bool
	fallbackSchedule string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewSyncScheduler creates a new scheduler instance.
func NewSyncScheduler(settings SyncSettings, auth Authorizer, enqueuer SyncEnqueuer) *SyncScheduler {
	return &SyncScheduler{
		settings:         settings,
		auth:             auth,
		enqueuer:         enqueuer,
		fallbackEnabled:  true,
		fallbackSchedule: DefaultSchedule,
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// SetFallbacks overrides the defaults used when no persisted preference
// exists. Called with the environment configuration at startup.
func (s *SyncScheduler) SetFallbacks(enabled bool, schedule string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallbackEnabled = enabled
	s.fallbackSchedule = schedule
}

// Start begins the scheduler if periodic sync is enabled.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.settings.SyncEnabled(s.fallbackEnabled) {
		log.Printf("Sync scheduler: disabled")
		return nil
	}

	schedule := s.settings.SyncSchedule(s.fallbackSchedule)

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.trigger()
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Sync scheduler: started with schedule '%s'. Next run: %v",
		schedule, s.cron.Entry(entryID).Next)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running trigger to
// finish.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Sync scheduler: stopped")
}

// Reschedule restarts the scheduler after the settings changed.
func (s *SyncScheduler) Reschedule() error {
	s.mu.Lock()
	wasRunning := s.isRunning
	s.mu.Unlock()

	if wasRunning {
		s.Stop()
	}
	return s.Start(context.Background())
}

// IsRunning returns whether the scheduler is active.
func (s *SyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next scheduled sync will fire.
func (s *SyncScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// trigger enqueues one incremental sync. The engine itself refuses to start
// while another run is active, so overlapping triggers collapse into one.
func (s *SyncScheduler) trigger() {
	s.mu.RLock()
	fallbackEnabled := s.fallbackEnabled
	s.mu.RUnlock()

	if !s.settings.SyncEnabled(fallbackEnabled) {
		log.Printf("Scheduled sync: skipped (disabled)")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if !s.auth.HasValidCredentials(ctx) {
		log.Printf("Scheduled sync: skipped (not authorized)")
		return
	}

	if err := s.enqueuer.EnqueueSync(); err != nil {
		log.Printf("Scheduled sync: failed to enqueue: %v", err)
		return
	}
	log.Printf("Scheduled sync: import task enqueued")
}
