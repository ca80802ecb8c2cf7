package janitor

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

type SessionSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type AutoCompleter interface {
	AutoCompleteDelivered(ctx context.Context, olderThanDays int) int
}

// Scheduler runs the background housekeeping: clearing orphaned upload session
// index entries and closing out deliveries the customer never acted on.
type Scheduler struct {
	cron              *cron.Cron
	sessions          SessionSweeper
	projects          AutoCompleter
	autoCompleteAfter int
}

func NewScheduler(sessions SessionSweeper, projects AutoCompleter, autoCompleteAfterDays int) *Scheduler {
	return &Scheduler{
		cron:              cron.New(),
		sessions:          sessions,
		projects:          projects,
		autoCompleteAfter: autoCompleteAfterDays,
	}
}

func (s *Scheduler) Start() error {
	// Sweep upload sessions hourly; Redis TTL already expired the data, the
	// sweep only clears the index.
	if _, err := s.cron.AddFunc("@hourly", s.sweepSessions); err != nil {
		return err
	}

	// Auto-complete stale deliveries nightly.
	if _, err := s.cron.AddFunc("0 3 * * *", s.autoComplete); err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("[janitor] scheduler started (session sweep hourly, auto-complete nightly, window %dd)",
		s.autoCompleteAfter)
	return nil
}

// Stop waits for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweepSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.sessions.Sweep(ctx)
	if err != nil {
		log.Printf("[janitor] session sweep: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[janitor] cleared %d orphaned upload sessions", n)
	}
}

func (s *Scheduler) autoComplete() {
	if s.autoCompleteAfter <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if n := s.projects.AutoCompleteDelivered(ctx, s.autoCompleteAfter); n > 0 {
		log.Printf("[janitor] auto-completed %d delivered projects", n)
	}
}
