/*
scheduler.go - Interval pipeline scheduler

PURPOSE:
  Re-runs the reporting pipeline on a fixed interval so long-lived
  deployments keep the dashboards fresh without cron. Each tick is a
  full journaled run.

DESIGN:
  - Runs a background goroutine with configurable interval
  - First run fires immediately on Start
  - A failed run is logged and journaled; the schedule keeps going

USAGE:
  scheduler := report.NewScheduler(pipeline, 24*time.Hour)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - report.go: Pipeline.Run, the unit of work per tick
  - cmd/report: the -every flag that enables this mode
*/
package report

import (
	"context"
	"log"
	"sync"
	"time"
)

// Scheduler re-runs a pipeline on a fixed interval.
type Scheduler struct {
	Pipeline *Pipeline
	Interval time.Duration

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewScheduler creates a scheduler around a wired pipeline.
func NewScheduler(p *Pipeline, interval time.Duration) *Scheduler {
	return &Scheduler{
		Pipeline: p,
		Interval: interval,
		stop:     make(chan bool),
	}
}

// Start begins the schedule with an immediate first run.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Interval <= 0 {
		log.Println("[Scheduler] No interval configured, not starting")
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.wg.Add(1)

	go s.run()

	log.Printf("[Scheduler] Started with refresh interval: %v", s.Interval)
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow()

	for {
		select {
		case <-s.ticker.C:
			s.RunNow()
		case <-s.stop:
			return
		}
	}
}

// RunNow triggers one pipeline run outside the schedule.
func (s *Scheduler) RunNow() {
	summary, err := s.Pipeline.Run(context.Background())
	if err != nil {
		log.Printf("[Scheduler] Run failed: %v", err)
		return
	}
	if summary.ExportsFailed > 0 {
		log.Printf("[Scheduler] Run %s finished with %d failed exports", summary.RunID, summary.ExportsFailed)
	}
}

// NextRunTime returns when the next scheduled run will occur.
func (s *Scheduler) NextRunTime() time.Time {
	return time.Now().Add(s.Interval)
}
