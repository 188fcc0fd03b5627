package services

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Job is one scheduled unit of work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// Scheduler runs jobs on fixed intervals. A tick that arrives while the
// previous run of the same job is still going is dropped.
type Scheduler struct {
	jobs []Job
	wg   sync.WaitGroup
}

func NewScheduler(jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs}
}

// Start launches one goroutine per job. They stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		if job.Interval <= 0 || job.Run == nil {
			log.Printf("[Scheduler] Job %s disabled", job.Name)
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
}

// Wait blocks until all job goroutines have returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()
	var running atomic.Bool
	var inflight sync.WaitGroup
	defer inflight.Wait()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	log.Printf("[Scheduler] Job %s every %s", job.Name, job.Interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !running.CompareAndSwap(false, true) {
				log.Printf("[Scheduler] Job %s still running, tick dropped", job.Name)
				continue
			}
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				defer running.Store(false)
				defer func() {
					if r := recover(); r != nil {
						log.Printf("[Scheduler] Job %s panicked: %v", job.Name, r)
					}
				}()
				job.Run(ctx)
			}()
		}
	}
}
