package stats

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs ANALYZE on a cron schedule in the background, so a long
// lived table keeps its planner statistics fresh without an explicit
// analyze meta-operation after every write burst.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.SugaredLogger
}

// NewScheduler builds a scheduler that is not yet running.
func NewScheduler(log *zap.SugaredLogger) *Scheduler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{cron: cron.New(), log: log}
}

// Start registers run as the job for the given standard 5-field cron
// expression and begins the scheduler's own goroutine.
func (s *Scheduler) Start(spec string, run func()) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.log.Debugw("scheduled analyze starting")
		run()
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
