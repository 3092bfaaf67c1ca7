package main

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/Financial-Times/go-logger"
	"k8s.io/apimachinery/pkg/util/wait"
)

type walker interface {
	walk(ctx context.Context) ([]service, error)
}

type cycleStatus struct {
	sync.RWMutex
	lastErr     error
	lastRun     time.Time
	lastSuccess time.Time
}

type scheduler struct {
	walker   walker
	feeder   *prometheusFeeder
	interval time.Duration
	status   cycleStatus
	now      func() time.Time
}

func newScheduler(walker walker, feeder *prometheusFeeder, interval time.Duration) *scheduler {
	return &scheduler{
		walker:   walker,
		feeder:   feeder,
		interval: interval,
		now:      time.Now,
	}
}

// run executes a cycle straight away and then one per interval, measured from the start of each cycle,
// until ctx is done. Cycles never overlap: an overrunning cycle is followed immediately by the next one.
func (s *scheduler) run(ctx context.Context) {
	log.Infof("Started polling for environment states every %v", s.interval)
	wait.NonSlidingUntilWithContext(ctx, s.runCycle, s.interval)
	log.Info("Stopped polling for environment states")
}

// runCycle walks the upstream API, aggregates and publishes. Failures are logged and never propagated,
// so the gauges keep their last values until a later cycle succeeds.
func (s *scheduler) runCycle(ctx context.Context) {
	startedAt := s.now()
	log.Debug("Requesting environment states")

	err := s.cycle(ctx)
	if err != nil && ctx.Err() != nil {
		return
	}
	s.feeder.recordCycle(err, startedAt)
	s.recordStatus(err, startedAt)

	if err != nil {
		var se *stageError
		if errors.As(err, &se) {
			log.WithError(se.Err).Errorf("Failed to get environment states: %s stage failed for %s", se.Stage, se.URL)
			return
		}
		log.WithError(err).Error("Failed to get environment states")
	}
}

func (s *scheduler) cycle(ctx context.Context) error {
	services, err := s.walker.walk(ctx)
	if err != nil {
		return err
	}

	envState := aggregate(services)
	log.Debugf("Got environment states %v", envState)
	s.feeder.publish(envState)
	return nil
}

func (s *scheduler) recordStatus(err error, at time.Time) {
	s.status.Lock()
	defer s.status.Unlock()

	s.status.lastErr = err
	s.status.lastRun = at
	if err == nil {
		s.status.lastSuccess = at
	}
}

// lastCycle reports whether any cycle has run yet and the error of the latest one.
func (s *scheduler) lastCycle() (ran bool, lastSuccess time.Time, err error) {
	s.status.RLock()
	defer s.status.RUnlock()

	return !s.status.lastRun.IsZero(), s.status.lastSuccess, s.status.lastErr
}
