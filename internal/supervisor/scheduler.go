// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package supervisor drives migration jobs towards their terminal
// states, polling the store on a fixed period and cooperating with
// other servers through job locks.
package supervisor

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Doer describes an activity that can be repeated on a schedule.
type Doer interface {
	Do() error
	Shutdown()
}

// Scheduler repeatedly invokes a Doer on a fixed period until closed.
type Scheduler struct {
	doer   Doer
	period time.Duration
	logger log.FieldLogger

	stop chan struct{}
	done chan struct{}
}

// NewScheduler begins scheduling the given doer. A non-positive period
// creates an idle scheduler that never ticks.
func NewScheduler(doer Doer, period time.Duration, logger log.FieldLogger) *Scheduler {
	scheduler := &Scheduler{
		doer:   doer,
		period: period,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	go scheduler.run()

	return scheduler
}

func (s *Scheduler) run() {
	defer close(s.done)

	if s.period <= 0 {
		s.logger.Debug("Scheduler is idle")
		<-s.stop
		return
	}

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := s.doer.Do()
			if err != nil {
				s.logger.WithError(err).Error("Scheduled doer failed")
			}
		case <-s.stop:
			return
		}
	}
}

// Close stops the scheduler and shuts down its doer, blocking until
// any in-flight work finishes.
func (s *Scheduler) Close() error {
	close(s.stop)
	<-s.done

	s.doer.Shutdown()

	return nil
}
