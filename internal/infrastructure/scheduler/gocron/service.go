package timescheduler

import (
	"fmt"
	"time"

	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
)

type service struct {
	scheduler *gocron.Scheduler
}

func NewScheduler() ports.SchedulerService {
	svc := gocron.NewScheduler(time.UTC)
	return &service{svc}
}

func (s *service) Start() {
	s.scheduler.StartAsync()
}

func (s *service) Stop() {
	s.scheduler.Stop()
	s.scheduler.Clear()
}

// ScheduleTask runs the task every interval, starting one interval from now.
// A run is skipped if the previous one is still in progress.
func (s *service) ScheduleTask(interval time.Duration, task func()) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be greater than zero")
	}
	_, err := s.scheduler.Every(interval).WaitForSchedule().SingletonMode().Do(task)
	return err
}

func (s *service) ScheduleTaskOnce(at time.Time, task func()) error {
	delay := time.Until(at)
	if delay <= 0 {
		log.Debugf("scheduled time %s already passed, running task now", at.Format(time.RFC3339))
		go task()
		return nil
	}

	_, err := s.scheduler.Every(delay).WaitForSchedule().LimitRunsTo(1).Do(task)
	return err
}
