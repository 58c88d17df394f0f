package scheduler_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/arkade-os/bridged/internal/core/ports"
	timescheduler "github.com/arkade-os/bridged/internal/infrastructure/scheduler/gocron"
	"github.com/stretchr/testify/require"
)

type service struct {
	name      string
	scheduler ports.SchedulerService
}

func TestScheduleTaskOnce(t *testing.T) {
	t.Parallel()

	for _, svc := range servicesToTest(t) {
		t.Run(svc.name, func(t *testing.T) {
			var called atomic.Bool
			err := svc.scheduler.ScheduleTaskOnce(time.Now().Add(time.Second), func() {
				called.Store(true)
			})
			require.NoError(t, err)

			require.False(t, called.Load())
			require.Eventually(t, called.Load, 3*time.Second, 50*time.Millisecond)
		})
	}
}

func TestScheduleTaskOnceInThePast(t *testing.T) {
	t.Parallel()

	for _, svc := range servicesToTest(t) {
		t.Run(svc.name, func(t *testing.T) {
			var called atomic.Bool
			err := svc.scheduler.ScheduleTaskOnce(time.Now().Add(-time.Second), func() {
				called.Store(true)
			})
			require.NoError(t, err)
			require.Eventually(t, called.Load, time.Second, 10*time.Millisecond)
		})
	}
}

func TestScheduleTask(t *testing.T) {
	t.Parallel()

	for _, svc := range servicesToTest(t) {
		t.Run(svc.name, func(t *testing.T) {
			var runs atomic.Int32
			err := svc.scheduler.ScheduleTask(500*time.Millisecond, func() {
				runs.Add(1)
			})
			require.NoError(t, err)

			require.Eventually(t, func() bool {
				return runs.Load() >= 2
			}, 3*time.Second, 50*time.Millisecond)

			err = svc.scheduler.ScheduleTask(0, func() {})
			require.Error(t, err)
		})
	}
}

func servicesToTest(t *testing.T) []service {
	svcs := []service{
		{name: "gocron", scheduler: timescheduler.NewScheduler()},
	}

	for _, svc := range svcs {
		svc.scheduler.Start()
		t.Cleanup(func() { svc.scheduler.Stop() })
	}

	return svcs
}
