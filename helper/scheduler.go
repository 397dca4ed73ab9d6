package helper

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type Repairer interface {
	Run(ctx context.Context) (int, error)
}

type EventCloser interface {
	CloseEventsBefore(ctx context.Context, day time.Time) (int64, error)
}

// StartOrphanRepair runs repair at start and then every interval. A slow run is rescheduled
// rather than overlapped.
func StartOrphanRepair(repair Repairer, every time.Duration, logger *log.Entry) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = s.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), every)
			defer cancel()
			n, err := repair.Run(ctx)
			if err != nil {
				logger.WithError(err).Error("orphan repair")
				return
			}
			if n > 0 {
				logger.WithField("cancelled", n).Info("orphan orders cancelled")
			}
		}),
		gocron.WithName("orphan-repair"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, err
	}
	s.Start()
	logger.WithField("every", every).Info("orphan repair scheduler started")
	return s, nil
}

// StartEventCloser deactivates past events on the cron spec, evaluated in loc.
func StartEventCloser(closer EventCloser, spec string, loc *time.Location, logger *log.Entry) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	_, err := c.AddFunc(spec, func() {
		CloseFinishedEvents(context.Background(), closer, time.Now(), loc, logger)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	logger.WithField("spec", spec).Info("event closer started")
	return c, nil
}

// CloseFinishedEvents closes every event dated before now's calendar day in loc.
func CloseFinishedEvents(ctx context.Context, closer EventCloser, now time.Time, loc *time.Location, logger *log.Entry) int64 {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	n, err := closer.CloseEventsBefore(ctx, today)
	if err != nil {
		logger.WithError(err).Error("close past events")
		return 0
	}
	if n > 0 {
		logger.WithField("closed", n).Info("past events closed")
	}
	return n
}
