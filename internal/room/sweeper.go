package room

import (
	"log"

	"tictactoe-arena/internal/config"

	"github.com/go-co-op/gocron/v2"
)

// StartSweeper schedules the periodic expiration scan. A failed
// iteration is logged and the schedule continues.
func StartSweeper(mgr *Manager, cfg config.Config) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(cfg.SweepInterval),
		gocron.NewTask(func() {
			defer func() {
				if rec := recover(); rec != nil {
					log.Printf("expiration sweep panic: %v", rec)
				}
			}()
			mgr.SweepExpired()
		}),
	)
	if err != nil {
		return nil, err
	}
	sched.Start()
	log.Printf("expiration sweep running every %s (ceiling %s)", cfg.SweepInterval, cfg.ExpireAfter)
	return sched, nil
}
