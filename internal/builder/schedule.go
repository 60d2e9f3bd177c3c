package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler rebuilds periodically.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// Schedule starts a job that calls Build every interval. Overlapping runs
// are skipped.
func (b *Builder) Schedule(interval time.Duration) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(b.scheduledBuild),
		gocron.WithName(b.name+"-sitemap"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create periodic build job: %w", err)
	}

	s.Start()
	b.log.Info().Dur("interval", interval).Msg("Scheduled periodic builds")
	return &Scheduler{scheduler: s}, nil
}

func (b *Builder) scheduledBuild() {
	b.log.Info().Msg("Executing scheduled build")
	_, _ = b.Build(context.Background())
}

// Stop shuts the scheduler down, waiting for a running build.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
