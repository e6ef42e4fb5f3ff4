package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/sheetcharts-be/internal/models"
	"github.com/isdelr/sheetcharts-be/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// StatsPublisher receives each usage snapshot, e.g. the admin websocket hub.
type StatsPublisher interface {
	PublishStats(stats models.Stats)
}

// Reporter periodically computes usage statistics, logs them and pushes
// them to the admin feed.
type Reporter struct {
	stats     services.StatsServiceProvider
	publisher StatsPublisher
	cron      *cron.Cron
	timeout   time.Duration
}

// NewReporter schedules a report on spec, a standard cron expression or a
// descriptor such as "@every 5m". publisher may be nil.
func NewReporter(spec string, stats services.StatsServiceProvider, publisher StatsPublisher) (*Reporter, error) {
	r := &Reporter{
		stats:     stats,
		publisher: publisher,
		cron:      cron.New(),
		timeout:   30 * time.Second,
	}
	if _, err := r.cron.AddFunc(spec, r.Report); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", spec, err)
	}
	return r, nil
}

// Start runs the schedule in the background.
func (r *Reporter) Start() {
	log.Info().Msg("Starting background usage reporter...")
	r.cron.Start()
}

// Stop halts the schedule and waits for a running report to finish.
func (r *Reporter) Stop() {
	<-r.cron.Stop().Done()
	log.Info().Msg("Stopped background usage reporter.")
}

// Report takes one snapshot.
func (r *Reporter) Report() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	stats, err := r.stats.GetStats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Reporter: Failed to compute usage stats")
		return
	}

	top := ""
	if len(stats.MostUsedChartTypes) > 0 {
		top = stats.MostUsedChartTypes[0].Type
	}
	log.Info().
		Int("users_logged_in", stats.TotalUsersLoggedIn).
		Int("files_uploaded", stats.TotalFilesUploaded).
		Str("top_chart_type", top).
		Msg("Usage snapshot")

	if r.publisher != nil {
		r.publisher.PublishStats(stats)
	}
}
