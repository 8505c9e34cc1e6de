package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/location"
)

const LocationCacheRefreshJob = "location_cache_refresh"

// LocationJobs keeps locum booking location caches in line with their blocks.
// Attendance fact locations are never touched here; those need an operator.
type LocationJobs struct {
	locationSvc location.Service
}

func NewLocationJobs(locationSvc location.Service) *LocationJobs {
	return &LocationJobs{locationSvc: locationSvc}
}

func (j *LocationJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) error {
	return scheduler.AddJob(Job{
		Name:     LocationCacheRefreshJob,
		Interval: interval,
		Timeout:  5 * time.Minute,
		Fn:       j.RefreshBookingCaches,
	})
}

func (j *LocationJobs) RefreshBookingCaches(ctx context.Context) error {
	slog.Info("Cron: Starting booking location cache refresh")
	return j.locationSvc.RefreshAllBookingCaches(ctx)
}
