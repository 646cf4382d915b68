package collector

import (
	"context"
	"time"

	"trendscout/internal/models"
)

// Collector pulls raw signals from one external source during a cycle.
// Fetch is a batch call: it returns everything the source has to say for the
// given cycle date and must respect ctx cancellation. A collector failure
// never carries over to other collectors.
type Collector interface {
	Name() string
	Fetch(ctx context.Context, cycleDate time.Time) ([]models.Signal, error)
	Health() Health
}

type Health struct {
	SourceType string
	Endpoint   string
	Enabled    bool
	Status     string
	LastError  string
	LastPollAt time.Time
}

const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthFailed   = "failed"
	HealthUnknown  = "unknown"
)
