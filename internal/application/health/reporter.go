package health

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/fftdetect/pkg/domain"
	"github.com/aescanero/fftdetect/pkg/ports"
)

// Reporter assembles health reports from host facts
type Reporter struct {
	probe ports.HostProbe
	now   func() time.Time
}

// NewReporter creates a reporter backed by probe
func NewReporter(probe ports.HostProbe) *Reporter {
	return &Reporter{
		probe: probe,
		now:   time.Now,
	}
}

// Report builds a health report for the requesting client
func (r *Reporter) Report(ctx context.Context, clientIP string) (*domain.HealthReport, error) {
	bootTime, err := r.probe.BootTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	memory, err := r.probe.Memory(ctx)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	network, err := r.probe.NetworkInfo()
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	return &domain.HealthReport{
		Status:    domain.HealthStatusHealthy,
		Timestamp: domain.FormatTimestamp(r.now()),
		Uptime:    bootTime,
		Memory:    memory,
		ClientIP:  clientIP,
		ServerIP:  network,
	}, nil
}
