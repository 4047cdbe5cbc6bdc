package chrono

import (
	"context"
	"time"
)

// API is what anything that waits or reads the clock should depend on,
// so that tests do not have to actually sleep.
type API interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, in which case ctx.Err() is returned.
	Sleep(ctx context.Context, d time.Duration) error
}

type StandardImpl struct{}

func (StandardImpl) Now() time.Time {
	return time.Now()
}

func (StandardImpl) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FakeImpl records every requested sleep and returns immediately.
type FakeImpl struct {
	Time   time.Time
	Sleeps []time.Duration
}

func (f *FakeImpl) Now() time.Time {
	return f.Time
}

func (f *FakeImpl) Sleep(ctx context.Context, d time.Duration) error {
	f.Sleeps = append(f.Sleeps, d)
	f.Time = f.Time.Add(d)
	return ctx.Err()
}
