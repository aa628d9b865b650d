package usecase

import (
	"context"
	"testing"
	"time"
)

type manualScheduler struct {
	job     func(time.Time)
	stopped bool
}

func (m *manualScheduler) Start(_ context.Context, job func(time.Time)) error {
	m.job = job
	return nil
}

func (m *manualScheduler) Stop(context.Context) error {
	m.stopped = true
	return nil
}

func TestStatusMonitorSamplesOnTick(t *testing.T) {
	t.Parallel()

	h := newHarness(t, `<html><body><p id="a">`+scamText+`</p></body></html>`, "https://example.org/")
	driver := &manualScheduler{}
	mon := NewStatusMonitor(driver, h.coord, nil)

	ctx := context.Background()
	if err := mon.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, ok := mon.Last(); ok {
		t.Fatalf("no sample expected before the first tick")
	}

	if err := h.coord.Start(ctx); err != nil {
		t.Fatalf("start coordinator: %v", err)
	}
	h.coord.Wait()
	driver.job(time.Now())

	st, ok := mon.Last()
	if !ok || st.ActiveAlerts != 1 || st.ScannedUnits != 1 || !st.ProtectionEnabled {
		t.Fatalf("unexpected sample %+v", st)
	}

	if err := mon.Stop(ctx); err != nil || !driver.stopped {
		t.Fatalf("stop did not reach the driver")
	}
}

func TestStatusMonitorWithoutDriver(t *testing.T) {
	t.Parallel()

	mon := NewStatusMonitor(nil, nil, nil)
	if err := mon.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := mon.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
