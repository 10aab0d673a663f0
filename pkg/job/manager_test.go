package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrymomot/campus/pkg/logger"
)

func TestManager_RunsScheduledTask(t *testing.T) {
	m := NewManager(WithLogger(logger.NewDiscard()))

	var runs atomic.Int32
	if err := m.Schedule("counter", "@every 10ms", func(context.Context) error {
		runs.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	m.Start()
	defer func() { _ = m.Stop(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if runs.Load() == 0 {
		t.Error("task never ran")
	}
}

func TestManager_RejectsInvalidSpec(t *testing.T) {
	m := NewManager(WithLogger(logger.NewDiscard()))
	err := m.Schedule("broken", "not a schedule", func(context.Context) error { return nil })
	if !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("err = %v, want ErrInvalidSchedule", err)
	}
}

func TestManager_RejectsScheduleAfterStart(t *testing.T) {
	m := NewManager(WithLogger(logger.NewDiscard()))
	m.Start()
	defer func() { _ = m.Stop(context.Background()) }()

	err := m.Schedule("late", "@hourly", func(context.Context) error { return nil })
	if !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("err = %v, want ErrAlreadyStarted", err)
	}
}

func TestManager_PanicDoesNotKillScheduler(t *testing.T) {
	m := NewManager(WithLogger(logger.NewDiscard()))

	var after atomic.Int32
	if err := m.Schedule("panicky", "@every 10ms", func(context.Context) error {
		if after.Add(1) == 1 {
			panic("boom")
		}
		return nil
	}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	m.Start()
	defer func() { _ = m.Stop(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for after.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if after.Load() < 2 {
		t.Error("scheduler stopped after panic")
	}
}

func TestManager_Healthcheck(t *testing.T) {
	m := NewManager(WithLogger(logger.NewDiscard()))
	check := m.Healthcheck()

	if err := check(context.Background()); err == nil {
		t.Error("healthcheck passed before Start")
	}
	m.Start()
	if err := check(context.Background()); err != nil {
		t.Errorf("healthcheck failed after Start: %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := check(context.Background()); err == nil {
		t.Error("healthcheck passed after Stop")
	}
}
