package retention

import (
	"context"
	"testing"
	"time"

	"mercator-hq/verity/pkg/history/storage"
)

func TestScheduler_StartStop(t *testing.T) {
	p := NewPruner(storage.NewMemoryStorage(), &Config{RetentionDays: 1, PruneSchedule: "0 3 * * *"}, nil)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !p.scheduler.IsRunning() {
		t.Fatal("IsRunning() = false after Start")
	}
	if err := p.Start(context.Background()); err == nil {
		t.Error("second Start() error = nil, want error")
	}

	next := p.NextPruning()
	if next == nil {
		t.Fatal("NextPruning() = nil")
	}
	if next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("NextPruning() = %v, want 03:00", next)
	}

	p.Stop()
	p.Stop()
	if p.scheduler.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	if p.NextPruning() != nil {
		t.Error("NextPruning() != nil after Stop")
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	p := NewPruner(storage.NewMemoryStorage(), &Config{PruneSchedule: "@every 1h"}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	deadline := time.After(5 * time.Second)
	for p.scheduler.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("scheduler still running after context cancel")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestScheduler_Schedules(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
		running  bool
	}{
		{name: "empty", schedule: "", running: false},
		{name: "daily", schedule: "0 3 * * *", running: true},
		{name: "descriptor", schedule: "@daily", running: true},
		{name: "invalid", schedule: "every tuesday", wantErr: true},
		{name: "too many fields", schedule: "0 0 3 * * * *", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPruner(storage.NewMemoryStorage(), &Config{PruneSchedule: tt.schedule}, nil)
			err := p.Start(context.Background())
			defer p.Stop()

			if (err != nil) != tt.wantErr {
				t.Fatalf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
			if p.scheduler.IsRunning() != tt.running {
				t.Errorf("IsRunning() = %v, want %v", p.scheduler.IsRunning(), tt.running)
			}
		})
	}
}
