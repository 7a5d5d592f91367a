package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeSchedules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedules.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSchedules(t *testing.T) {
	path := writeSchedules(t, `[
		{
			"name": "nightly-report",
			"cron": "0 3 * * *",
			"timezone": "Europe/Moscow",
			"spec": "flows/report.json",
			"inputs": {"source": {"url": "https://example.com/data"}},
			"enabled": true
		},
		{
			"name": "heartbeat",
			"interval_sec": 60,
			"spec": "flows/ping.json",
			"enabled": false
		}
	]`)

	schedules, err := LoadSchedules(path)
	if err != nil {
		t.Fatalf("LoadSchedules() error = %v", err)
	}
	if len(schedules) != 2 {
		t.Fatalf("LoadSchedules() returned %d schedules, want 2", len(schedules))
	}

	report := schedules[0]
	if !report.IsCron() || report.IsInterval() {
		t.Errorf("nightly-report: IsCron() = %v, IsInterval() = %v", report.IsCron(), report.IsInterval())
	}
	if report.NextDueAt.IsZero() {
		t.Error("nightly-report: NextDueAt was not computed on load")
	}
	if report.Inputs["source"]["url"] != "https://example.com/data" {
		t.Errorf("nightly-report: inputs not parsed: %+v", report.Inputs)
	}

	ping := schedules[1]
	if ping.IsCron() || !ping.IsInterval() {
		t.Errorf("heartbeat: IsCron() = %v, IsInterval() = %v", ping.IsCron(), ping.IsInterval())
	}
	if ping.Enabled {
		t.Error("heartbeat: Enabled = true, want false")
	}
	if ping.Timezone != "UTC" {
		t.Errorf("heartbeat: Timezone = %q, want default UTC", ping.Timezone)
	}
}

func TestLoadSchedules_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "not json at all"},
		{"missing name", `[{"cron": "* * * * *", "spec": "f.json", "enabled": true}]`},
		{"missing spec", `[{"name": "x", "cron": "* * * * *", "enabled": true}]`},
		{"bad cron", `[{"name": "x", "cron": "bad", "spec": "f.json", "enabled": true}]`},
		{"no trigger", `[{"name": "x", "spec": "f.json", "enabled": true}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSchedules(t, tt.content)
			if _, err := LoadSchedules(path); err == nil {
				t.Error("LoadSchedules() expected error, got nil")
			}
		})
	}
}

func TestLoadSchedules_MissingFile(t *testing.T) {
	if _, err := LoadSchedules(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("LoadSchedules() expected error for missing file, got nil")
	}
}

func TestScheduler_TickRunsDueSchedules(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	schedules := []*Schedule{
		{Name: "due", IntervalSec: 300, Timezone: "UTC", SpecPath: "a.json", Enabled: true, NextDueAt: past},
		{Name: "not-yet", IntervalSec: 300, Timezone: "UTC", SpecPath: "b.json", Enabled: true, NextDueAt: future},
		{Name: "disabled", IntervalSec: 300, Timezone: "UTC", SpecPath: "c.json", Enabled: false, NextDueAt: past},
	}

	var ran []string
	s := New(Config{
		Schedules: schedules,
		Run: func(_ context.Context, specPath string, _ map[string]map[string]any) error {
			ran = append(ran, specPath)
			return nil
		},
		Logger: discardLogger(),
	})

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(ran) != 1 || ran[0] != "a.json" {
		t.Errorf("Tick() ran %v, want [a.json]", ran)
	}

	due := schedules[0]
	if !due.NextDueAt.After(time.Now()) {
		t.Errorf("due schedule NextDueAt = %v, want advanced into the future", due.NextDueAt)
	}
	if due.Runs != 1 {
		t.Errorf("due schedule Runs = %d, want 1", due.Runs)
	}
	if due.LastRunAt.IsZero() {
		t.Error("due schedule LastRunAt was not set")
	}
}

func TestScheduler_FailingScheduleDoesNotBlockOthers(t *testing.T) {
	past := time.Now().Add(-time.Minute)

	schedules := []*Schedule{
		{Name: "broken", IntervalSec: 300, Timezone: "UTC", SpecPath: "broken.json", Enabled: true, NextDueAt: past},
		{Name: "healthy", IntervalSec: 300, Timezone: "UTC", SpecPath: "healthy.json", Enabled: true, NextDueAt: past},
	}

	var ran []string
	s := New(Config{
		Schedules: schedules,
		Run: func(_ context.Context, specPath string, _ map[string]map[string]any) error {
			ran = append(ran, specPath)
			if specPath == "broken.json" {
				return errors.New("flow failed")
			}
			return nil
		},
		Logger: discardLogger(),
	})

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(ran) != 2 {
		t.Fatalf("Tick() ran %v, want both schedules", ran)
	}

	// Упавшее расписание остаётся enabled и сдвинуто вперёд:
	// ретрай происходит по расписанию, а не на следующем тике.
	broken := schedules[0]
	if !broken.Enabled {
		t.Error("broken schedule was disabled after a flow failure")
	}
	if !broken.NextDueAt.After(time.Now()) {
		t.Errorf("broken schedule NextDueAt = %v, want advanced", broken.NextDueAt)
	}
}

func TestScheduler_DisablesScheduleWithoutTrigger(t *testing.T) {
	past := time.Now().Add(-time.Minute)

	// NextDueAt в прошлом, но ни cron, ни interval не заданы:
	// CalculateNextDue вернёт ошибку и расписание выключится.
	schedules := []*Schedule{
		{Name: "degenerate", Timezone: "UTC", SpecPath: "x.json", Enabled: true, NextDueAt: past},
	}

	var runs int
	s := New(Config{
		Schedules: schedules,
		Run: func(context.Context, string, map[string]map[string]any) error {
			runs++
			return nil
		},
		Logger: discardLogger(),
	})

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if runs != 0 {
		t.Errorf("degenerate schedule ran %d times, want 0", runs)
	}
	if schedules[0].Enabled {
		t.Error("degenerate schedule is still enabled")
	}
}

func TestScheduler_PassesScheduleInputs(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	inputs := map[string]map[string]any{"fetch": {"url": "https://example.com"}}

	schedules := []*Schedule{
		{Name: "with-inputs", IntervalSec: 60, Timezone: "UTC", SpecPath: "f.json", Inputs: inputs, Enabled: true, NextDueAt: past},
	}

	var got map[string]map[string]any
	s := New(Config{
		Schedules: schedules,
		Run: func(_ context.Context, _ string, in map[string]map[string]any) error {
			got = in
			return nil
		},
		Logger: discardLogger(),
	})

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if got["fetch"]["url"] != "https://example.com" {
		t.Errorf("RunFunc received inputs %+v, want schedule inputs", got)
	}
}

func TestScheduler_RunLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := New(Config{
		Schedules: nil,
		Run: func(context.Context, string, map[string]map[string]any) error {
			return nil
		},
		Logger: discardLogger(),
	})

	done := make(chan error, 1)
	go func() {
		done <- s.RunLoop(ctx, 10*time.Millisecond)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunLoop() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunLoop() did not stop after context cancel")
	}
}
