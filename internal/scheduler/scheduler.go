package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Schedule — расписание периодического запуска флоу.
type Schedule struct {
	// Name — человекочитаемое имя расписания.
	Name string `json:"name"`

	// CronExpr — cron-выражение (5 полей). Взаимоисключимо с IntervalSec.
	CronExpr string `json:"cron,omitempty"`

	// IntervalSec — интервал между запусками в секундах.
	IntervalSec int `json:"interval_sec,omitempty"`

	// Timezone — IANA-таймзона для cron (default: UTC).
	Timezone string `json:"timezone,omitempty"`

	// SpecPath — путь к JSON-файлу флоу.
	SpecPath string `json:"spec"`

	// Inputs — начальные значения входов (node id → port id → value).
	Inputs map[string]map[string]any `json:"inputs,omitempty"`

	// Enabled — выключенные расписания не запускаются, но остаются в списке.
	Enabled bool `json:"enabled"`

	// NextDueAt — следующее время запуска (UTC). Вычисляется при загрузке.
	NextDueAt time.Time `json:"-"`

	// LastRunAt — время последнего запуска.
	LastRunAt time.Time `json:"-"`

	// Runs — количество запусков с момента загрузки.
	Runs int `json:"-"`
}

// IsCron — задано ли расписание cron-выражением.
func (s *Schedule) IsCron() bool {
	return s.CronExpr != ""
}

// IsInterval — задано ли расписание интервалом.
func (s *Schedule) IsInterval() bool {
	return s.IntervalSec > 0
}

// LoadSchedules читает расписания из JSON-файла, валидирует их
// и вычисляет первое время запуска для каждого.
func LoadSchedules(path string) ([]*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedules file: %w", err)
	}

	var schedules []*Schedule
	if err := json.Unmarshal(data, &schedules); err != nil {
		return nil, fmt.Errorf("parse schedules file: %w", err)
	}

	now := time.Now()
	for _, sched := range schedules {
		if sched.Name == "" {
			return nil, fmt.Errorf("schedule without name in %s", path)
		}
		if sched.SpecPath == "" {
			return nil, fmt.Errorf("schedule %q: spec path is empty", sched.Name)
		}
		if sched.IsCron() {
			if err := ValidateCronExpr(sched.CronExpr); err != nil {
				return nil, fmt.Errorf("schedule %q: %w", sched.Name, err)
			}
		}
		if sched.Timezone == "" {
			sched.Timezone = "UTC"
		}

		next, err := CalculateNextDue(sched, now)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", sched.Name, err)
		}
		sched.NextDueAt = next
	}

	return schedules, nil
}

// RunFunc запускает флоу по пути к файлу с начальными входами.
type RunFunc func(ctx context.Context, specPath string, inputs map[string]map[string]any) error

// Scheduler запускает флоу по расписаниям.
type Scheduler struct {
	schedules []*Schedule
	run       RunFunc
	logger    *slog.Logger
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedules []*Schedule
	Run       RunFunc
	Logger    *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		schedules: cfg.Schedules,
		run:       cfg.Run,
		logger:    logger,
	}
}

// Schedules возвращает загруженные расписания.
func (s *Scheduler) Schedules() []*Schedule {
	return s.schedules
}

// Tick выполняет один тик планировщика.
//
// Находит due-расписания (enabled, next_due_at <= now), запускает
// их флоу и сдвигает next_due_at. Ошибка одного расписания не
// блокирует обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	var due, executed int
	for _, sched := range s.schedules {
		if !sched.Enabled || sched.NextDueAt.After(now) {
			continue
		}
		due++

		if err := s.processSchedule(ctx, sched, now); err != nil {
			s.logger.Error("failed to process schedule",
				"schedule", sched.Name,
				"error", err,
			)
			continue
		}
		executed++
	}

	if due > 0 {
		s.logger.Info("scheduler tick completed",
			"due", due,
			"executed", executed,
		)
	}

	return ctx.Err()
}

// processSchedule запускает один due schedule и сдвигает next_due_at.
func (s *Scheduler) processSchedule(ctx context.Context, sched *Schedule, now time.Time) error {
	// Сдвигаем next_due_at до запуска: упавший флоу не должен
	// ретраиться на каждом тике.
	next, err := CalculateNextDue(sched, now)
	if err != nil {
		s.logger.Error("failed to calculate next due, disabling schedule",
			"schedule", sched.Name,
			"error", err,
		)
		sched.Enabled = false
		return err
	}
	sched.NextDueAt = next
	sched.LastRunAt = now
	sched.Runs++

	s.logger.Info("starting scheduled flow",
		"schedule", sched.Name,
		"spec", sched.SpecPath,
		"next_due_at", next,
	)

	if err := s.run(ctx, sched.SpecPath, sched.Inputs); err != nil {
		return fmt.Errorf("run flow %s: %w", sched.SpecPath, err)
	}

	return nil
}

// RunLoop крутит тики с заданным периодом до отмены контекста.
func (s *Scheduler) RunLoop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil && ctx.Err() != nil {
				return err
			}
		}
	}
}
