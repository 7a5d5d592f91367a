// Package scheduler реализует периодический запуск флоу.
//
// Расписания описываются JSON-файлом (cron-выражение или интервал,
// таймзона, путь к флоу, начальные входы). Scheduler на каждом тике
// находит due-расписания и запускает их флоу через RunFunc.
//
// Структура:
//   - scheduler.go — Schedule, загрузка файла, Tick, RunLoop
//   - cron.go      — парсинг cron-выражений и вычисление next_due_at
//
// Использование:
//
//	schedules, err := scheduler.LoadSchedules("schedules.json")
//	sched := scheduler.New(scheduler.Config{
//	    Schedules: schedules,
//	    Run:       runFlow,
//	    Logger:    logger,
//	})
//	err = sched.RunLoop(ctx, time.Second)
package scheduler
