// Package cli реализует инструмент командной строки Flowline.
//
// # Обзор
//
// CLI работает с движком в одном процессе: команда run собирает
// граф, выполняет его и печатает поток логов с итоговой таблицей
// результатов. Общее состояние между вызовами — только реестр
// пользовательских узлов, живущий в store (файл, память или Postgres,
// см. FLOWLINE_STORE).
//
// # Ключевые компоненты
//
// ## App
//
// Сборка сервисов по переменным окружения: store, реестры узлов,
// sandbox-исполнитель, движок. Каждая команда создаёт App заново.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: flowline node list --json | jq .
//
// ## Commands
//
//   - run FLOW.json        — выполнить флоу (--input, --on-error,
//     --mirror, --quiet)
//   - validate FLOW.json   — проверить граф без выполнения
//   - node ...             — list, show, register, unregister,
//     export, import, clear
//   - serve                — /healthz + /metrics, планировщик (--schedules)
//   - tail                 — живой просмотр зеркалируемого потока логов
//
// Каждая группа создаётся через фабричную функцию (NewRunCmd и т.д.),
// принимающую loggerFn и outputFn — замыкания для ленивого создания
// логгера и Output после парсинга PersistentFlags.
package cli
