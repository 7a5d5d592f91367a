// Package domain содержит канонические структуры данных Flowline.
//
// Включает:
//   - graph.go   — Node, Port, Connection, GraphSpec, политика ошибок
//   - custom.go  — CustomNodeDefinition (пользовательские узлы)
//   - result.go  — ExecutionResult и виды ошибок
//   - log.go     — LogEntry, поток логов run'а
//   - context.go — ExecContext, капабилити-набор узла
//
// Пакет не содержит логики и не зависит от других пакетов Flowline.
// Валидацией графа и порядком выполнения занимается engine,
// каталогом пользовательских узлов — sandbox.
package domain
