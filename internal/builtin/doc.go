// Package builtin содержит встроенные handler'ы узлов.
//
// # Обзор
//
// Каждый тип узла реализует интерфейс Handler:
//
//	type Handler interface {
//	    Execute(ctx context.Context, node *domain.Node, inputs map[string]any, ec *domain.ExecContext) (map[string]any, error)
//	}
//
// Реализации:
//   - InputHandler / OutputHandler / StaticTextHandler — границы графа
//     и константы
//   - CombineTextHandler — склейка двух текстов
//   - JSONParseHandler — парсинг JSON-строки
//   - APIRequestHandler — HTTP-запрос через капабилити ec.Fetch
//   - DelayHandler — задержка с поддержкой отмены
//   - IfElseHandler — условная маршрутизация: ограниченное
//     HCL-выражение над переменной input, производится ровно один
//     из выходов true/false
//
// # Registry
//
// Реестр handler'ов по типу узла. NewRegistry() создаёт реестр
// с предустановленными типами. Пользовательские (sandbox) типы
// обслуживаются отдельным реестром в пакете sandbox.
//
// # Сетевой доступ
//
// Узлы не выходят в сеть сами: единственный путь — domain.FetchFunc,
// построенный через HTTPFetch и явно переданный вызывающей стороной
// в ExecContext. nil-капабилити означает запрет сети для всего run'а.
package builtin
