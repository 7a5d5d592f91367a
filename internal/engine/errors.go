package engine

import "errors"

// Ошибки валидации графа.
var (
	// ErrEmptyNodes — граф не содержит узлов.
	ErrEmptyNodes = errors.New("graph has no nodes")

	// ErrEmptyNodeID — узел не имеет ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrDanglingConnection — соединение ссылается на несуществующий
	// узел или порт, либо направление порта не совпадает.
	ErrDanglingConnection = errors.New("dangling connection")

	// ErrCycle — обнаружен цикл в соединениях.
	ErrCycle = errors.New("cycle detected")
)

// Ошибки выполнения.
var (
	// ErrUnknownNodeType — тип узла не известен ни как встроенный,
	// ни как зарегистрированный пользовательский.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrUnresolvedInput — required-порт без соединения и без
	// initial-значения.
	ErrUnresolvedInput = errors.New("unresolved required input")
)

// GraphError — ошибка уровня графа с контекстом.
//
// Возвращается до начала выполнения: невалидный граф
// не выполняется даже частично.
type GraphError struct {
	NodeID       string // ID узла, если применимо
	ConnectionID string // ID соединения, если применимо
	Message      string // описание ошибки
	Err          error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *GraphError) Error() string {
	switch {
	case e.ConnectionID != "":
		return "connection " + e.ConnectionID + ": " + e.Message
	case e.NodeID != "":
		return "node " + e.NodeID + ": " + e.Message
	default:
		return e.Message
	}
}

// Unwrap возвращает базовую ошибку.
func (e *GraphError) Unwrap() error {
	return e.Err
}
