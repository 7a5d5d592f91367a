package domain

import "time"

// NodeStatus — статус выполнения узла.
type NodeStatus string

// Статусы узла.
const (
	NodeStatusSucceeded NodeStatus = "SUCCEEDED"
	NodeStatusFailed    NodeStatus = "FAILED"
)

// Виды ошибок выполнения узла (ExecutionResult.ErrorKind).
const (
	// ErrorKindNotFound — тип узла не известен ни как встроенный,
	// ни как зарегистрированный пользовательский.
	ErrorKindNotFound = "not_found"

	// ErrorKindTimeout — sandbox-тело превысило wall-clock бюджет.
	ErrorKindTimeout = "timeout"

	// ErrorKindSandbox — тело бросило исключение во время выполнения.
	ErrorKindSandbox = "sandbox_runtime"

	// ErrorKindUnresolvedInput — required-порт без соединения
	// и без initial-значения.
	ErrorKindUnresolvedInput = "unresolved_input"

	// ErrorKindExecution — прочая ошибка handler'а.
	ErrorKindExecution = "execution"
)

// ExecutionResult — итог выполнения одного узла.
//
// Результат записывается ровно один раз, собственным выполнением узла,
// и после этого read-only для всех потребителей ниже по графу.
type ExecutionResult struct {
	// NodeID — идентификатор узла.
	NodeID string `json:"node_id"`

	// Status — SUCCEEDED или FAILED.
	Status NodeStatus `json:"status"`

	// Outputs — произведённые значения: port ID → значение.
	// Заполняется только при успехе.
	Outputs map[string]any `json:"outputs,omitempty"`

	// ErrorKind — вид ошибки (см. ErrorKind* константы).
	ErrorKind string `json:"error_kind,omitempty"`

	// Error — текст ошибки при неудаче.
	Error string `json:"error,omitempty"`

	// Attempt — номер попытки, на которой узел завершился.
	Attempt int `json:"attempt,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration возвращает продолжительность выполнения.
func (r *ExecutionResult) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// MarkSucceeded переводит результат в SUCCEEDED с outputs.
func (r *ExecutionResult) MarkSucceeded(outputs map[string]any) {
	now := time.Now()
	r.Status = NodeStatusSucceeded
	r.FinishedAt = &now
	r.Outputs = outputs
}

// MarkFailed переводит результат в FAILED с видом и текстом ошибки.
func (r *ExecutionResult) MarkFailed(kind, msg string) {
	now := time.Now()
	r.Status = NodeStatusFailed
	r.FinishedAt = &now
	r.ErrorKind = kind
	r.Error = msg
}
