package domain

import (
	"time"

	"github.com/google/uuid"
)

// LogLevel — уровень записи в потоке логов run'а.
type LogLevel string

// Уровни логов.
const (
	LogLevelInfo    LogLevel = "info"
	LogLevelSuccess LogLevel = "success"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// LogEntry — упорядоченная запись потока логов.
//
// Поток принадлежит одному run'у: записи доставляются вызывающей
// стороне синхронно, в порядке возникновения, и не персистятся.
type LogEntry struct {
	// ID — идентификатор записи.
	ID uuid.UUID `json:"id"`

	// RunID — идентификатор run'а.
	RunID uuid.UUID `json:"run_id"`

	// NodeID — узел, к которому относится запись (пусто для run-уровня).
	NodeID string `json:"node_id,omitempty"`

	// Level — уровень: info, success, warning, error.
	Level LogLevel `json:"level"`

	// Message — текст записи.
	Message string `json:"message"`

	// Timestamp — время возникновения.
	Timestamp time.Time `json:"timestamp"`

	// DurationMs — длительность операции, если применимо.
	DurationMs int64 `json:"duration_ms,omitempty"`

	// Data — произвольная структурированная нагрузка.
	Data map[string]any `json:"data,omitempty"`
}
