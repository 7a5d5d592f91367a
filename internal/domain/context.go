package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LogFunc принимает запись лога от выполняющегося узла.
type LogFunc func(level LogLevel, message string, data map[string]any)

// FetchRequest — сетевой запрос от имени узла.
type FetchRequest struct {
	// Method — HTTP-метод. Пустой — GET.
	Method string `json:"method,omitempty"`

	// URL — адрес запроса.
	URL string `json:"url"`

	// Headers — заголовки запроса.
	Headers map[string]string `json:"headers,omitempty"`

	// Body — тело запроса (сериализуется в JSON).
	Body any `json:"body,omitempty"`
}

// FetchResponse — ответ на FetchRequest.
type FetchResponse struct {
	// StatusCode — HTTP-код ответа.
	StatusCode int `json:"status_code"`

	// Headers — заголовки ответа.
	Headers map[string]string `json:"headers,omitempty"`

	// Body — тело ответа (JSON, если парсится, иначе строка).
	Body any `json:"body,omitempty"`
}

// FetchFunc выполняет сетевой запрос от имени узла.
type FetchFunc func(ctx context.Context, req FetchRequest) (*FetchResponse, error)

// ExecContext — капабилити-набор одного вызова узла.
//
// Узел видит только то, что здесь перечислено: логирование,
// опциональный сетевой доступ и часы. Никакого ambient-доступа
// к процессу, файловой системе или окружению — by construction.
type ExecContext struct {
	// RunID — идентификатор текущего run'а.
	RunID uuid.UUID

	// NodeID — идентификатор выполняющегося узла.
	NodeID string

	// Log — логирование в поток run'а. Всегда не nil.
	Log LogFunc

	// Fetch — сетевой доступ. nil — доступ не разрешён вызывающей стороной.
	Fetch FetchFunc

	// Now — часы. Всегда не nil.
	Now func() time.Time
}
