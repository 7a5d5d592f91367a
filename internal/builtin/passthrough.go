package builtin

import (
	"context"

	"github.com/shaiso/Flowline/internal/domain"
)

// InputHandler — узел типа "input": точка входа графа.
//
// Значение берётся из входного порта "value" (initial input),
// при отсутствии — из config "value". Производит порт "output".
type InputHandler struct{}

// Execute публикует входное значение.
func (h *InputHandler) Execute(_ context.Context, node *domain.Node, inputs map[string]any, _ *domain.ExecContext) (map[string]any, error) {
	value, ok := inputs["value"]
	if !ok {
		value = node.Config["value"]
	}
	return map[string]any{"output": value}, nil
}

// OutputHandler — узел типа "output": точка выхода графа.
//
// Принимает порт "input" и публикует его как "result" —
// итоговое значение узла читается из карты результатов run'а.
type OutputHandler struct{}

// Execute фиксирует итоговое значение.
func (h *OutputHandler) Execute(_ context.Context, _ *domain.Node, inputs map[string]any, _ *domain.ExecContext) (map[string]any, error) {
	return map[string]any{"result": inputs["input"]}, nil
}

// StaticTextHandler — узел типа "static-text": константная строка
// из config "text".
type StaticTextHandler struct{}

// Execute публикует сконфигурированный текст.
func (h *StaticTextHandler) Execute(_ context.Context, node *domain.Node, _ map[string]any, _ *domain.ExecContext) (map[string]any, error) {
	text := getString(node.Config, "text", "")
	return map[string]any{"output": text}, nil
}
