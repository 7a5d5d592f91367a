package builtin

import (
	"context"
	"fmt"

	"github.com/shaiso/Flowline/internal/domain"
)

// CombineTextHandler — узел типа "combine-text".
//
// Склеивает входы "text1" и "text2" через разделитель
// из config "separator" (default: пробел).
type CombineTextHandler struct{}

// Execute склеивает два текстовых входа.
func (h *CombineTextHandler) Execute(_ context.Context, node *domain.Node, inputs map[string]any, _ *domain.ExecContext) (map[string]any, error) {
	separator := " "
	if s, ok := node.Config["separator"].(string); ok {
		separator = s
	}

	text1 := stringify(inputs["text1"])
	text2 := stringify(inputs["text2"])

	return map[string]any{"output": text1 + separator + text2}, nil
}

// stringify приводит значение к строке.
func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}
