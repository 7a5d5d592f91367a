package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shaiso/Flowline/internal/domain"
)

// JSONParseHandler — узел типа "json-parse".
//
// Парсит строковый вход "input" как JSON. Если в config задан "field",
// из результата извлекается значение этого поля верхнего уровня.
type JSONParseHandler struct{}

// Execute парсит JSON-вход.
func (h *JSONParseHandler) Execute(_ context.Context, node *domain.Node, inputs map[string]any, _ *domain.ExecContext) (map[string]any, error) {
	raw := inputs["input"]

	var parsed any
	switch v := raw.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	case nil:
		return nil, fmt.Errorf("json-parse: input is empty")
	default:
		// Уже структурированное значение — пропускаем как есть.
		parsed = v
	}

	if field := getString(node.Config, "field", ""); field != "" {
		obj, ok := parsed.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("json-parse: field %q requested but value is %T, not an object", field, parsed)
		}
		val, ok := obj[field]
		if !ok {
			return nil, fmt.Errorf("json-parse: field %q not present", field)
		}
		parsed = val
	}

	return map[string]any{"output": parsed}, nil
}
