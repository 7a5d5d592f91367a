package builtin

import (
	"context"
	"time"

	"github.com/shaiso/Flowline/internal/domain"
)

// DelayHandler — узел типа "delay".
//
// Ждёт указанное количество секунд и пропускает вход "input"
// в выход "output". Поддерживает отмену через context.
//
// Config:
//   - duration_sec (number): длительность задержки (default: 1)
type DelayHandler struct{}

// Execute выполняет задержку.
func (h *DelayHandler) Execute(ctx context.Context, node *domain.Node, inputs map[string]any, _ *domain.ExecContext) (map[string]any, error) {
	durationSec := 1.0
	if val, ok := node.Config["duration_sec"]; ok {
		switch v := val.(type) {
		case float64:
			durationSec = v
		case int:
			durationSec = float64(v)
		}
	}
	if durationSec <= 0 {
		durationSec = 1
	}

	duration := time.Duration(durationSec * float64(time.Second))

	select {
	case <-time.After(duration):
		return map[string]any{
			"output":      inputs["input"],
			"delayed_sec": durationSec,
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
