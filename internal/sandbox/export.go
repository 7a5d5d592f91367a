package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shaiso/Flowline/internal/domain"
)

// ExportVersion — версия формата конверта экспорта.
const ExportVersion = "1.0"

// ExportBundle — версионированный конверт обмена определениями.
type ExportBundle struct {
	// Version — версия формата.
	Version string `json:"version"`

	// ExportedAt — время экспорта.
	ExportedAt time.Time `json:"exportedAt"`

	// Nodes — экспортированные определения.
	Nodes []domain.CustomNodeDefinition `json:"nodes"`
}

// ImportResult — итог импорта конверта.
type ImportResult struct {
	// Imported — количество успешно зарегистрированных определений.
	Imported int `json:"imported"`

	// Errors — сообщения об ошибках по отдельным определениям.
	Errors []string `json:"errors,omitempty"`
}

// ExportSelection сериализует каталог в конверт.
//
// Без аргументов экспортируется весь каталог, иначе — только
// перечисленные типы (неизвестные типы молча пропускаются).
func (r *Registry) ExportSelection(types ...string) *ExportBundle {
	all := r.List()

	nodes := all
	if len(types) > 0 {
		wanted := make(map[string]bool, len(types))
		for _, t := range types {
			wanted[t] = true
		}
		nodes = make([]domain.CustomNodeDefinition, 0, len(types))
		for _, def := range all {
			if wanted[def.Type] {
				nodes = append(nodes, def)
			}
		}
	}

	return &ExportBundle{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Nodes:      nodes,
	}
}

// ImportBundle парсит конверт и регистрирует определения по одному.
//
// Ошибка отдельного определения попадает в ImportResult.Errors
// и не прерывает импорт остальных. Ошибка формата самого конверта —
// ErrBadEnvelope, ничего не импортируется.
func (r *Registry) ImportBundle(ctx context.Context, payload []byte) (*ImportResult, error) {
	var bundle ExportBundle
	if err := json.Unmarshal(payload, &bundle); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if bundle.Version == "" {
		return nil, fmt.Errorf("%w: missing version", ErrBadEnvelope)
	}
	if bundle.Nodes == nil {
		return nil, fmt.Errorf("%w: missing nodes", ErrBadEnvelope)
	}

	result := &ImportResult{}
	for i := range bundle.Nodes {
		def := bundle.Nodes[i]
		if err := r.Register(ctx, &def); err != nil {
			label := def.Type
			if label == "" {
				label = fmt.Sprintf("#%d", i)
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", label, err))
			continue
		}
		result.Imported++
	}

	return result, nil
}
