package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shaiso/Flowline/internal/domain"
)

// whitespaceRe — внутренние пробельные последовательности в именах портов.
var whitespaceRe = regexp.MustCompile(`\s+`)

// VariableName преобразует человекочитаемое имя порта или свойства
// в имя переменной для sandbox-кода: lowercase, пробелы → подчёркивания.
//
//	"Max Length" → "max_length"
func VariableName(name string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
}

// ResolveInputs собирает карту входных значений узла, ключ — port ID.
//
// Приоритет для каждого входного порта:
//  1. initial-значение узла;
//  2. значение из соединения (output источника по source port ID);
//  3. default порта.
//
// Required-порт без соединения и без значения — ErrUnresolvedInput.
// Необязательный порт без значения просто отсутствует в карте.
func ResolveInputs(d *DAG, node *Node, produced map[string]map[string]any, initial map[string]any) (map[string]any, error) {
	inputs := make(map[string]any, len(node.Def.Inputs))

	for _, port := range node.Def.Inputs {
		if val, ok := initial[port.ID]; ok {
			inputs[port.ID] = val
			continue
		}

		if conn, connected := d.incomingFor(node.Def.ID, port.ID); connected {
			if outputs, done := produced[conn.SourceNodeID]; done {
				if val, ok := outputs[conn.SourcePortID]; ok {
					inputs[port.ID] = val
					continue
				}
			}
		}

		if port.Default != nil {
			inputs[port.ID] = port.Default
			continue
		}

		if port.Required {
			return nil, fmt.Errorf("%w: node %q port %q", ErrUnresolvedInput, node.Def.ID, port.ID)
		}
	}

	return inputs, nil
}

// IDsToNames переписывает карту значений с ключей-портов на имена
// переменных для sandbox-кода.
//
// Порты без значения получают default, если он объявлен.
func IDsToNames(values map[string]any, ports []domain.Port) map[string]any {
	named := make(map[string]any, len(ports))
	for _, port := range ports {
		key := VariableName(port.Name)
		if val, ok := values[port.ID]; ok {
			named[key] = val
		} else if port.Default != nil {
			named[key] = port.Default
		}
	}
	return named
}

// NamesToIDs — обратное преобразование для результатов sandbox-кода.
//
// Ключи, не совпавшие ни с одним объявленным портом, отбрасываются;
// о каждом отброшенном ключе сообщается через onDrop — молчаливая
// потеря маскировала бы ошибки автора узла.
func NamesToIDs(values map[string]any, ports []domain.Port, onDrop func(name string)) map[string]any {
	byName := make(map[string]string, len(ports))
	for _, port := range ports {
		byName[VariableName(port.Name)] = port.ID
	}

	mapped := make(map[string]any, len(values))
	for name, val := range values {
		if id, ok := byName[name]; ok {
			mapped[id] = val
			continue
		}
		if onDrop != nil {
			onDrop(name)
		}
	}
	return mapped
}

// ResolveProperties собирает значения настраиваемых свойств узла,
// ключ — имя переменной. Значение берётся из конфигурации узла
// по ID свойства, при отсутствии — default из определения.
func ResolveProperties(props []domain.PropertyDef, config map[string]any) map[string]any {
	resolved := make(map[string]any, len(props))
	for _, prop := range props {
		key := VariableName(prop.Name)
		if val, ok := config[prop.ID]; ok {
			resolved[key] = val
		} else if prop.Default != nil {
			resolved[key] = prop.Default
		}
	}
	return resolved
}
