package builtin

import (
	"context"

	"github.com/shaiso/Flowline/internal/domain"
)

// Handler — интерфейс для выполнения одного встроенного типа узла.
//
// inputs — разрешённые входные значения, ключ — port ID.
// Возвращаемая карта — произведённые значения, ключ — output port ID:
// handler, вернувший не все объявленные выходы, тем самым
// short-circuit'ит потомков непроизведённых портов (так работает if-else).
type Handler interface {
	Execute(ctx context.Context, node *domain.Node, inputs map[string]any, ec *domain.ExecContext) (map[string]any, error)
}

// Registry — реестр встроенных handler'ов по типу узла.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry создаёт реестр с handler'ами по умолчанию.
//
// Регистрирует: input, output, static-text, combine-text, json-parse,
// api-request, delay, if-else. Пользовательские типы обслуживает
// sandbox-реестр, не этот.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	r.Register("input", &InputHandler{})
	r.Register("output", &OutputHandler{})
	r.Register("static-text", &StaticTextHandler{})
	r.Register("combine-text", &CombineTextHandler{})
	r.Register("json-parse", &JSONParseHandler{})
	r.Register("api-request", &APIRequestHandler{})
	r.Register("delay", &DelayHandler{})
	r.Register("if-else", &IfElseHandler{})
	return r
}

// Register добавляет handler для типа узла.
func (r *Registry) Register(nodeType string, handler Handler) {
	r.handlers[nodeType] = handler
}

// Get возвращает handler для типа узла.
func (r *Registry) Get(nodeType string) (Handler, bool) {
	handler, ok := r.handlers[nodeType]
	return handler, ok
}

// Types возвращает список зарегистрированных типов.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}
