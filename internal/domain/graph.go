package domain

// PortDirection — направление порта.
type PortDirection string

// Направления портов.
const (
	PortInput  PortDirection = "input"
	PortOutput PortDirection = "output"
)

// Port — именованный типизированный слот узла.
//
// Входные порты принимают значения от соединений или initial inputs.
// Выходные порты публикуют значения, произведённые узлом.
type Port struct {
	// ID — идентификатор порта, уникальный в рамках узла.
	ID string `json:"id"`

	// Name — человекочитаемое имя порта.
	// Для sandbox-узлов из имени строится имя переменной
	// (lowercase, пробелы → подчёркивания).
	Name string `json:"name"`

	// Direction — направление: input или output.
	Direction PortDirection `json:"direction"`

	// DataType — тег типа данных: "string", "number", "boolean", "object", "any".
	DataType string `json:"data_type,omitempty"`

	// Required — обязателен ли порт (только для input).
	// Необязательные порты никогда не блокируют готовность узла.
	Required bool `json:"required,omitempty"`

	// Default — значение по умолчанию, если порт не подключён.
	Default any `json:"default,omitempty"`
}

// Node — единица вычисления в графе.
//
// Type выбирает либо встроенный handler, либо пользовательское
// определение из sandbox-реестра. Узел неизменяем в течение одного run.
type Node struct {
	// ID — идентификатор узла, уникальный в рамках графа.
	ID string `json:"id"`

	// Type — тег типа: "input", "api-request", "if-else" и т.д.
	Type string `json:"type"`

	// Name — отображаемое имя узла.
	Name string `json:"name,omitempty"`

	// Config — непрозрачная конфигурация узла (зависит от типа).
	// Для if-else: expression, true_value, false_value.
	// Для api-request: method, url, headers.
	Config map[string]any `json:"config,omitempty"`

	// Inputs — упорядоченный список входных портов.
	Inputs []Port `json:"inputs,omitempty"`

	// Outputs — упорядоченный список выходных портов.
	Outputs []Port `json:"outputs,omitempty"`
}

// InputPort возвращает входной порт по ID.
func (n *Node) InputPort(id string) (*Port, bool) {
	for i := range n.Inputs {
		if n.Inputs[i].ID == id {
			return &n.Inputs[i], true
		}
	}
	return nil, false
}

// OutputPort возвращает выходной порт по ID.
func (n *Node) OutputPort(id string) (*Port, bool) {
	for i := range n.Outputs {
		if n.Outputs[i].ID == id {
			return &n.Outputs[i], true
		}
	}
	return nil, false
}

// Connection — направленное ребро графа.
//
// Источник всегда выходной порт, приёмник — входной.
// Ацикличность набора соединений проверяет engine, не модель данных.
type Connection struct {
	// ID — идентификатор соединения.
	ID string `json:"id"`

	// SourceNodeID — узел-источник.
	SourceNodeID string `json:"source_node_id"`

	// SourcePortID — выходной порт узла-источника.
	SourcePortID string `json:"source_port_id"`

	// TargetNodeID — узел-приёмник.
	TargetNodeID string `json:"target_node_id"`

	// TargetPortID — входной порт узла-приёмника.
	TargetPortID string `json:"target_port_id"`
}

// GraphSpec — граф, переданный на выполнение.
//
// Это "программа" для Flowline: узлы, соединения, начальные
// значения и политика обработки ошибок.
type GraphSpec struct {
	// Version — версия формата спецификации.
	Version string `json:"version,omitempty"`

	// Name — имя графа (для логов и событий).
	Name string `json:"name,omitempty"`

	// Nodes — список узлов. Порядок объявления используется
	// как tie-break при топологической сортировке.
	Nodes []Node `json:"nodes"`

	// Connections — список соединений.
	Connections []Connection `json:"connections,omitempty"`

	// Inputs — начальные значения: node ID → port ID → значение.
	// Закрывают required-порты без входящих соединений.
	Inputs map[string]map[string]any `json:"inputs,omitempty"`

	// OnError — политика обработки ошибок узлов.
	// nil — режим по умолчанию (stop).
	OnError *ErrorPolicy `json:"on_error,omitempty"`
}

// ErrorMode — режим обработки ошибки узла.
type ErrorMode string

// Режимы обработки ошибок.
const (
	// ErrorModeStop — остановить run после первого упавшего узла.
	ErrorModeStop ErrorMode = "stop"

	// ErrorModeContinue — продолжить выполнение; потомки упавшего
	// узла не станут готовыми и будут пропущены.
	ErrorModeContinue ErrorMode = "continue"

	// ErrorModeRetry — повторить узел с backoff, затем как continue.
	ErrorModeRetry ErrorMode = "retry"
)

// ErrorPolicy — политика обработки ошибок для run.
type ErrorPolicy struct {
	// Mode — режим: stop, continue, retry.
	Mode ErrorMode `json:"mode"`

	// Retry — параметры повторов (для mode=retry).
	Retry *RetryPolicy `json:"retry,omitempty"`
}

// RetryPolicy — политика повторных попыток.
type RetryPolicy struct {
	// MaxAttempts — максимальное количество попыток (включая первую).
	MaxAttempts int `json:"max_attempts,omitempty"`

	// Backoff — стратегия задержки: "fixed", "exponential".
	Backoff string `json:"backoff,omitempty"`

	// InitialDelayMs — начальная задержка в миллисекундах.
	InitialDelayMs int `json:"initial_delay_ms,omitempty"`

	// MaxDelayMs — максимальная задержка в миллисекундах.
	MaxDelayMs int `json:"max_delay_ms,omitempty"`
}
