package sandbox

import "errors"

// Ошибки регистрации определений.
var (
	// ErrEmptyName — определение без имени.
	ErrEmptyName = errors.New("definition has empty name")

	// ErrEmptyType — определение без типа.
	ErrEmptyType = errors.New("definition has empty type")

	// ErrEmptyCode — определение без тела execute.
	ErrEmptyCode = errors.New("definition has no execution code")

	// ErrSyntax — тело не парсится как JavaScript.
	ErrSyntax = errors.New("execution code has syntax errors")

	// ErrNoExecuteFunc — тело не определяет функцию с именем execute.
	ErrNoExecuteFunc = errors.New("execution code does not define an execute function")

	// ErrForbiddenPattern — тело содержит запрещённую конструкцию.
	ErrForbiddenPattern = errors.New("execution code contains a forbidden pattern")
)

// Ошибки выполнения sandbox-тел.
var (
	// ErrTimeout — тело превысило wall-clock бюджет и было снято.
	ErrTimeout = errors.New("sandbox execution timed out")

	// ErrSandboxRuntime — тело бросило исключение.
	ErrSandboxRuntime = errors.New("sandbox execution failed")

	// ErrBadResult — execute вернул не объект.
	ErrBadResult = errors.New("execute must return an object")
)

// Ошибки импорта каталога.
var (
	// ErrBadEnvelope — конверт экспорта не парсится или не содержит
	// обязательных полей.
	ErrBadEnvelope = errors.New("malformed export envelope")
)

// ValidationError — ошибка регистрации с указанием нарушенного правила.
type ValidationError struct {
	NodeType string // тип определения, если известен
	Rule     string // нарушенное правило
	Message  string // описание
	Err      error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.NodeType != "" {
		return "custom node " + e.NodeType + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт ошибку валидации.
func NewValidationError(nodeType, rule, message string, err error) *ValidationError {
	return &ValidationError{
		NodeType: nodeType,
		Rule:     rule,
		Message:  message,
		Err:      err,
	}
}
