package domain

import "time"

// CustomNodeDefinition — пользовательское определение типа узла.
//
// В отличие от встроенных узлов, логика здесь — исходный текст
// JavaScript-функции execute(inputs, properties, context),
// выполняемой в sandbox. Определения принадлежат sandbox-реестру
// и персистятся плоской коллекцией, ключ — Type.
type CustomNodeDefinition struct {
	// Type — тег типа узла. Глобальный ключ каталога.
	Type string `json:"type"`

	// Name — отображаемое имя.
	Name string `json:"name"`

	// Description — описание назначения узла.
	Description string `json:"description,omitempty"`

	// Category — категория в палитре редактора.
	Category string `json:"category,omitempty"`

	// Inputs — объявленные входные порты.
	Inputs []Port `json:"inputs,omitempty"`

	// Outputs — объявленные выходные порты.
	Outputs []Port `json:"outputs,omitempty"`

	// Properties — настраиваемые свойства узла.
	Properties []PropertyDef `json:"properties,omitempty"`

	// ExecutionCode — исходный текст тела.
	// Должен определять функцию с именем execute.
	ExecutionCode string `json:"execution_code"`

	// Metadata — авторство и счётчики.
	Metadata DefinitionMeta `json:"metadata,omitempty"`
}

// PropertyDef — настраиваемое свойство пользовательского узла.
//
// Значение берётся из Node.Config по ID свойства,
// при отсутствии — Default.
type PropertyDef struct {
	// ID — идентификатор свойства.
	ID string `json:"id"`

	// Name — человекочитаемое имя (из него строится имя переменной).
	Name string `json:"name"`

	// Type — тип значения: "string", "number", "boolean".
	Type string `json:"type,omitempty"`

	// Default — значение по умолчанию.
	Default any `json:"default,omitempty"`
}

// DefinitionMeta — метаданные авторства определения.
type DefinitionMeta struct {
	// Author — создатель определения.
	Author string `json:"author,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at,omitempty"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at,omitempty"`

	// Published — опубликовано ли определение.
	Published bool `json:"published,omitempty"`

	// Shared — доступно ли другим пользователям.
	Shared bool `json:"shared,omitempty"`

	// UsageCount — счётчик использований в runs.
	UsageCount int `json:"usage_count,omitempty"`
}
