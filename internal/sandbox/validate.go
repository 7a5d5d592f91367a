package sandbox

import (
	"fmt"
	"regexp"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"

	"github.com/shaiso/Flowline/internal/domain"
)

// forbiddenPattern — синтаксическая конструкция, запрещённая в телах
// пользовательских узлов.
//
// Это первый рубеж (admission control), не основная защита: даже
// пропущенная конструкция упрётся в пустой scope goja-runtime'а,
// где require, process и прочие host-объекты просто не существуют.
type forbiddenPattern struct {
	rule string
	re   *regexp.Regexp
}

var forbiddenPatterns = []forbiddenPattern{
	{"dynamic require", regexp.MustCompile(`\brequire\s*\(`)},
	{"dynamic import", regexp.MustCompile(`\bimport\s*\(`)},
	{"eval", regexp.MustCompile(`\beval\s*\(`)},
	{"function constructor", regexp.MustCompile(`\bnew\s+Function\b|\bFunction\s*\(`)},
	{"process access", regexp.MustCompile(`\bprocess\s*[.[]`)},
	{"global object access", regexp.MustCompile(`\bglobal(?:This)?\s*[.[]`)},
	{"window access", regexp.MustCompile(`\bwindow\s*[.[]`)},
	{"document access", regexp.MustCompile(`\bdocument\s*[.[]`)},
	{"filesystem access", regexp.MustCompile(`\b(?:fs|path)\s*\.`)},
	{"process spawning", regexp.MustCompile(`\bchild_process\b|\bexecSync\s*\(|\bspawn(?:Sync)?\s*\(`)},
}

// ValidateDefinition проверяет определение перед регистрацией.
//
// Правила: непустые name/type, непустое тело, отсутствие запрещённых
// конструкций, наличие функции с именем execute (проверяется по AST,
// не по регулярному выражению). При любом нарушении возвращается
// ValidationError, и в реестре ничего не меняется.
func ValidateDefinition(def *domain.CustomNodeDefinition) error {
	if def == nil {
		return NewValidationError("", "definition", "definition is nil", ErrEmptyType)
	}
	if def.Type == "" {
		return NewValidationError("", "type", "type must not be empty", ErrEmptyType)
	}
	if def.Name == "" {
		return NewValidationError(def.Type, "name", "name must not be empty", ErrEmptyName)
	}
	if def.ExecutionCode == "" {
		return NewValidationError(def.Type, "execution_code", "execution code must not be empty", ErrEmptyCode)
	}

	for _, pattern := range forbiddenPatterns {
		if pattern.re.MatchString(def.ExecutionCode) {
			return NewValidationError(def.Type, pattern.rule,
				fmt.Sprintf("execution code contains forbidden pattern: %s", pattern.rule),
				ErrForbiddenPattern)
		}
	}

	program, err := parser.ParseFile(nil, "node.js", def.ExecutionCode, 0)
	if err != nil {
		return NewValidationError(def.Type, "syntax", fmt.Sprintf("execution code does not parse: %v", err), ErrSyntax)
	}

	if !definesExecute(program) {
		return NewValidationError(def.Type, "execute",
			"execution code must define a function named execute(inputs, properties, context)",
			ErrNoExecuteFunc)
	}

	return nil
}

// definesExecute ищет на верхнем уровне программы функцию execute:
// либо function declaration, либо присваивание функции/стрелки
// переменной с этим именем.
func definesExecute(program *ast.Program) bool {
	for _, stmt := range program.Body {
		switch decl := stmt.(type) {
		case *ast.FunctionDeclaration:
			if decl.Function.Name != nil && decl.Function.Name.Name.String() == "execute" {
				return true
			}
		case *ast.VariableStatement:
			if bindingsDefineExecute(decl.List) {
				return true
			}
		case *ast.LexicalDeclaration:
			if bindingsDefineExecute(decl.List) {
				return true
			}
		}
	}
	return false
}

func bindingsDefineExecute(bindings []*ast.Binding) bool {
	for _, binding := range bindings {
		ident, ok := binding.Target.(*ast.Identifier)
		if !ok || ident.Name.String() != "execute" {
			continue
		}
		switch binding.Initializer.(type) {
		case *ast.FunctionLiteral, *ast.ArrowFunctionLiteral:
			return true
		}
	}
	return false
}
