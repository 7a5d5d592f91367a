package builtin

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/shaiso/Flowline/internal/domain"
)

// IfElseHandler — условный узел типа "if-else".
//
// Вычисляет булево выражение над единственной переменной input
// и производит ровно один из двух выходов: "true" или "false".
// Невыбранный порт не производится, поэтому узлы, достижимые только
// через него, в этом run'е не выполняются — это штатный short-circuit.
//
// Выражение — ограниченная HCL-грамматика, не произвольный код:
// сравнения, арифметика, логические операторы над input.
//
// Config:
//   - expression (string): условие, например "input > 10"
//   - true_value: значение порта "true" (default: сам input)
//   - false_value: значение порта "false" (default: сам input)
//
// Inputs:
//   - input (required): проверяемое значение
type IfElseHandler struct{}

// Execute вычисляет условие и производит выбранную ветку.
func (h *IfElseHandler) Execute(_ context.Context, node *domain.Node, inputs map[string]any, ec *domain.ExecContext) (map[string]any, error) {
	exprText := getString(node.Config, "expression", "")
	if exprText == "" {
		return nil, fmt.Errorf("if-else: expression is required")
	}

	input := inputs["input"]

	taken, err := evalCondition(exprText, input)
	if err != nil {
		return nil, fmt.Errorf("if-else: %w", err)
	}

	port := "false"
	value := node.Config["false_value"]
	if taken {
		port = "true"
		value = node.Config["true_value"]
	}
	if value == nil {
		value = input // сконфигурированного значения нет — пропускаем вход
	}

	ec.Log(domain.LogLevelInfo, fmt.Sprintf("condition %q evaluated to %v", exprText, taken), nil)

	return map[string]any{port: value}, nil
}

// evalCondition вычисляет булево выражение над переменной input.
func evalCondition(exprText string, input any) (bool, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(exprText), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return false, fmt.Errorf("parse expression: %s", diags.Error())
	}

	inputVal, err := toCty(input)
	if err != nil {
		return false, fmt.Errorf("convert input: %w", err)
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"input": inputVal},
	}

	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return false, fmt.Errorf("evaluate expression: %s", diags.Error())
	}
	if val.IsNull() || !val.IsKnown() {
		return false, fmt.Errorf("expression produced no value")
	}
	if val.Type() != cty.Bool {
		return false, fmt.Errorf("expression must produce a boolean, got %s", val.Type().FriendlyName())
	}

	return val.True(), nil
}
