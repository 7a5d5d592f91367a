package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shaiso/Flowline/internal/domain"
)

func TestVariableName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Max Length", "max_length"},
		{"value", "value"},
		{"  API   Key  ", "api_key"},
		{"Text 1", "text_1"},
		{"UPPER", "upper"},
	}

	for _, tt := range tests {
		if got := VariableName(tt.in); got != tt.want {
			t.Errorf("VariableName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveInputs_Priority(t *testing.T) {
	// initial > соединение > default
	nodes := []domain.Node{
		{
			ID:   "A",
			Type: "input",
			Outputs: []domain.Port{
				{ID: "out", Name: "Out", Direction: domain.PortOutput},
			},
		},
		{
			ID:   "B",
			Type: "output",
			Inputs: []domain.Port{
				{ID: "in", Name: "In", Direction: domain.PortInput, Required: true, Default: "fallback"},
			},
		},
	}
	connections := []domain.Connection{
		{ID: "c1", SourceNodeID: "A", SourcePortID: "out", TargetNodeID: "B", TargetPortID: "in"},
	}

	dag, err := BuildDAG(nodes, connections)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nodeB := dag.GetNode("B")
	produced := map[string]map[string]any{"A": {"out": "from-connection"}}

	// initial побеждает соединение
	inputs, err := ResolveInputs(dag, nodeB, produced, map[string]any{"in": "from-initial"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inputs["in"] != "from-initial" {
		t.Errorf("expected initial value, got %v", inputs["in"])
	}

	// без initial — значение соединения
	inputs, err = ResolveInputs(dag, nodeB, produced, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inputs["in"] != "from-connection" {
		t.Errorf("expected connection value, got %v", inputs["in"])
	}

	// соединение не произвело значение — default
	inputs, err = ResolveInputs(dag, nodeB, map[string]map[string]any{"A": {}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inputs["in"] != "fallback" {
		t.Errorf("expected default value, got %v", inputs["in"])
	}
}

func TestResolveInputs_RequiredMissing(t *testing.T) {
	nodes := []domain.Node{
		{
			ID:   "B",
			Type: "output",
			Inputs: []domain.Port{
				{ID: "in", Name: "In", Direction: domain.PortInput, Required: true},
			},
		},
	}

	dag, err := BuildDAG(nodes, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = ResolveInputs(dag, dag.GetNode("B"), nil, nil)
	if !errors.Is(err, ErrUnresolvedInput) {
		t.Fatalf("expected ErrUnresolvedInput, got %v", err)
	}
}

func TestResolveInputs_OptionalMissingOmitted(t *testing.T) {
	nodes := []domain.Node{
		{
			ID:   "B",
			Type: "output",
			Inputs: []domain.Port{
				{ID: "in", Name: "In", Direction: domain.PortInput},
			},
		},
	}

	dag, err := BuildDAG(nodes, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inputs, err := ResolveInputs(dag, dag.GetNode("B"), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := inputs["in"]; ok {
		t.Error("optional port without value must be absent from the map")
	}
}

func TestIDsToNames_NamesToIDs_RoundTrip(t *testing.T) {
	ports := []domain.Port{
		{ID: "port-1", Name: "Max Length", Direction: domain.PortInput},
		{ID: "port-2", Name: "Source Text", Direction: domain.PortInput},
	}

	values := map[string]any{"port-1": 10, "port-2": "hello"}

	named := IDsToNames(values, ports)
	want := map[string]any{"max_length": 10, "source_text": "hello"}
	if !reflect.DeepEqual(named, want) {
		t.Errorf("IDsToNames = %v, want %v", named, want)
	}

	back := NamesToIDs(named, ports, nil)
	if !reflect.DeepEqual(back, values) {
		t.Errorf("round trip = %v, want %v", back, values)
	}
}

func TestIDsToNames_DefaultApplied(t *testing.T) {
	ports := []domain.Port{
		{ID: "port-1", Name: "Limit", Direction: domain.PortInput, Default: 100},
	}

	named := IDsToNames(map[string]any{}, ports)
	if named["limit"] != 100 {
		t.Errorf("expected default 100, got %v", named["limit"])
	}
}

func TestNamesToIDs_DropsUndeclared(t *testing.T) {
	ports := []domain.Port{
		{ID: "port-1", Name: "Result", Direction: domain.PortOutput},
	}

	var dropped []string
	mapped := NamesToIDs(
		map[string]any{"result": 1, "extra": 2},
		ports,
		func(name string) { dropped = append(dropped, name) },
	)

	if len(mapped) != 1 || mapped["port-1"] != 1 {
		t.Errorf("unexpected mapping: %v", mapped)
	}
	if len(dropped) != 1 || dropped[0] != "extra" {
		t.Errorf("expected drop callback for extra, got %v", dropped)
	}
}

func TestResolveProperties(t *testing.T) {
	props := []domain.PropertyDef{
		{ID: "prop-1", Name: "Separator", Default: ","},
		{ID: "prop-2", Name: "Trim Spaces", Default: true},
	}

	resolved := ResolveProperties(props, map[string]any{"prop-1": ";"})

	if resolved["separator"] != ";" {
		t.Errorf("expected configured separator, got %v", resolved["separator"])
	}
	if resolved["trim_spaces"] != true {
		t.Errorf("expected default trim_spaces, got %v", resolved["trim_spaces"])
	}
}
