package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Flowline/internal/domain"
)

// testNode собирает узел со стандартными портами in/out.
func testNode(id string, requiredInput bool) domain.Node {
	return domain.Node{
		ID:   id,
		Type: "static-text",
		Inputs: []domain.Port{
			{ID: "in", Name: "In", Direction: domain.PortInput, Required: requiredInput},
		},
		Outputs: []domain.Port{
			{ID: "out", Name: "Out", Direction: domain.PortOutput},
		},
	}
}

func conn(id, from, to string) domain.Connection {
	return domain.Connection{
		ID:           id,
		SourceNodeID: from,
		SourcePortID: "out",
		TargetNodeID: to,
		TargetPortID: "in",
	}
}

func TestBuildDAG_SimpleChain(t *testing.T) {
	nodes := []domain.Node{
		testNode("A", false),
		testNode("B", true),
		testNode("C", true),
	}
	connections := []domain.Connection{
		conn("c1", "A", "B"),
		conn("c2", "B", "C"),
	}

	dag, err := BuildDAG(nodes, connections)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dag.Size() != 3 {
		t.Errorf("expected 3 nodes, got %d", dag.Size())
	}

	// Проверяем порядок
	got := orderIDs(dag)
	want := []string{"A", "B", "C"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}

	// Проверяем зависимости
	nodeB := dag.GetNode("B")
	if len(nodeB.DependsOn) != 1 || nodeB.DependsOn[0].Def.ID != "A" {
		t.Error("node B should depend on A")
	}
}

func TestBuildDAG_Diamond(t *testing.T) {
	// A → B → D
	// A → C → D
	nodes := []domain.Node{
		testNode("A", false),
		testNode("B", true),
		testNode("C", true),
		{
			ID:   "D",
			Type: "combine-text",
			Inputs: []domain.Port{
				{ID: "text1", Name: "Text 1", Direction: domain.PortInput, Required: true},
				{ID: "text2", Name: "Text 2", Direction: domain.PortInput, Required: true},
			},
			Outputs: []domain.Port{
				{ID: "out", Name: "Out", Direction: domain.PortOutput},
			},
		},
	}
	connections := []domain.Connection{
		conn("c1", "A", "B"),
		conn("c2", "A", "C"),
		{ID: "c3", SourceNodeID: "B", SourcePortID: "out", TargetNodeID: "D", TargetPortID: "text1"},
		{ID: "c4", SourceNodeID: "C", SourcePortID: "out", TargetNodeID: "D", TargetPortID: "text2"},
	}

	dag, err := BuildDAG(nodes, connections)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := orderIDs(dag)
	if got[0] != "A" || got[3] != "D" {
		t.Errorf("expected A first and D last, got %v", got)
	}
	// B объявлен раньше C — при равной готовности идёт первым
	if got[1] != "B" || got[2] != "C" {
		t.Errorf("expected declaration-order tie-break B,C, got %v", got)
	}

	nodeD := dag.GetNode("D")
	if nodeD.InDegree != 2 {
		t.Errorf("expected InDegree 2 for D, got %d", nodeD.InDegree)
	}
}

func TestBuildDAG_TieBreakByDeclarationOrder(t *testing.T) {
	// Три независимых узла: порядок выполнения == порядок объявления.
	nodes := []domain.Node{
		testNode("third", false),
		testNode("first", false),
		testNode("second", false),
	}

	dag, err := BuildDAG(nodes, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := orderIDs(dag)
	want := []string{"third", "first", "second"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected declaration order %v, got %v", want, got)
		}
	}
}

func TestBuildDAG_Cycle(t *testing.T) {
	nodes := []domain.Node{
		testNode("A", true),
		testNode("B", true),
	}
	connections := []domain.Connection{
		conn("c1", "A", "B"),
		conn("c2", "B", "A"),
	}

	_, err := BuildDAG(nodes, connections)
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}

	var graphErr *GraphError
	if !errors.As(err, &graphErr) {
		t.Fatal("expected GraphError")
	}
}

func TestBuildDAG_SelfLoop(t *testing.T) {
	nodes := []domain.Node{testNode("A", true)}
	connections := []domain.Connection{conn("c1", "A", "A")}

	_, err := BuildDAG(nodes, connections)
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle for self-loop, got %v", err)
	}
}

func TestBuildDAG_DanglingConnection(t *testing.T) {
	tests := []struct {
		name string
		conn domain.Connection
	}{
		{
			name: "unknown source node",
			conn: domain.Connection{ID: "c1", SourceNodeID: "ghost", SourcePortID: "out", TargetNodeID: "A", TargetPortID: "in"},
		},
		{
			name: "unknown target node",
			conn: domain.Connection{ID: "c1", SourceNodeID: "A", SourcePortID: "out", TargetNodeID: "ghost", TargetPortID: "in"},
		},
		{
			name: "unknown source port",
			conn: domain.Connection{ID: "c1", SourceNodeID: "A", SourcePortID: "nope", TargetNodeID: "B", TargetPortID: "in"},
		},
		{
			name: "unknown target port",
			conn: domain.Connection{ID: "c1", SourceNodeID: "A", SourcePortID: "out", TargetNodeID: "B", TargetPortID: "nope"},
		},
		{
			name: "input port used as source",
			conn: domain.Connection{ID: "c1", SourceNodeID: "A", SourcePortID: "in", TargetNodeID: "B", TargetPortID: "in"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := []domain.Node{testNode("A", false), testNode("B", true)}

			_, err := BuildDAG(nodes, []domain.Connection{tt.conn})
			if !errors.Is(err, ErrDanglingConnection) {
				t.Fatalf("expected ErrDanglingConnection, got %v", err)
			}

			var graphErr *GraphError
			if !errors.As(err, &graphErr) {
				t.Fatal("expected GraphError")
			}
			if graphErr.ConnectionID != "c1" {
				t.Errorf("expected connection ID c1 in error, got %q", graphErr.ConnectionID)
			}
		})
	}
}

func TestBuildDAG_DuplicateNodeID(t *testing.T) {
	nodes := []domain.Node{testNode("A", false), testNode("A", false)}

	_, err := BuildDAG(nodes, nil)
	if !errors.Is(err, ErrDuplicateNodeID) {
		t.Fatalf("expected ErrDuplicateNodeID, got %v", err)
	}
}

func TestBuildDAG_EmptyGraph(t *testing.T) {
	_, err := BuildDAG(nil, nil)
	if !errors.Is(err, ErrEmptyNodes) {
		t.Fatalf("expected ErrEmptyNodes, got %v", err)
	}
}

func TestBuildDAG_DuplicateEdgeCountedOnce(t *testing.T) {
	// Два соединения между одной парой узлов (разные порты могли бы
	// быть, здесь один) не удваивают InDegree.
	nodes := []domain.Node{testNode("A", false), testNode("B", true)}
	connections := []domain.Connection{
		conn("c1", "A", "B"),
		conn("c2", "A", "B"),
	}

	dag, err := BuildDAG(nodes, connections)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dag.GetNode("B").InDegree != 1 {
		t.Errorf("expected InDegree 1, got %d", dag.GetNode("B").InDegree)
	}
}

func TestCheckReady(t *testing.T) {
	nodes := []domain.Node{
		testNode("A", false),
		testNode("B", true),
	}
	connections := []domain.Connection{conn("c1", "A", "B")}

	dag, err := BuildDAG(nodes, connections)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nodeB := dag.GetNode("B")

	// Источник ещё не произвёл значение — узел ждёт
	r := dag.CheckReady(nodeB, map[string]map[string]any{}, nil)
	if r.Ready {
		t.Error("expected B not ready before A produced")
	}
	if len(r.WaitingPorts) != 1 || r.WaitingPorts[0] != "in" {
		t.Errorf("expected waiting port in, got %v", r.WaitingPorts)
	}

	// Источник произвёл значение — узел готов
	produced := map[string]map[string]any{"A": {"out": "hello"}}
	r = dag.CheckReady(nodeB, produced, nil)
	if !r.Ready {
		t.Errorf("expected B ready, waiting=%v unconnected=%v", r.WaitingPorts, r.UnconnectedPorts)
	}

	// Источник завершился, но порт не произведён (невыбранная ветка)
	r = dag.CheckReady(nodeB, map[string]map[string]any{"A": {}}, nil)
	if r.Ready {
		t.Error("expected B not ready when source produced no value on the port")
	}
}

func TestCheckReady_UnconnectedRequiredPort(t *testing.T) {
	nodes := []domain.Node{testNode("B", true)}

	dag, err := BuildDAG(nodes, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nodeB := dag.GetNode("B")

	// Без соединения и без initial — ошибка узла
	r := dag.CheckReady(nodeB, nil, nil)
	if r.Ready {
		t.Error("expected B not ready")
	}
	if len(r.UnconnectedPorts) != 1 || r.UnconnectedPorts[0] != "in" {
		t.Errorf("expected unconnected port in, got %v", r.UnconnectedPorts)
	}

	// Initial-значение закрывает порт
	r = dag.CheckReady(nodeB, nil, map[string]any{"in": 42})
	if !r.Ready {
		t.Error("expected B ready with initial input")
	}
}

func TestCheckReady_OptionalPortNeverBlocks(t *testing.T) {
	nodes := []domain.Node{testNode("B", false)}

	dag, err := BuildDAG(nodes, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := dag.CheckReady(dag.GetNode("B"), nil, nil)
	if !r.Ready {
		t.Error("optional port must not block readiness")
	}
}

func orderIDs(dag *DAG) []string {
	ids := make([]string, len(dag.Order))
	for i, node := range dag.Order {
		ids[i] = node.Def.ID
	}
	return ids
}
