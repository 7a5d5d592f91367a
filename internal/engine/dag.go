package engine

import (
	"fmt"

	"github.com/shaiso/Flowline/internal/domain"
)

// Node — узел в DAG.
type Node struct {
	// Def — определение узла из GraphSpec.
	Def *domain.Node

	// Index — позиция в исходном списке узлов.
	// Используется как tie-break при топологической сортировке.
	Index int

	// InDegree — количество входящих рёбер (зависимостей).
	InDegree int

	// DependsOn — узлы, от которых зависит этот узел.
	DependsOn []*Node

	// Dependents — узлы, которые зависят от этого узла.
	Dependents []*Node
}

// DAG — направленный ациклический граф узлов.
type DAG struct {
	// Nodes — все узлы графа (node ID → Node).
	Nodes map[string]*Node

	// Order — детерминированный топологический порядок:
	// при нескольких готовых узлах первым идёт объявленный раньше.
	Order []*Node

	// Incoming — входящие соединения по узлу-приёмнику.
	Incoming map[string][]domain.Connection
}

// BuildDAG строит DAG из списков узлов и соединений.
//
// Проверяет уникальность ID узлов и корректность каждого соединения:
// узлы существуют, порт-источник — output, порт-приёмник — input.
// Завершается GraphError(ErrCycle) при цикле — до любого выполнения.
func BuildDAG(nodes []domain.Node, connections []domain.Connection) (*DAG, error) {
	if len(nodes) == 0 {
		return nil, &GraphError{Message: "graph has no nodes", Err: ErrEmptyNodes}
	}

	dag := &DAG{
		Nodes:    make(map[string]*Node, len(nodes)),
		Incoming: make(map[string][]domain.Connection),
	}

	// Первый проход: создаём узлы.
	for i := range nodes {
		def := &nodes[i]
		if def.ID == "" {
			return nil, &GraphError{Message: "node has empty ID", Err: ErrEmptyNodeID}
		}
		if _, exists := dag.Nodes[def.ID]; exists {
			return nil, &GraphError{
				NodeID:  def.ID,
				Message: fmt.Sprintf("duplicate node ID %q", def.ID),
				Err:     ErrDuplicateNodeID,
			}
		}
		dag.Nodes[def.ID] = &Node{Def: def, Index: i}
	}

	// Второй проход: валидируем соединения и связываем узлы.
	for _, conn := range connections {
		if err := dag.link(conn); err != nil {
			return nil, err
		}
	}

	order, err := dag.topologicalSort()
	if err != nil {
		return nil, err
	}
	dag.Order = order

	return dag, nil
}

// link валидирует соединение и добавляет ребро.
func (d *DAG) link(conn domain.Connection) error {
	source, ok := d.Nodes[conn.SourceNodeID]
	if !ok {
		return danglingErr(conn, fmt.Sprintf("source node %q not found", conn.SourceNodeID))
	}
	if _, ok := source.Def.OutputPort(conn.SourcePortID); !ok {
		return danglingErr(conn, fmt.Sprintf("node %q has no output port %q", conn.SourceNodeID, conn.SourcePortID))
	}

	target, ok := d.Nodes[conn.TargetNodeID]
	if !ok {
		return danglingErr(conn, fmt.Sprintf("target node %q not found", conn.TargetNodeID))
	}
	if _, ok := target.Def.InputPort(conn.TargetPortID); !ok {
		return danglingErr(conn, fmt.Sprintf("node %q has no input port %q", conn.TargetNodeID, conn.TargetPortID))
	}

	d.Incoming[conn.TargetNodeID] = append(d.Incoming[conn.TargetNodeID], conn)
	d.addEdge(source, target)

	return nil
}

func danglingErr(conn domain.Connection, msg string) error {
	return &GraphError{ConnectionID: conn.ID, Message: msg, Err: ErrDanglingConnection}
}

// addEdge добавляет ребро между узлами.
// Дубликаты рёбер не увеличивают InDegree повторно.
func (d *DAG) addEdge(from, to *Node) {
	for _, dep := range to.DependsOn {
		if dep.Def.ID == from.Def.ID {
			return // уже связаны
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
}

// topologicalSort выполняет топологическую сортировку (алгоритм Кана).
//
// Tie-break стабильный: из нескольких узлов с нулевым inDegree
// выбирается объявленный раньше. Возвращает ошибку при цикле.
func (d *DAG) topologicalSort() ([]*Node, error) {
	inDegree := make(map[string]int, len(d.Nodes))
	for id, node := range d.Nodes {
		inDegree[id] = node.InDegree
	}

	processed := make(map[string]bool, len(d.Nodes))
	order := make([]*Node, 0, len(d.Nodes))

	for len(order) < len(d.Nodes) {
		// Ищем необработанный узел с inDegree 0 и минимальным Index.
		var next *Node
		for _, node := range d.Nodes {
			if processed[node.Def.ID] || inDegree[node.Def.ID] != 0 {
				continue
			}
			if next == nil || node.Index < next.Index {
				next = node
			}
		}

		// Ни одного готового узла — остались только циклы.
		if next == nil {
			return nil, &GraphError{Message: "cycle detected in connections", Err: ErrCycle}
		}

		processed[next.Def.ID] = true
		order = append(order, next)

		for _, dependent := range next.Dependents {
			inDegree[dependent.Def.ID]--
		}
	}

	return order, nil
}

// GetNode возвращает узел по ID.
func (d *DAG) GetNode(id string) *Node {
	return d.Nodes[id]
}

// Size возвращает количество узлов в DAG.
func (d *DAG) Size() int {
	return len(d.Nodes)
}

// Readiness — результат проверки готовности узла.
type Readiness struct {
	// Ready — все required-порты закрыты соединением с произведённым
	// значением либо initial-значением.
	Ready bool

	// WaitingPorts — required-порты, чьи соединения ещё не произвели
	// значение (источник пропущен, упал или не выбран веткой).
	WaitingPorts []string

	// UnconnectedPorts — required-порты без соединения и без
	// initial-значения. Это ошибка узла, а не ожидание.
	UnconnectedPorts []string
}

// CheckReady проверяет готовность узла к выполнению.
//
// produced — значения, произведённые завершившимися узлами
// (node ID → port ID → значение). initial — начальные значения узла.
// Необязательные порты никогда не блокируют готовность.
func (d *DAG) CheckReady(node *Node, produced map[string]map[string]any, initial map[string]any) Readiness {
	r := Readiness{Ready: true}

	for _, port := range node.Def.Inputs {
		if !port.Required {
			continue
		}
		if _, ok := initial[port.ID]; ok {
			continue
		}

		conn, connected := d.incomingFor(node.Def.ID, port.ID)
		if !connected {
			r.Ready = false
			r.UnconnectedPorts = append(r.UnconnectedPorts, port.ID)
			continue
		}

		outputs, done := produced[conn.SourceNodeID]
		if !done {
			r.Ready = false
			r.WaitingPorts = append(r.WaitingPorts, port.ID)
			continue
		}
		if _, ok := outputs[conn.SourcePortID]; !ok {
			// Источник завершился, но порт не произведён — невыбранная ветка.
			r.Ready = false
			r.WaitingPorts = append(r.WaitingPorts, port.ID)
		}
	}

	return r
}

// incomingFor возвращает соединение, завершающееся в указанном порту.
func (d *DAG) incomingFor(nodeID, portID string) (domain.Connection, bool) {
	for _, conn := range d.Incoming[nodeID] {
		if conn.TargetPortID == portID {
			return conn, true
		}
	}
	return domain.Connection{}, false
}
