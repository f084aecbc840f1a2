package dependency

import (
	"fmt"
	"strings"
)

// NodeID is the unique identifier for a node inside a dependency graph.
// Callers choose the encoding, e.g. "stop-worker" or "start-topic:t1".
type NodeID string

// Node is one unit of work together with the nodes that must complete
// before it.
type Node struct {
	ID           NodeID
	FriendlyName string
	DependsOn    []NodeID
}

// Graph is a small DAG that remembers insertion order so that every query
// answers deterministically. It is not thread-safe; callers build it once
// and then only read it.
type Graph struct {
	nodes map[NodeID]*Node
	order []NodeID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[NodeID]*Node)}
}

// AddNode adds a node. Adding the same ID twice is an error.
func (g *Graph) AddNode(n Node) error {
	if g.nodes == nil {
		g.nodes = make(map[NodeID]*Node)
	}
	if n.ID == "" {
		return fmt.Errorf("node id must not be empty")
	}
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("duplicate node %q", n.ID)
	}
	copied := n
	copied.DependsOn = append([]NodeID(nil), n.DependsOn...)
	g.nodes[n.ID] = &copied
	g.order = append(g.order, n.ID)
	return nil
}

// Get returns the stored node or nil if it does not exist.
func (g *Graph) Get(id NodeID) *Node {
	return g.nodes[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// IDs returns all node IDs in insertion order.
func (g *Graph) IDs() []NodeID {
	return append([]NodeID(nil), g.order...)
}

// Dependencies returns the immediate dependencies of a node.
func (g *Graph) Dependencies(id NodeID) []NodeID {
	if n, ok := g.nodes[id]; ok {
		depsCopy := make([]NodeID, len(n.DependsOn))
		copy(depsCopy, n.DependsOn)
		return depsCopy
	}
	return nil
}

// Dependents returns the nodes that directly depend on id, in insertion
// order.
func (g *Graph) Dependents(id NodeID) []NodeID {
	var res []NodeID
	for _, nid := range g.order {
		for _, dep := range g.nodes[nid].DependsOn {
			if dep == id {
				res = append(res, nid)
				break
			}
		}
	}
	return res
}

// TransitiveDependents returns every node that directly or indirectly
// depends on id.
func (g *Graph) TransitiveDependents(id NodeID) []NodeID {
	seen := map[NodeID]bool{id: true}
	queue := []NodeID{id}
	var res []NodeID
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dep := range g.Dependents(current) {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			res = append(res, dep)
			queue = append(queue, dep)
		}
	}
	return res
}

// Validate checks that every dependency exists and that the graph has no
// cycle.
func (g *Graph) Validate() error {
	for _, id := range g.order {
		for _, dep := range g.nodes[id].DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				return fmt.Errorf("node %q depends on unknown node %q", id, dep)
			}
			if dep == id {
				return fmt.Errorf("node %q depends on itself", id)
			}
		}
	}
	if cycle := g.findCycle(); cycle != nil {
		parts := make([]string, len(cycle))
		for i, id := range cycle {
			parts[i] = string(id)
		}
		return fmt.Errorf("dependency cycle: %s", strings.Join(parts, " -> "))
	}
	return nil
}

func (g *Graph) findCycle() []NodeID {
	const (
		unvisited = iota
		visiting
		done
	)
	marks := make(map[NodeID]int, len(g.order))
	var stack []NodeID

	var visit func(id NodeID) []NodeID
	visit = func(id NodeID) []NodeID {
		marks[id] = visiting
		stack = append(stack, id)
		for _, dep := range g.nodes[id].DependsOn {
			switch marks[dep] {
			case visiting:
				for i, sid := range stack {
					if sid == dep {
						return append(append([]NodeID(nil), stack[i:]...), dep)
					}
				}
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		marks[id] = done
		return nil
	}

	for _, id := range g.order {
		if marks[id] == unvisited {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// Levels groups the nodes into topological levels: every node of level i
// depends only on nodes of levels before i. Nodes inside a level keep
// insertion order.
func (g *Graph) Levels() ([][]NodeID, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	level := make(map[NodeID]int, len(g.order))
	var depth func(id NodeID) int
	depth = func(id NodeID) int {
		if l, ok := level[id]; ok {
			return l
		}
		l := 0
		for _, dep := range g.nodes[id].DependsOn {
			if d := depth(dep) + 1; d > l {
				l = d
			}
		}
		level[id] = l
		return l
	}

	var levels [][]NodeID
	for _, id := range g.order {
		l := depth(id)
		for len(levels) <= l {
			levels = append(levels, nil)
		}
		levels[l] = append(levels[l], id)
	}
	return levels, nil
}

// TopologicalSort returns all nodes so that dependencies come first.
func (g *Graph) TopologicalSort() ([]NodeID, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	out := make([]NodeID, 0, len(g.order))
	for _, l := range levels {
		out = append(out, l...)
	}
	return out, nil
}
