// Package dependency provides a small directed acyclic graph used to order
// the steps of composite workflows.
//
// Nodes are units of work and edges mean "must complete before". The graph
// keeps insertion order so that levels, dependents and sorts are
// deterministic.
//
// # Operations
//
// AddNode rejects duplicate IDs. Validate reports unknown dependencies and
// cycles. Levels groups nodes into topological levels: nodes of one level
// have no dependency on each other and may run concurrently.
// TransitiveDependents answers which nodes are affected when one fails.
//
// # Usage Example
//
//	g := dependency.New()
//	_ = g.AddNode(dependency.Node{ID: "stop-worker"})
//	_ = g.AddNode(dependency.Node{ID: "stop-topic:t1", DependsOn: []dependency.NodeID{"stop-worker"}})
//	_ = g.AddNode(dependency.Node{ID: "stop-topic:t2", DependsOn: []dependency.NodeID{"stop-worker"}})
//	_ = g.AddNode(dependency.Node{ID: "stop-broker", DependsOn: []dependency.NodeID{"stop-topic:t1", "stop-topic:t2"}})
//
//	levels, err := g.Levels()
//	// [[stop-worker] [stop-topic:t1 stop-topic:t2] [stop-broker]]
//
// The Graph is not thread-safe. Build it once, then read it from as many
// goroutines as needed.
package dependency
