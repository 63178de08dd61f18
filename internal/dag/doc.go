// Package dag holds the pure module dependency graph: nodes are module names,
// an edge from A to B means B requires A. It detects cycles and produces a
// stable topological order where insertion order breaks ties, so a graph
// built from the manifest keeps the manifest order wherever dependencies
// allow it.
package dag
