package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/prequel/internal/ir"
)

// ScopeCycle reports scopes that are declared within each other.
//
// Unlike a cycle between ordinary functions, a within-cycle can never
// terminate: resolving any scope in it resolves itself again. Cycles are
// therefore errors.
type ScopeCycle struct {
	Model   string   `json:"model"`
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
}

// AnalyzeScopeCycles finds within-cycles among a model's scopes.
//
// The algorithm:
//  1. Build scope → within-scope dependency graph
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a cycle
//
// Nodes are visited in sorted order so the report is deterministic. A DAG
// returns an empty list.
func AnalyzeScopeCycles(spec ir.ModelSpec) []ScopeCycle {
	if len(spec.Scopes) == 0 {
		return []ScopeCycle{}
	}

	graph := buildDependencyGraph(spec.Scopes)
	sccs := tarjanSCC(graph)

	cycles := []ScopeCycle{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			cycles = append(cycles, cycleSCCToReport(spec.Name, scc, graph))
		}
	}
	return cycles
}

// dependencyGraph maps scope → scopes it is declared within.
type dependencyGraph map[string][]string

// buildDependencyGraph constructs the within graph. Edges to undeclared
// scopes are dropped; Validate reports those separately.
func buildDependencyGraph(scopes []ir.ScopeSpec) dependencyGraph {
	declared := make(map[string]bool, len(scopes))
	for _, sc := range scopes {
		declared[sc.Name] = true
	}

	graph := make(dependencyGraph, len(scopes))
	for _, sc := range scopes {
		if graph[sc.Name] == nil {
			graph[sc.Name] = []string{}
		}
		for _, w := range sc.Within {
			if declared[w] {
				graph[sc.Name] = append(graph[sc.Name], w)
			}
		}
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of scope names.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToReport converts an SCC to a ScopeCycle.
func cycleSCCToReport(model string, scc []string, graph dependencyGraph) ScopeCycle {
	if len(scc) == 1 {
		name := scc[0]
		return ScopeCycle{
			Model:   model,
			Path:    []string{name, name},
			Message: fmt.Sprintf("scope %s.%s is declared within itself", model, name),
		}
	}

	path := reconstructCyclePath(scc, graph)
	return ScopeCycle{
		Model:   model,
		Path:    path,
		Message: fmt.Sprintf("scope cycle in %s: %s", model, strings.Join(path, " → ")),
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Starts at the smallest name in the SCC, follows edges to other members,
// and stops on returning to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	for _, node := range scc {
		if node < start {
			start = node
		}
	}

	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
