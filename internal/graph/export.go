package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quillforge/sprintscale/internal/model"
)

// Export builds the weighted dependency graph for a backlog: nodes map ids
// to their duration in days, edges are (dependency, dependent) pairs.
func Export(projectKey string, g *model.TaskGraph) model.GraphExport {
	nodes := make(map[string]float64, len(g.Tasks))
	for id, t := range g.Tasks {
		nodes[id] = t.Duration
	}
	edges := make([][2]string, len(g.Edges))
	copy(edges, g.Edges)
	return model.GraphExport{ProjectKey: projectKey, Nodes: nodes, Edges: edges}
}

// Format renders an export as deterministic sorted text for display and
// debugging. Nodes and edges are ordered by the numeric-suffix-aware key.
func Format(export model.GraphExport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dependency Graph for project %s\n\n", export.ProjectKey)

	b.WriteString("Nodes (duration in days):\n")
	ids := make([]string, 0, len(export.Nodes))
	for id := range export.Nodes {
		ids = append(ids, id)
	}
	SortKeys(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, " - %s: %.2f\n", id, export.Nodes[id])
	}

	b.WriteString("\nEdges (dependency -> issue):\n")
	if len(export.Edges) == 0 {
		b.WriteString(" - (no dependencies detected)\n")
		return b.String()
	}
	edges := make([][2]string, len(export.Edges))
	copy(edges, export.Edges)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return KeyLess(edges[i][0], edges[j][0])
		}
		return KeyLess(edges[i][1], edges[j][1])
	})
	for _, e := range edges {
		fmt.Fprintf(&b, " - %s -> %s\n", e[0], e[1])
	}
	return b.String()
}

// AncestorSubgraph restricts an export to target plus every ancestor of
// target, following reversed edges. Unknown targets yield a structured
// not-found error.
func AncestorSubgraph(export model.GraphExport, target string) (model.GraphExport, error) {
	if _, ok := export.Nodes[target]; !ok {
		return model.GraphExport{}, model.NewTaskNotFoundError("export", target)
	}

	parents := make(map[string][]string, len(export.Nodes))
	for _, e := range export.Edges {
		parents[e[1]] = append(parents[e[1]], e[0])
	}

	keep := map[string]bool{target: true}
	var dfs func(u string)
	dfs = func(u string) {
		for _, p := range parents[u] {
			if !keep[p] {
				keep[p] = true
				dfs(p)
			}
		}
	}
	dfs(target)

	out := model.GraphExport{
		ProjectKey: export.ProjectKey,
		Nodes:      make(map[string]float64, len(keep)),
	}
	for id := range keep {
		out.Nodes[id] = export.Nodes[id]
	}
	for _, e := range export.Edges {
		if keep[e[0]] && keep[e[1]] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out, nil
}
