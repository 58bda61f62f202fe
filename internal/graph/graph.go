// Package graph normalizes raw tracker records into the engine's task-graph
// representation and provides the DAG utilities every scheduler builds on:
// cycle detection, topological ordering and ancestor extraction.
package graph

import (
	"sort"
	"strconv"
	"strings"

	"github.com/quillforge/sprintscale/internal/model"
)

// secondsPerDay converts tracker time estimates (seconds) to working days,
// assuming 8 working hours per day.
const secondsPerDay = 8 * 60 * 60

// Duration derives a task duration in days from a raw record. Priority:
// story points (used directly, 1 SP = 1 day) -> aggregate time estimate ->
// per-item time estimate -> default 1.0. Never negative.
func Duration(issue model.RawIssue) float64 {
	if issue.StoryPoints != nil {
		if sp := *issue.StoryPoints; sp >= 0 {
			return sp
		}
		return 0
	}
	if issue.AggregateEstimateSeconds > 0 {
		return float64(issue.AggregateEstimateSeconds) / secondsPerDay
	}
	if issue.OriginalEstimateSeconds > 0 {
		return float64(issue.OriginalEstimateSeconds) / secondsPerDay
	}
	return 1.0
}

// Dependencies extracts the "is blocked by" links from a raw record,
// keeping only keys in present and dropping self-references. Link types
// other than blocks/dependency/depends (or an inward description mentioning
// "blocked") are not precedence edges.
func Dependencies(issue model.RawIssue, present map[string]bool) []string {
	var deps []string
	seen := make(map[string]bool)
	for _, link := range issue.Links {
		if link.InwardIssue == "" || link.InwardIssue == issue.Key {
			continue
		}
		typeName := strings.ToLower(link.TypeName)
		inward := strings.ToLower(link.InwardDesc)
		blocked := strings.Contains(inward, "blocked") ||
			typeName == "blocks" || typeName == "dependency" || typeName == "depends"
		if !blocked {
			continue
		}
		if present != nil && !present[link.InwardIssue] {
			continue
		}
		if !seen[link.InwardIssue] {
			seen[link.InwardIssue] = true
			deps = append(deps, link.InwardIssue)
		}
	}
	return deps
}

// Build normalizes raw records into a TaskGraph. Records without a key are
// skipped; dependencies are restricted to keys present in the input.
func Build(issues []model.RawIssue) *model.TaskGraph {
	present := make(map[string]bool, len(issues))
	for _, iss := range issues {
		if iss.Key != "" {
			present[iss.Key] = true
		}
	}

	g := &model.TaskGraph{Tasks: make(map[string]*model.TaskNode, len(issues))}
	for _, iss := range issues {
		if iss.Key == "" {
			continue
		}
		if _, dup := g.Tasks[iss.Key]; dup {
			continue
		}
		dur := Duration(iss)
		deps := Dependencies(iss, present)
		g.Tasks[iss.Key] = &model.TaskNode{
			ID:           iss.Key,
			Summary:      iss.Summary,
			Owner:        iss.Owner,
			Duration:     dur,
			DurationDays: model.WholeDays(dur),
			StoryPoints:  iss.StoryPoints,
			Done:         iss.Done,
			Dependencies: deps,
		}
		g.Order = append(g.Order, iss.Key)
		for _, d := range deps {
			g.Edges = append(g.Edges, [2]string{d, iss.Key})
		}
	}
	return g
}

// KeyNumber returns the numeric suffix of an issue key like "PROJ-123",
// or 0 when there is none. Used as the primary deterministic tie-break.
func KeyNumber(id string) int {
	i := strings.LastIndex(id, "-")
	if i < 0 || i == len(id)-1 {
		return 0
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return 0
	}
	return n
}

// KeyLess orders ids by numeric suffix, then lexically.
func KeyLess(a, b string) bool {
	na, nb := KeyNumber(a), KeyNumber(b)
	if na != nb {
		return na < nb
	}
	return a < b
}

// SortKeys sorts ids in place by the deterministic tie-break key.
func SortKeys(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return KeyLess(ids[i], ids[j]) })
}

// DetectCycles runs a three-color DFS over the dependency adjacency and
// returns every cycle found as an id path of the form [T, U, T]. An empty
// result means the graph is acyclic. It never errors; callers branch.
func DetectCycles(g *model.TaskGraph) [][]string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.Tasks))
	var stack []string
	var cycles [][]string

	var dfs func(u string)
	dfs = func(u string) {
		switch color[u] {
		case gray:
			// Back-edge: the cycle is the stack slice from u's first
			// occurrence back to u.
			for i, id := range stack {
				if id == u {
					cycle := append(append([]string{}, stack[i:]...), u)
					cycles = append(cycles, cycle)
					break
				}
			}
			return
		case black:
			return
		}
		color[u] = gray
		stack = append(stack, u)
		for _, v := range g.Tasks[u].Dependencies {
			if _, ok := g.Tasks[v]; ok {
				dfs(v)
			}
		}
		stack = stack[:len(stack)-1]
		color[u] = black
	}

	ids := append([]string{}, g.Order...)
	SortKeys(ids)
	for _, id := range ids {
		if color[id] == white {
			dfs(id)
		}
	}
	return cycles
}

// TopoOrder produces a dependency-consistent linear order via Kahn's
// algorithm, tie-broken by the deterministic key. If a cycle prevents a
// full ordering it falls back to the input order and reports degraded=true;
// the PERT/RCPSP passes tolerate this instead of hard-failing, while the
// ETA estimator rejects cycles up front.
func TopoOrder(g *model.TaskGraph) (order []string, degraded bool) {
	indeg := make(map[string]int, len(g.Tasks))
	for _, id := range g.Order {
		indeg[id] = 0
	}
	succ := g.Successors()
	for _, id := range g.Order {
		for _, dep := range g.Tasks[id].Dependencies {
			if _, ok := g.Tasks[dep]; ok {
				indeg[id]++
			}
		}
	}

	var queue []string
	for _, id := range g.Order {
		if indeg[id] == 0 {
			queue = append(queue, id)
		}
	}
	SortKeys(queue)

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		order = append(order, u)

		var newlyReady []string
		for _, v := range succ[u] {
			indeg[v]--
			if indeg[v] == 0 {
				newlyReady = append(newlyReady, v)
			}
		}
		SortKeys(newlyReady)
		queue = append(queue, newlyReady...)
	}

	if len(order) != len(g.Tasks) {
		return append([]string{}, g.Order...), true
	}
	return order, false
}

// Ancestors collects every task that can reach target through dependency
// edges, i.e. the transitive blockers of target.
func Ancestors(g *model.TaskGraph, target string) map[string]bool {
	anc := make(map[string]bool)
	var dfs func(u string)
	dfs = func(u string) {
		node, ok := g.Tasks[u]
		if !ok {
			return
		}
		for _, p := range node.Dependencies {
			if _, present := g.Tasks[p]; present && !anc[p] {
				anc[p] = true
				dfs(p)
			}
		}
	}
	dfs(target)
	return anc
}
