// Package eta computes optimistic and pessimistic completion bounds for a
// single target issue. The optimistic bound is the resource-constrained
// forward pass specialized to the target; the pessimistic bound is an
// adversarial greedy heuristic that lets competing work delay the target's
// chain. It is an upper bound on plausible delay, not a proven worst case.
package eta

import (
	"fmt"
	"math"
	"sort"

	"github.com/quillforge/sprintscale/internal/graph"
	"github.com/quillforge/sprintscale/internal/model"
)

const pessimisticNotes = "Pessimistic schedule biases choices to delay the target by prioritizing non-ancestor ready tasks with longest durations at earliest start times."

// EstimateRange computes the ETA range for issueKey over the backlog graph.
// Durations are whole abstract days. If capacityHours maps an owner to a
// daily capacity below 8h, that owner's durations stretch by 8/capacity;
// tasks without an owner are keyed under "Unassigned".
// Cycles are rejected with a structured error carrying the cycle paths.
func EstimateRange(g *model.TaskGraph, issueKey string, capacityHours map[string]float64) (*model.EtaResult, error) {
	if _, ok := g.Tasks[issueKey]; !ok {
		return nil, model.NewTaskNotFoundError("eta", issueKey)
	}

	days := scaledDurations(g, capacityHours)

	if cycles := graph.DetectCycles(g); len(cycles) > 0 {
		return nil, model.NewCycleError("eta", cycles)
	}

	order, _ := graph.TopoOrder(g)

	// Optimistic pass: earliest start respecting dependencies and each
	// owner's single-task-at-a-time availability.
	es := make(map[string]int, len(order))
	ef := make(map[string]int, len(order))
	avail := make(map[string]int)
	for _, u := range order {
		depsFinish := 0
		for _, d := range g.Tasks[u].Dependencies {
			if ef[d] > depsFinish {
				depsFinish = ef[d]
			}
		}
		owner := g.Tasks[u].Owner
		start := depsFinish
		if avail[owner] > start {
			start = avail[owner]
		}
		es[u] = start
		ef[u] = start + days[u]
		avail[owner] = ef[u]
	}
	optimistic := ef[issueKey]
	critPath := backtrackCriticalPath(g, issueKey, ef)

	// Pessimistic pass: adversarial greedy over the ready set.
	ancestors := graph.Ancestors(g, issueKey)
	es2, ef2, schedOrder := pessimisticSchedule(g, days, ancestors)

	pessimistic := ef2[issueKey]
	if pessimistic < optimistic {
		pessimistic = optimistic
	}

	blockers := make([]string, 0, len(ancestors))
	for id := range ancestors {
		blockers = append(blockers, id)
	}
	graph.SortKeys(blockers)

	result := &model.EtaResult{
		Issue:                  issueKey,
		OptimisticDays:         optimistic,
		PessimisticDays:        pessimistic,
		OptimisticSchedule:     toSchedule(g, order, days, es, ef),
		PessimisticSchedule:    toSchedule(g, schedOrder, days, es2, ef2),
		OptimisticCriticalPath: critPath,
		PessimisticBlockers:    blockers,
		Notes:                  pessimisticNotes,
	}
	result.Summary = fmt.Sprintf("Expected completion for %s: %d-%d days (optimistic-pessimistic). See details.",
		issueKey, result.OptimisticDays, result.PessimisticDays)
	return result, nil
}

// scaledDurations returns the whole-day duration per task, stretched per
// owner capacity: ceil(days * 8/capacity), minimum 1. Ownerless tasks read
// their capacity from the "Unassigned" label, matching the calendar output.
func scaledDurations(g *model.TaskGraph, capacityHours map[string]float64) map[string]int {
	days := make(map[string]int, len(g.Tasks))
	for id, t := range g.Tasks {
		d := t.DurationDays
		if hours, ok := ownerCapacity(capacityHours, t.Owner); ok && hours > 0 {
			factor := 8.0 / hours
			d = int(math.Ceil(math.Max(1, float64(d)*factor)))
		}
		if d < 1 {
			d = 1
		}
		days[id] = d
	}
	return days
}

// ownerCapacity resolves the daily capacity for owner. An empty owner falls
// back to the unassigned label so callers can key either way.
func ownerCapacity(capacityHours map[string]float64, owner string) (float64, bool) {
	if hours, ok := capacityHours[owner]; ok {
		return hours, true
	}
	if owner == "" {
		hours, ok := capacityHours[model.UnassignedOwner]
		return hours, ok
	}
	return 0, false
}

// backtrackCriticalPath follows, from the target back to a root, the
// dependency with the maximum earliest finish at each step.
func backtrackCriticalPath(g *model.TaskGraph, target string, ef map[string]int) []string {
	var path []string
	visited := make(map[string]bool)
	cur := target
	for cur != "" && !visited[cur] {
		path = append(path, cur)
		visited[cur] = true
		deps := g.Tasks[cur].Dependencies
		if len(deps) == 0 {
			break
		}
		prev := deps[0]
		for _, d := range deps[1:] {
			if ef[d] > ef[prev] {
				prev = d
			}
		}
		cur = prev
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// pessimisticSchedule repeatedly schedules, among all ready tasks, one of
// those tied at the earliest feasible start, preferring non-ancestors of
// the target (noise work competing for the same owners) and, among those,
// the longest duration.
func pessimisticSchedule(g *model.TaskGraph, days map[string]int, ancestors map[string]bool) (es, ef map[string]int, schedOrder []string) {
	indeg := make(map[string]int, len(g.Tasks))
	for _, id := range g.Order {
		for _, dep := range g.Tasks[id].Dependencies {
			if _, ok := g.Tasks[dep]; ok {
				indeg[id]++
			}
		}
	}
	succ := g.Successors()

	depsFinish := make(map[string]int, len(g.Tasks))
	avail := make(map[string]int)
	es = make(map[string]int, len(g.Tasks))
	ef = make(map[string]int, len(g.Tasks))

	ready := make(map[string]bool)
	for _, id := range g.Order {
		if indeg[id] == 0 {
			ready[id] = true
		}
	}

	startOf := func(id string) int {
		start := depsFinish[id]
		if a := avail[g.Tasks[id].Owner]; a > start {
			start = a
		}
		return start
	}

	for len(ready) > 0 {
		candidates := make([]string, 0, len(ready))
		for id := range ready {
			candidates = append(candidates, id)
		}
		graph.SortKeys(candidates)

		minStart := startOf(candidates[0])
		for _, id := range candidates[1:] {
			if s := startOf(id); s < minStart {
				minStart = s
			}
		}
		var earliest, nonAnc []string
		for _, id := range candidates {
			if startOf(id) != minStart {
				continue
			}
			earliest = append(earliest, id)
			if !ancestors[id] {
				nonAnc = append(nonAnc, id)
			}
		}
		pool := earliest
		if len(nonAnc) > 0 {
			pool = nonAnc
		}
		chosen := pool[0]
		for _, id := range pool[1:] {
			if days[id] > days[chosen] {
				chosen = id
			}
		}

		start := startOf(chosen)
		es[chosen] = start
		ef[chosen] = start + days[chosen]
		avail[g.Tasks[chosen].Owner] = ef[chosen]
		delete(ready, chosen)
		schedOrder = append(schedOrder, chosen)

		for _, v := range succ[chosen] {
			indeg[v]--
			if ef[chosen] > depsFinish[v] {
				depsFinish[v] = ef[chosen]
			}
			if indeg[v] == 0 {
				ready[v] = true
			}
		}
	}
	return es, ef, schedOrder
}

func toSchedule(g *model.TaskGraph, order []string, days, es, ef map[string]int) []model.ScheduleEntry {
	out := make([]model.ScheduleEntry, 0, len(order))
	for _, id := range order {
		deps := append([]string{}, g.Tasks[id].Dependencies...)
		sort.Strings(deps)
		out = append(out, model.ScheduleEntry{
			ID:           id,
			Owner:        g.Tasks[id].Owner,
			Start:        es[id],
			Finish:       ef[id],
			Duration:     days[id],
			Dependencies: deps,
		})
	}
	return out
}
