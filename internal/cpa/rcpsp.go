package cpa

import (
	"container/heap"
	"math"
	"sort"

	"github.com/quillforge/sprintscale/internal/graph"
	"github.com/quillforge/sprintscale/internal/model"
)

// finishEvent is one entry in the simulation's event queue: a task and the
// abstract time at which it finishes.
type finishEvent struct {
	finish float64
	id     string
}

// eventQueue is a min-heap of finish events ordered by finish time, then by
// the deterministic id key so runs are reproducible.
type eventQueue []finishEvent

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].finish != q[j].finish {
		return q[i].finish < q[j].finish
	}
	return graph.KeyLess(q[i].id, q[j].id)
}
func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x interface{}) { *q = append(*q, x.(finishEvent)) }
func (q *eventQueue) Pop() interface{} {
	old := *q
	n := len(old)
	ev := old[n-1]
	*q = old[:n-1]
	return ev
}

// backwardConvergencePasses is how many per-owner tightening sweeps the
// approximate backward pass runs; three converges in practice.
const backwardConvergencePasses = 3

// resourceConstrained extends the plain PERT numbers with single-capacity-
// per-owner enforcement. The forward pass is a discrete-event simulation
// over the finish-time heap; the backward pass initializes from precedence
// and then tightens each owner's tasks so they do not overlap backwards
// either.
func resourceConstrained(g *model.TaskGraph, order []string, succ map[string][]string) times {
	t := newTimes(len(order))

	indeg := make(map[string]int, len(order))
	depsFinish := make(map[string]float64, len(order))
	for _, u := range order {
		for _, p := range g.Tasks[u].Dependencies {
			if _, ok := g.Tasks[p]; ok {
				indeg[u]++
			}
		}
	}

	// nextFree tracks the earliest time each owner becomes available.
	// The empty owner means unassigned; contention is still modeled as a
	// single lane there, matching the upstream convention.
	nextFree := make(map[string]float64)
	events := &eventQueue{}
	heap.Init(events)

	schedule := func(u string, now float64) {
		owner := g.Tasks[u].Owner
		start := math.Max(now, math.Max(nextFree[owner], depsFinish[u]))
		t.ES[u] = start
		t.EF[u] = start + duration(g, u)
		nextFree[owner] = t.EF[u]
		heap.Push(events, finishEvent{finish: t.EF[u], id: u})
	}

	var ready []string
	for _, u := range order {
		if indeg[u] == 0 {
			ready = append(ready, u)
		}
	}
	graph.SortKeys(ready)
	for _, u := range ready {
		schedule(u, 0)
	}

	for events.Len() > 0 {
		ev := heap.Pop(events).(finishEvent)
		now := ev.finish
		for _, v := range succ[ev.id] {
			if ev.finish > depsFinish[v] {
				depsFinish[v] = ev.finish
			}
			indeg[v]--
			if indeg[v] == 0 {
				schedule(v, now)
			}
		}
	}

	for _, u := range order {
		if t.EF[u] > t.Makespan {
			t.Makespan = t.EF[u]
		}
	}

	// Backward pass, approximate. Start from precedence bounds alone.
	for _, u := range order {
		t.LF[u] = t.Makespan
		t.LS[u] = t.Makespan - duration(g, u)
	}
	for i := len(order) - 1; i >= 0; i-- {
		u := order[i]
		if next := succ[u]; len(next) > 0 {
			lf := math.Inf(1)
			for _, v := range next {
				if t.LS[v] < lf {
					lf = t.LS[v]
				}
			}
			t.LF[u] = lf
			t.LS[u] = lf - duration(g, u)
		}
	}

	// Tighten per owner: walking that owner's tasks from latest-finishing
	// to earliest, no two may overlap backwards.
	byOwner := make(map[string][]string)
	for _, u := range order {
		owner := g.Tasks[u].Owner
		byOwner[owner] = append(byOwner[owner], u)
	}
	for pass := 0; pass < backwardConvergencePasses; pass++ {
		for _, tasks := range byOwner {
			sorted := append([]string{}, tasks...)
			sort.Slice(sorted, func(i, j int) bool {
				if t.LF[sorted[i]] != t.LF[sorted[j]] {
					return t.LF[sorted[i]] > t.LF[sorted[j]]
				}
				return t.EF[sorted[i]] > t.EF[sorted[j]]
			})
			latestFree := t.Makespan
			for _, u := range sorted {
				newLF := math.Min(latestFree, t.LF[u])
				newLS := newLF - duration(g, u)
				if newLF < t.LF[u] || newLS < t.LS[u] {
					t.LF[u] = newLF
					t.LS[u] = newLS
				}
				latestFree = t.LS[u]
			}
		}
	}

	for _, u := range order {
		t.Slack[u] = math.Max(0, t.LS[u]-t.ES[u])
	}
	return t
}
