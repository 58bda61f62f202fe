// Package cpa implements the critical-path computation: a plain PERT
// forward/backward pass and the resource-constrained extension (RCPSP)
// enforcing single capacity per owner. Both sets of numbers are reported
// side by side so callers can see the cost of contention.
package cpa

import (
	"math"

	"github.com/quillforge/sprintscale/internal/graph"
	"github.com/quillforge/sprintscale/internal/model"
)

// times holds one complete set of scheduling numbers for every task.
type times struct {
	ES, EF, LS, LF, Slack map[string]float64
	Makespan              float64
}

func newTimes(n int) times {
	return times{
		ES:    make(map[string]float64, n),
		EF:    make(map[string]float64, n),
		LS:    make(map[string]float64, n),
		LF:    make(map[string]float64, n),
		Slack: make(map[string]float64, n),
	}
}

func duration(g *model.TaskGraph, id string) float64 {
	return math.Max(0, g.Tasks[id].Duration)
}

// plainPert runs the classical forward/backward pass over the DAG, ignoring
// resource contention entirely. It is the theoretical lower bound.
func plainPert(g *model.TaskGraph, order []string, succ map[string][]string) times {
	t := newTimes(len(order))

	// Forward pass: ES = max EF of predecessors, EF = ES + duration.
	for _, u := range order {
		es := 0.0
		for _, p := range g.Tasks[u].Dependencies {
			if ef, ok := t.EF[p]; ok && ef > es {
				es = ef
			}
		}
		t.ES[u] = es
		t.EF[u] = es + duration(g, u)
	}
	for _, u := range order {
		if t.EF[u] > t.Makespan {
			t.Makespan = t.EF[u]
		}
	}

	// Backward pass in reverse topological order: LF = min LS of
	// successors, defaulting to the project duration for sinks.
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

	for _, u := range order {
		t.Slack[u] = math.Max(0, t.LS[u]-t.ES[u])
	}
	return t
}

// Analyze runs the full critical-path analysis for a backlog graph. A cycle
// does not hard-fail here: the topological orderer degrades to input order
// and the result is flagged so callers can treat it as suspect.
func Analyze(g *model.TaskGraph) *model.CpaResult {
	order, degraded := graph.TopoOrder(g)
	succ := g.Successors()

	plain := plainPert(g, order, succ)
	constrained := resourceConstrained(g, order, succ)

	result := &model.CpaResult{
		ProjectDuration: constrained.Makespan,
		Degraded:        degraded,
	}
	for _, u := range order {
		critical := math.Abs(constrained.Slack[u]) < model.SlackTolerance
		result.Tasks = append(result.Tasks, model.CpaTask{
			ID:         u,
			Owner:      g.Tasks[u].Owner,
			Duration:   g.Tasks[u].Duration,
			ES:         constrained.ES[u],
			EF:         constrained.EF[u],
			LS:         constrained.LS[u],
			LF:         constrained.LF[u],
			Slack:      constrained.Slack[u],
			PlainES:    plain.ES[u],
			PlainEF:    plain.EF[u],
			PlainLS:    plain.LS[u],
			PlainLF:    plain.LF[u],
			PlainSlack: plain.Slack[u],
			Critical:   critical,
		})
		if critical {
			result.CriticalPath = append(result.CriticalPath, u)
		}
	}
	return result
}
