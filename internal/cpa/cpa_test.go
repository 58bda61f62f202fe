package cpa

import (
	"math"
	"reflect"
	"testing"

	"github.com/quillforge/sprintscale/internal/model"
)

func testGraph(nodes ...*model.TaskNode) *model.TaskGraph {
	g := &model.TaskGraph{Tasks: make(map[string]*model.TaskNode, len(nodes))}
	for _, n := range nodes {
		g.Tasks[n.ID] = n
		g.Order = append(g.Order, n.ID)
		for _, d := range n.Dependencies {
			g.Edges = append(g.Edges, [2]string{d, n.ID})
		}
	}
	return g
}

func task(id, owner string, dur float64, deps ...string) *model.TaskNode {
	return &model.TaskNode{
		ID:           id,
		Owner:        owner,
		Duration:     dur,
		DurationDays: model.WholeDays(dur),
		Dependencies: deps,
	}
}

// A three-task chain with distinct owners has no contention: the constrained
// numbers equal plain PERT, every task is critical and the project takes the
// sum of the durations.
func TestAnalyzeChain(t *testing.T) {
	g := testGraph(
		task("A-1", "alice", 2),
		task("A-2", "bob", 3, "A-1"),
		task("A-3", "carol", 1, "A-2"),
	)
	result := Analyze(g)

	if result.ProjectDuration != 6 {
		t.Errorf("project duration = %v, want 6", result.ProjectDuration)
	}
	if result.Degraded {
		t.Error("unexpected degraded result")
	}
	if !reflect.DeepEqual(result.CriticalPath, []string{"A-1", "A-2", "A-3"}) {
		t.Errorf("critical path = %v", result.CriticalPath)
	}
	for _, tk := range result.Tasks {
		if !tk.Critical {
			t.Errorf("task %s should be critical (slack %v)", tk.ID, tk.Slack)
		}
		if tk.ES != tk.PlainES || tk.EF != tk.PlainEF {
			t.Errorf("task %s: contention-free chain should match plain PERT (%v/%v vs %v/%v)",
				tk.ID, tk.ES, tk.EF, tk.PlainES, tk.PlainEF)
		}
	}

	b, ok := result.TaskByID("A-2")
	if !ok {
		t.Fatal("A-2 missing from result")
	}
	if b.ES != 2 || b.EF != 5 {
		t.Errorf("A-2 ES/EF = %v/%v, want 2/5", b.ES, b.EF)
	}
}

// Two independent equal-length tasks sharing an owner serialize: the
// constrained makespan is the sum while plain PERT still claims they run in
// parallel.
func TestAnalyzeOwnerContention(t *testing.T) {
	g := testGraph(
		task("B-1", "alice", 3),
		task("B-2", "alice", 3),
	)
	result := Analyze(g)

	if result.ProjectDuration != 6 {
		t.Errorf("constrained duration = %v, want 6", result.ProjectDuration)
	}
	for _, tk := range result.Tasks {
		if tk.PlainEF != 3 {
			t.Errorf("task %s plain EF = %v, want 3", tk.ID, tk.PlainEF)
		}
	}

	first, _ := result.TaskByID("B-1")
	second, _ := result.TaskByID("B-2")
	if first.ES != 0 || first.EF != 3 {
		t.Errorf("B-1 ES/EF = %v/%v, want 0/3", first.ES, first.EF)
	}
	if second.ES != 3 || second.EF != 6 {
		t.Errorf("B-2 ES/EF = %v/%v, want 3/6", second.ES, second.EF)
	}
}

// Structural properties that must hold for any acyclic input: starts respect
// dependencies, owners never run two tasks at once, slack is never negative,
// and at least one task is critical.
func TestAnalyzeInvariants(t *testing.T) {
	g := testGraph(
		task("C-1", "alice", 2),
		task("C-2", "bob", 4),
		task("C-3", "alice", 1, "C-1"),
		task("C-4", "bob", 2, "C-1", "C-2"),
		task("C-5", "alice", 3, "C-3", "C-4"),
		task("C-6", "carol", 2),
	)
	result := Analyze(g)

	byID := make(map[string]model.CpaTask, len(result.Tasks))
	for _, tk := range result.Tasks {
		byID[tk.ID] = tk
	}

	critical := 0
	for _, tk := range result.Tasks {
		if tk.Slack < 0 {
			t.Errorf("task %s has negative slack %v", tk.ID, tk.Slack)
		}
		if tk.Critical {
			critical++
		}
		for _, dep := range g.Tasks[tk.ID].Dependencies {
			if tk.ES < byID[dep].EF {
				t.Errorf("task %s starts at %v before dependency %s finishes at %v",
					tk.ID, tk.ES, dep, byID[dep].EF)
			}
		}
	}
	if critical == 0 {
		t.Error("no critical task found")
	}

	// No owner overlap: for tasks sharing an owner, intervals are disjoint.
	for _, a := range result.Tasks {
		for _, b := range result.Tasks {
			if a.ID >= b.ID || a.Owner != b.Owner {
				continue
			}
			if a.ES < b.EF && b.ES < a.EF {
				t.Errorf("owner %s runs %s [%v,%v) and %s [%v,%v) concurrently",
					a.Owner, a.ID, a.ES, a.EF, b.ID, b.ES, b.EF)
			}
		}
	}
}

func TestAnalyzeZeroDurationTask(t *testing.T) {
	g := testGraph(
		task("D-1", "alice", 0),
		task("D-2", "alice", 2, "D-1"),
	)
	result := Analyze(g)
	if result.ProjectDuration != 2 {
		t.Errorf("project duration = %v, want 2", result.ProjectDuration)
	}
	milestone, _ := result.TaskByID("D-1")
	if milestone.ES != 0 || milestone.EF != 0 {
		t.Errorf("zero-duration task ES/EF = %v/%v, want 0/0", milestone.ES, milestone.EF)
	}
}

func TestAnalyzeDegradedOnCycle(t *testing.T) {
	g := testGraph(
		task("E-1", "alice", 1, "E-2"),
		task("E-2", "alice", 1, "E-1"),
	)
	result := Analyze(g)
	if !result.Degraded {
		t.Error("cycle should mark the result degraded")
	}
}

func TestSlackAndFinishBoundsAccessors(t *testing.T) {
	g := testGraph(
		task("F-1", "alice", 2),
		task("F-2", "bob", 5),
		task("F-3", "alice", 1, "F-1"),
	)
	result := Analyze(g)

	slack, ok := result.SlackOf("F-1")
	if !ok {
		t.Fatal("F-1 missing")
	}
	// F-1 + F-3 take 3 against the 5-length F-2 branch.
	if math.Abs(slack-2) > model.SlackTolerance {
		t.Errorf("F-1 slack = %v, want 2", slack)
	}

	ef, lf, ok := result.FinishBounds("F-2")
	if !ok || ef != 5 || lf != 5 {
		t.Errorf("F-2 finish bounds = %v/%v (ok=%v), want 5/5", ef, lf, ok)
	}
	if _, _, ok := result.FinishBounds("F-99"); ok {
		t.Error("unknown id reported bounds")
	}
}

func TestSummarize(t *testing.T) {
	g := &model.TaskGraph{Tasks: map[string]*model.TaskNode{}}
	for i := 1; i <= 8; i++ {
		n := task("S-"+string(rune('0'+i)), "alice", 1)
		g.Tasks[n.ID] = n
		g.Order = append(g.Order, n.ID)
	}
	summary := Analyze(g).Summarize()
	if summary.TasksCount != 8 {
		t.Errorf("tasks count = %d, want 8", summary.TasksCount)
	}
	if len(summary.Sample) != 5 {
		t.Errorf("sample size = %d, want 5", len(summary.Sample))
	}
	if summary.ProjectDuration != 8 {
		t.Errorf("project duration = %v, want 8 (single owner)", summary.ProjectDuration)
	}
}
