package graph

import (
	"reflect"
	"testing"

	"github.com/quillforge/sprintscale/internal/model"
)

func fp(v float64) *float64 { return &v }

func blockedBy(keys ...string) []model.IssueLink {
	links := make([]model.IssueLink, 0, len(keys))
	for _, k := range keys {
		links = append(links, model.IssueLink{
			TypeName:    "Blocks",
			InwardDesc:  "is blocked by",
			InwardIssue: k,
		})
	}
	return links
}

func TestDurationPriority(t *testing.T) {
	tests := []struct {
		name  string
		issue model.RawIssue
		want  float64
	}{
		{"story points win", model.RawIssue{Key: "A-1", StoryPoints: fp(3), AggregateEstimateSeconds: 8 * 3600}, 3},
		{"zero story points used", model.RawIssue{Key: "A-2", StoryPoints: fp(0), OriginalEstimateSeconds: 8 * 3600}, 0},
		{"negative story points clamp", model.RawIssue{Key: "A-3", StoryPoints: fp(-2)}, 0},
		{"aggregate estimate", model.RawIssue{Key: "A-4", AggregateEstimateSeconds: 4 * 3600}, 0.5},
		{"original estimate", model.RawIssue{Key: "A-5", OriginalEstimateSeconds: 16 * 3600}, 2},
		{"default", model.RawIssue{Key: "A-6"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Duration(tt.issue); got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDependenciesLinkSemantics(t *testing.T) {
	present := map[string]bool{"B-1": true, "B-2": true, "B-3": true}
	issue := model.RawIssue{
		Key: "B-3",
		Links: []model.IssueLink{
			{TypeName: "Blocks", InwardDesc: "is blocked by", InwardIssue: "B-1"},
			{TypeName: "Relates", InwardDesc: "relates to", InwardIssue: "B-2"},
			{TypeName: "Dependency", InwardIssue: "B-2"},
			{TypeName: "Blocks", InwardDesc: "is blocked by", InwardIssue: "B-1"}, // duplicate
			{TypeName: "Blocks", InwardDesc: "is blocked by", InwardIssue: "B-3"}, // self
			{TypeName: "Blocks", InwardDesc: "is blocked by", InwardIssue: "B-9"}, // absent
		},
	}
	got := Dependencies(issue, present)
	want := []string{"B-1", "B-2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dependencies() = %v, want %v", got, want)
	}
}

func TestBuildSkipsEmptyAndDuplicateKeys(t *testing.T) {
	g := Build([]model.RawIssue{
		{Key: "C-1", StoryPoints: fp(2)},
		{Key: ""},
		{Key: "C-1", StoryPoints: fp(9)},
		{Key: "C-2", Links: blockedBy("C-1")},
	})
	if len(g.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(g.Tasks))
	}
	if g.Tasks["C-1"].Duration != 2 {
		t.Errorf("duplicate key should keep first record, got duration %v", g.Tasks["C-1"].Duration)
	}
	if !reflect.DeepEqual(g.Tasks["C-2"].Dependencies, []string{"C-1"}) {
		t.Errorf("C-2 dependencies = %v", g.Tasks["C-2"].Dependencies)
	}
	if !reflect.DeepEqual(g.Edges, [][2]string{{"C-1", "C-2"}}) {
		t.Errorf("edges = %v", g.Edges)
	}
}

func TestKeyOrdering(t *testing.T) {
	ids := []string{"P-10", "P-2", "Q-1", "P-1", "noNumber"}
	SortKeys(ids)
	want := []string{"noNumber", "P-1", "Q-1", "P-2", "P-10"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("SortKeys() = %v, want %v", ids, want)
	}
}

func TestDetectCyclesTwoNode(t *testing.T) {
	g := Build([]model.RawIssue{
		{Key: "T-1", Links: blockedBy("T-2")},
		{Key: "T-2", Links: blockedBy("T-1")},
	})
	cycles := DetectCycles(g)
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d: %v", len(cycles), cycles)
	}
	want := []string{"T-1", "T-2", "T-1"}
	if !reflect.DeepEqual(cycles[0], want) {
		t.Errorf("cycle = %v, want %v", cycles[0], want)
	}
}

func TestDetectCyclesAcyclic(t *testing.T) {
	g := Build([]model.RawIssue{
		{Key: "T-1"},
		{Key: "T-2", Links: blockedBy("T-1")},
		{Key: "T-3", Links: blockedBy("T-1", "T-2")},
	})
	if cycles := DetectCycles(g); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestTopoOrderDeterministic(t *testing.T) {
	issues := []model.RawIssue{
		{Key: "D-3", Links: blockedBy("D-1")},
		{Key: "D-2", Links: blockedBy("D-1")},
		{Key: "D-1"},
		{Key: "D-10", Links: blockedBy("D-2", "D-3")},
	}
	g := Build(issues)
	order, degraded := TopoOrder(g)
	if degraded {
		t.Fatal("unexpected degraded order for acyclic graph")
	}
	want := []string{"D-1", "D-2", "D-3", "D-10"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("TopoOrder() = %v, want %v", order, want)
	}

	// Same graph, same order, every time.
	for i := 0; i < 10; i++ {
		again, _ := TopoOrder(g)
		if !reflect.DeepEqual(again, order) {
			t.Fatalf("order not deterministic: %v vs %v", again, order)
		}
	}
}

func TestTopoOrderDegradesOnCycle(t *testing.T) {
	g := Build([]model.RawIssue{
		{Key: "T-1", Links: blockedBy("T-2")},
		{Key: "T-2", Links: blockedBy("T-1")},
		{Key: "T-3"},
	})
	order, degraded := TopoOrder(g)
	if !degraded {
		t.Fatal("expected degraded order")
	}
	if !reflect.DeepEqual(order, g.Order) {
		t.Errorf("degraded order should be input order, got %v", order)
	}
}

func TestAncestors(t *testing.T) {
	g := Build([]model.RawIssue{
		{Key: "A-1"},
		{Key: "A-2", Links: blockedBy("A-1")},
		{Key: "A-3", Links: blockedBy("A-2")},
		{Key: "A-4"},
	})
	anc := Ancestors(g, "A-3")
	if !anc["A-1"] || !anc["A-2"] {
		t.Errorf("missing transitive blockers: %v", anc)
	}
	if anc["A-3"] || anc["A-4"] {
		t.Errorf("unexpected ancestors: %v", anc)
	}
}
