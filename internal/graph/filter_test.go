package graph

import (
	"testing"

	"github.com/quillforge/sprintscale/internal/model"
)

func filterFixture() []model.RawIssue {
	return []model.RawIssue{
		{Key: "F-1", Owner: "alice", StoryPoints: fp(2)},
		{Key: "F-2", Owner: "bob", StoryPoints: fp(5)},
		{Key: "F-3", Owner: "alice", StoryPoints: fp(1), Done: true},
		{Key: "F-4", Owner: "alice", StoryPoints: fp(3), Links: blockedBy("F-1")},
	}
}

func TestFilterEmptyMatchesAll(t *testing.T) {
	issues := filterFixture()
	got, err := Filter(issues, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(issues) {
		t.Errorf("empty filter kept %d of %d", len(got), len(issues))
	}
}

func TestFilterExpressions(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"owner == 'alice'", []string{"F-1", "F-3", "F-4"}},
		{"owner == 'alice' && !done", []string{"F-1", "F-4"}},
		{"duration >= 3", []string{"F-2", "F-4"}},
		{"deps > 0", []string{"F-4"}},
	}
	for _, tt := range tests {
		got, err := Filter(filterFixture(), tt.expr)
		if err != nil {
			t.Fatalf("Filter(%q) error: %v", tt.expr, err)
		}
		if len(got) != len(tt.want) {
			t.Errorf("Filter(%q) kept %d, want %d", tt.expr, len(got), len(tt.want))
			continue
		}
		for i, iss := range got {
			if iss.Key != tt.want[i] {
				t.Errorf("Filter(%q)[%d] = %s, want %s", tt.expr, i, iss.Key, tt.want[i])
			}
		}
	}
}

func TestFilterErrors(t *testing.T) {
	if _, err := Filter(filterFixture(), "owner =="); model.CodeOf(err) != model.ErrCodeFilter {
		t.Errorf("malformed expression: got %v", err)
	}
	if _, err := Filter(filterFixture(), "duration + 1"); model.CodeOf(err) != model.ErrCodeValidation {
		t.Errorf("non-boolean result: got %v", err)
	}
}

func TestValidateFilter(t *testing.T) {
	if err := ValidateFilter("owner == 'alice'"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := ValidateFilter("owner &&"); err == nil {
		t.Error("invalid expression accepted")
	}
	if err := ValidateFilter(""); err != nil {
		t.Errorf("empty expression rejected: %v", err)
	}
}
