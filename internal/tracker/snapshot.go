package tracker

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quillforge/sprintscale/internal/graph"
	"github.com/quillforge/sprintscale/internal/model"
)

// SnapshotFile is an offline backlog snapshot: the raw records of one
// project's active backlog, serialized to YAML for demos and tests.
type SnapshotFile struct {
	ProjectKey  string                 `yaml:"project_key"`
	Description string                 `yaml:"description,omitempty"`
	Issues      []model.RawIssue `yaml:"issues"`
}

// LoadSnapshot parses a YAML backlog snapshot from disk.
func LoadSnapshot(path string) (*SnapshotFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer f.Close()
	var snap SnapshotFile
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot YAML: %w", err)
	}
	return &snap, nil
}

// Validate checks the snapshot for duplicate keys, dependencies on missing
// issues, and dependency cycles. Cycles are reported with their paths so a
// caller can surface them unchanged.
func (s *SnapshotFile) Validate() error {
	seen := make(map[string]bool, len(s.Issues))
	for _, iss := range s.Issues {
		if iss.Key == "" {
			return model.NewValidationError("snapshot", "issue without a key", nil)
		}
		if seen[iss.Key] {
			return model.NewValidationError("snapshot",
				fmt.Sprintf("duplicate issue key: %s", iss.Key), nil)
		}
		seen[iss.Key] = true
	}
	for _, iss := range s.Issues {
		for _, dep := range graph.Dependencies(iss, nil) {
			if !seen[dep] {
				return model.NewValidationError("snapshot",
					fmt.Sprintf("issue '%s' is blocked by missing issue '%s'", iss.Key, dep), nil)
			}
		}
	}
	if cycles := graph.DetectCycles(graph.Build(s.Issues)); len(cycles) > 0 {
		return model.NewCycleError("snapshot", cycles)
	}
	return nil
}

// SnapshotSource serves one or more validated snapshots as an IssueSource.
type SnapshotSource struct {
	backlogs map[string][]model.RawIssue
}

// NewSnapshotSource builds a source from snapshots, keyed by project.
func NewSnapshotSource(snaps ...*SnapshotFile) *SnapshotSource {
	src := &SnapshotSource{backlogs: make(map[string][]model.RawIssue, len(snaps))}
	for _, s := range snaps {
		src.backlogs[s.ProjectKey] = s.Issues
	}
	return src
}

// FetchBacklog implements model.IssueSource.
func (s *SnapshotSource) FetchBacklog(ctx context.Context, projectKey string) ([]model.RawIssue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	issues, ok := s.backlogs[projectKey]
	if !ok {
		return nil, model.NewProjectSyncError(projectKey,
			fmt.Errorf("no snapshot loaded for project '%s'", projectKey))
	}
	return issues, nil
}

// ParseISODate accepts tracker dates: bare "2006-01-02" or full RFC 3339,
// including a trailing Z. Returns nil for empty or unparseable input.
func ParseISODate(s string) *time.Time {
	if s == "" {
		return nil
	}
	if len(s) == 10 {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return &t
		}
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}
	return nil
}

// SprintWindow infers the sprint date range from the raw records: the
// earliest start and latest end found on any record's sprint references.
func SprintWindow(issues []model.RawIssue) model.SprintWindow {
	var window model.SprintWindow
	for _, iss := range issues {
		for _, s := range iss.Sprints {
			if start := ParseISODate(s.StartDate); start != nil {
				if window.Start == nil || start.Before(*window.Start) {
					window.Start = start
				}
			}
			if end := ParseISODate(s.EndDate); end != nil {
				if window.End == nil || end.After(*window.End) {
					window.End = end
				}
			}
		}
	}
	return window
}
