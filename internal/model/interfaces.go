package model

import "context"

// IssueSource supplies the raw work-item records for a project's active
// backlog. Implementations own all upstream I/O (HTTP, auth, retries); the
// engine only consumes the returned slice.
type IssueSource interface {
	FetchBacklog(ctx context.Context, projectKey string) ([]RawIssue, error)
}

// Cache provides read-mostly storage for fetched backlogs so repeated
// questions about the same project do not re-hit the tracker. Implementations
// must hand out immutable snapshots; cached slices are never mutated after
// handoff to a scheduler.
type Cache interface {
	Get(ctx context.Context, key string) ([]RawIssue, error)
	Set(ctx context.Context, key string, issues []RawIssue) error
}
