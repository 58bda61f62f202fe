package sprintscale

import "github.com/quillforge/sprintscale/internal/model"

// IssueSource supplies the raw work-item records for a project's active
// backlog. Implementations own all upstream I/O (HTTP, auth, retries); the
// engine only consumes the returned slice.
type IssueSource = model.IssueSource

// Cache provides read-mostly storage for fetched backlogs so repeated
// questions about the same project do not re-hit the tracker. Implementations
// must hand out immutable snapshots.
type Cache = model.Cache
