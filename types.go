package sprintscale

import "github.com/quillforge/sprintscale/internal/model"

// The engine's data model lives in internal/model so the scheduling
// packages can share it without importing the facade; these aliases are the
// public surface.

// IssueLink is one relation attached to an upstream work item. Only links
// whose semantics mean "is blocked by" become dependency edges.
type IssueLink = model.IssueLink

// SprintRef is the sprint/iteration metadata an upstream record may carry.
type SprintRef = model.SprintRef

// RawIssue is one normalized upstream work-item record, the input boundary
// of the engine.
type RawIssue = model.RawIssue

// TaskNode is one unit of work inside a TaskGraph.
type TaskNode = model.TaskNode

// TaskGraph is the engine's internal task-graph representation. It is built
// once per computation and never mutated after handoff to a scheduler.
type TaskGraph = model.TaskGraph

// ScheduleEntry is one task's placement on an abstract whole-day timeline.
type ScheduleEntry = model.ScheduleEntry

// DateScheduleEntry is one task's placement on the real calendar.
type DateScheduleEntry = model.DateScheduleEntry

// SlackTolerance is the absolute tolerance under which a task counts as
// zero-slack, i.e. on the critical path.
const SlackTolerance = model.SlackTolerance

// CpaTask is the per-task output of the critical-path computation.
type CpaTask = model.CpaTask

// CpaResult is the full critical-path analysis for a backlog.
type CpaResult = model.CpaResult

// CpaSummary is the condensed view of a CpaResult.
type CpaSummary = model.CpaSummary

// EtaResult carries the optimistic/pessimistic completion bounds for a
// single target issue.
type EtaResult = model.EtaResult

// CalendarParams are the caller-supplied calendar inputs for date-mapped
// scheduling.
type CalendarParams = model.CalendarParams

// SprintWindow is the sprint date range inferred from the raw records.
type SprintWindow = model.SprintWindow

// TimelineResult is the sequential-per-owner calendar layout of a backlog.
type TimelineResult = model.TimelineResult

// DependencySchedule is the dependency+resource-aware calendar schedule.
type DependencySchedule = model.DependencySchedule

// RemovalImpact is the answer to "what if this issue were dropped".
type RemovalImpact = model.RemovalImpact

// IssueCompletion is the single-issue calendar estimate.
type IssueCompletion = model.IssueCompletion

// GraphExport is the weighted dependency graph in plain structured form.
type GraphExport = model.GraphExport

// Session remembers the last project/sprint a caller worked with so the
// conversational layer can avoid re-asking.
type Session = model.Session

// WholeDays converts a fractional-day duration to whole days: ceiling,
// minimum 1.
func WholeDays(d float64) int {
	return model.WholeDays(d)
}
