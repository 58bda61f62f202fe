package model

import (
	"math"
	"time"
)

// UnassignedOwner is the display label used for tasks without an owner in
// per-owner groupings, holiday lookups and capacity maps.
const UnassignedOwner = "Unassigned"

// IssueLink is one relation attached to an upstream work item. Only links
// whose semantics mean "is blocked by" become dependency edges; everything
// else is ignored by the graph builder.
type IssueLink struct {
	TypeName    string `yaml:"type" json:"type"`
	InwardDesc  string `yaml:"inward_desc,omitempty" json:"inward_desc,omitempty"`
	InwardIssue string `yaml:"inward_issue,omitempty" json:"inward_issue,omitempty"`
}

// SprintRef is the sprint/iteration metadata an upstream record may carry.
// Dates are ISO strings exactly as delivered by the tracker.
type SprintRef struct {
	Name      string `yaml:"name,omitempty" json:"name,omitempty"`
	StartDate string `yaml:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate   string `yaml:"end_date,omitempty" json:"end_date,omitempty"`
}

// RawIssue is one normalized upstream work-item record, the input boundary
// of the engine. All fetching/authentication happens outside; the engine
// only ever sees slices of these.
type RawIssue struct {
	Key     string `yaml:"key" json:"key"`
	Summary string `yaml:"summary,omitempty" json:"summary,omitempty"`
	// Owner is the assignee display name; empty means unassigned.
	Owner string `yaml:"owner,omitempty" json:"owner,omitempty"`

	// Estimate fields, in priority order (see TaskGraph builder):
	// story points first, then aggregate seconds, then per-item seconds.
	StoryPoints              *float64 `yaml:"story_points,omitempty" json:"story_points,omitempty"`
	AggregateEstimateSeconds int64    `yaml:"aggregate_estimate_seconds,omitempty" json:"aggregate_estimate_seconds,omitempty"`
	OriginalEstimateSeconds  int64    `yaml:"original_estimate_seconds,omitempty" json:"original_estimate_seconds,omitempty"`

	Links   []IssueLink `yaml:"links,omitempty" json:"links,omitempty"`
	Sprints []SprintRef `yaml:"sprints,omitempty" json:"sprints,omitempty"`

	Status string `yaml:"status,omitempty" json:"status,omitempty"`
	Done   bool   `yaml:"done,omitempty" json:"done,omitempty"`

	// Metadata holds any upstream fields the engine has no mapping for.
	// The engine never reads it; it is carried through for callers.
	Metadata map[string]interface{} `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// TaskNode is one unit of work inside a TaskGraph.
type TaskNode struct {
	ID      string
	Summary string
	// Owner is the single resource that can execute the task; empty means
	// no resource contention is enforced for it.
	Owner string
	// Duration is the effort in fractional days, never negative.
	Duration float64
	// DurationDays is Duration rounded up to whole days, minimum 1.
	// Calendar and ETA scheduling operate on whole days.
	DurationDays int
	StoryPoints  *float64
	Done         bool
	// Dependencies are ids that must finish before this task may start,
	// restricted to ids present in the graph.
	Dependencies []string
}

// TaskGraph is the engine's internal task-graph representation. It is built
// once per computation and must not be mutated after handoff to a scheduler;
// every scheduler invocation owns its own instance.
type TaskGraph struct {
	Tasks map[string]*TaskNode
	// Edges lists (dependency, dependent) pairs for exporter use.
	Edges [][2]string
	// Order preserves the input ordering of ids. Topological ordering falls
	// back to it when a cycle prevents a full order.
	Order []string
}

// Successors builds the forward adjacency (dependency -> dependents).
func (g *TaskGraph) Successors() map[string][]string {
	succ := make(map[string][]string, len(g.Tasks))
	for _, id := range g.Order {
		for _, dep := range g.Tasks[id].Dependencies {
			if _, ok := g.Tasks[dep]; ok {
				succ[dep] = append(succ[dep], id)
			}
		}
	}
	return succ
}

// Without returns a copy of the graph with one task (and its edges) removed.
// The underlying nodes are shared; graphs are never mutated after building.
func (g *TaskGraph) Without(id string) *TaskGraph {
	out := &TaskGraph{Tasks: make(map[string]*TaskNode, len(g.Tasks))}
	for _, tid := range g.Order {
		if tid == id {
			continue
		}
		out.Tasks[tid] = g.Tasks[tid]
		out.Order = append(out.Order, tid)
	}
	for _, e := range g.Edges {
		if e[0] == id || e[1] == id {
			continue
		}
		out.Edges = append(out.Edges, e)
	}
	return out
}

// ScheduleEntry is one task's placement on an abstract whole-day timeline,
// as produced by the ETA estimator.
type ScheduleEntry struct {
	ID           string   `json:"id"`
	Owner        string   `json:"owner,omitempty"`
	Start        int      `json:"est"`
	Finish       int      `json:"eft"`
	Duration     int      `json:"duration"`
	Dependencies []string `json:"deps"`
}

// DateScheduleEntry is one task's placement on the real calendar.
type DateScheduleEntry struct {
	ID           string    `json:"issue"`
	Summary      string    `json:"summary,omitempty"`
	Owner        string    `json:"owner"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Days         int       `json:"days"`
	Dependencies []string  `json:"dependencies,omitempty"`
	Status       string    `json:"status,omitempty"`
}

// SlackTolerance is the absolute tolerance under which a task counts as
// zero-slack, i.e. on the critical path.
const SlackTolerance = 1e-9

// CpaTask is the per-task output of the critical-path computation. The
// resource-constrained numbers are primary; the plain-PERT numbers are kept
// side by side so callers can see the cost of contention.
type CpaTask struct {
	ID       string  `json:"id"`
	Owner    string  `json:"owner,omitempty"`
	Duration float64 `json:"duration"`

	ES    float64 `json:"ES"`
	EF    float64 `json:"EF"`
	LS    float64 `json:"LS"`
	LF    float64 `json:"LF"`
	Slack float64 `json:"slack"`

	PlainES    float64 `json:"ES_plain"`
	PlainEF    float64 `json:"EF_plain"`
	PlainLS    float64 `json:"LS_plain"`
	PlainLF    float64 `json:"LF_plain"`
	PlainSlack float64 `json:"slack_plain"`

	Critical bool `json:"isCritical"`
}

// CpaResult is the full critical-path analysis for a backlog.
type CpaResult struct {
	ProjectDuration float64   `json:"project_duration"`
	Tasks           []CpaTask `json:"tasks"`
	CriticalPath    []string  `json:"critical_path"`
	// Degraded is set when a cycle forced the topological fallback to input
	// order; results are then suspect and callers should re-validate.
	Degraded bool `json:"degraded,omitempty"`
}

// TaskByID returns the per-task metrics for one id.
func (r *CpaResult) TaskByID(id string) (CpaTask, bool) {
	for _, t := range r.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return CpaTask{}, false
}

// SlackOf returns the resource-constrained slack for one task.
func (r *CpaResult) SlackOf(id string) (float64, bool) {
	t, ok := r.TaskByID(id)
	if !ok {
		return 0, false
	}
	return t.Slack, true
}

// FinishBounds returns the resource-constrained earliest and latest finish
// for one task, falling back to the plain-PERT values when the constrained
// pass produced nothing meaningful for it.
func (r *CpaResult) FinishBounds(id string) (ef, lf float64, ok bool) {
	t, found := r.TaskByID(id)
	if !found {
		return 0, 0, false
	}
	ef, lf = t.EF, t.LF
	if ef == 0 && t.PlainEF > 0 {
		ef = t.PlainEF
	}
	if lf == 0 && t.PlainLF > 0 {
		lf = t.PlainLF
	}
	return ef, lf, true
}

// CpaSummary is the condensed view of a CpaResult.
type CpaSummary struct {
	TasksCount      int       `json:"tasks_count"`
	CriticalCount   int       `json:"critical_count"`
	ProjectDuration float64   `json:"project_duration"`
	CriticalPath    []string  `json:"critical_path"`
	Sample          []CpaTask `json:"sample"`
}

// Summarize condenses the result for conversational callers: counts, the
// critical path and a small sample of task metrics.
func (r *CpaResult) Summarize() CpaSummary {
	crit := 0
	for _, t := range r.Tasks {
		if t.Critical {
			crit++
		}
	}
	sample := r.Tasks
	if len(sample) > 5 {
		sample = sample[:5]
	}
	return CpaSummary{
		TasksCount:      len(r.Tasks),
		CriticalCount:   crit,
		ProjectDuration: r.ProjectDuration,
		CriticalPath:    r.CriticalPath,
		Sample:          sample,
	}
}

// EtaResult carries the optimistic/pessimistic completion bounds for a
// single target issue. PessimisticDays >= OptimisticDays always holds.
type EtaResult struct {
	Issue                  string          `json:"issue"`
	OptimisticDays         int             `json:"optimistic_days"`
	PessimisticDays        int             `json:"pessimistic_days"`
	OptimisticSchedule     []ScheduleEntry `json:"optimistic_schedule"`
	PessimisticSchedule    []ScheduleEntry `json:"pessimistic_schedule"`
	OptimisticCriticalPath []string        `json:"optimistic_critical_path"`
	PessimisticBlockers    []string        `json:"pessimistic_blockers"`
	Notes                  string          `json:"notes,omitempty"`
	Summary                string          `json:"summary"`
}

// CalendarParams are the caller-supplied calendar inputs for date-mapped
// scheduling. A nil WorkingDays picks the mode's default (Mon-Fri for the
// sequential layout, all days for the dependency-aware one).
type CalendarParams struct {
	// StartOn overrides the inferred sprint start as the base date.
	StartOn         *time.Time
	WorkingDays     []time.Weekday
	GlobalHolidays  []time.Time
	HolidaysByOwner map[string][]time.Time
}

// SprintWindow is the sprint date range inferred from the raw records:
// earliest start and latest end found on any record.
type SprintWindow struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// TimelineResult is the sequential-per-owner calendar layout of a backlog.
type TimelineResult struct {
	ProjectKey         string                         `json:"project_key"`
	Sprint             SprintWindow                   `json:"sprint"`
	StartUsed          time.Time                      `json:"start_used"`
	WorkingDays        []time.Weekday                 `json:"working_days"`
	IssuesCount        int                            `json:"issues_count"`
	PerIssueCompletion map[string]time.Time           `json:"per_issue_completion"`
	PerOwnerTimeline   map[string][]DateScheduleEntry `json:"per_owner_timeline"`
	OverallCompletion  time.Time                      `json:"overall_completion_date"`
}

// DependencySchedule is the dependency+resource-aware calendar schedule.
type DependencySchedule struct {
	ProjectKey        string                       `json:"project_key"`
	Sprint            SprintWindow                 `json:"sprint"`
	StartUsed         time.Time                    `json:"start_used"`
	PerIssue          map[string]DateScheduleEntry `json:"per_issue_schedule"`
	OverallCompletion time.Time                    `json:"overall_completion_date"`
}

// RemovalImpact is the answer to "what if this issue were dropped": the
// overall completion date before and after, and the gain in days (positive
// means the backlog finishes earlier without the issue).
type RemovalImpact struct {
	ProjectKey   string    `json:"project_key"`
	RemovedIssue string    `json:"removed_issue"`
	Before       time.Time `json:"before_overall_completion_date"`
	After        time.Time `json:"after_overall_completion_date"`
	DeltaDays    int       `json:"delta_days"`
}

// IssueCompletion is the single-issue calendar estimate.
type IssueCompletion struct {
	ProjectKey string             `json:"project_key"`
	Issue      string             `json:"issue_key"`
	Owner      string             `json:"owner"`
	Completion *time.Time         `json:"estimated_completion_date,omitempty"`
	Entry      *DateScheduleEntry `json:"timeline,omitempty"`
	Sprint     SprintWindow       `json:"sprint"`
}

// GraphExport is the weighted dependency graph in plain structured form.
type GraphExport struct {
	ProjectKey string             `json:"project_key"`
	Nodes      map[string]float64 `json:"nodes"`
	Edges      [][2]string        `json:"edges"`
}

// Session remembers the last project/sprint a caller worked with so the
// conversational layer can avoid re-asking. It is an explicit value passed
// around by callers, never module state.
type Session struct {
	ProjectKey string
	Sprint     SprintWindow
}

// Remember records the project and sprint window of the latest computation.
func (s *Session) Remember(projectKey string, sprint SprintWindow) {
	s.ProjectKey = projectKey
	s.Sprint = sprint
}

// WholeDays converts a fractional-day duration to whole days: ceiling,
// minimum 1. Mirrors the story-points-to-days convention of the upstream
// tracker (1 SP = 1 day).
func WholeDays(d float64) int {
	w := int(math.Ceil(math.Max(0, d)))
	if w < 1 {
		return 1
	}
	return w
}
