package calendar

import (
	"container/heap"
	"time"

	"github.com/quillforge/sprintscale/internal/graph"
	"github.com/quillforge/sprintscale/internal/model"
)

// dateEvent is a finished task in the date-based simulation.
type dateEvent struct {
	end time.Time
	id  string
}

type dateQueue []dateEvent

func (q dateQueue) Len() int { return len(q) }
func (q dateQueue) Less(i, j int) bool {
	if !q[i].end.Equal(q[j].end) {
		return q[i].end.Before(q[j].end)
	}
	return graph.KeyLess(q[i].id, q[j].id)
}
func (q dateQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *dateQueue) Push(x interface{}) { *q = append(*q, x.(dateEvent)) }
func (q *dateQueue) Pop() interface{} {
	old := *q
	n := len(old)
	ev := old[n-1]
	*q = old[:n-1]
	return ev
}

// ScheduleWithDependencies runs the resource-constrained simulation on real
// dates: a task starts once every dependency has finished and its owner is
// free, and consumes working days on that owner's calendar. The working-day
// mask defaults to all days here, matching the sequential mode only when
// the caller asks for it.
func ScheduleWithDependencies(projectKey string, g *model.TaskGraph,
	sprint model.SprintWindow, params model.CalendarParams, today time.Time) model.DependencySchedule {

	cal := New(params, AllDays)
	base := BaseStart(params, sprint, today)

	indeg := make(map[string]int, len(g.Tasks))
	for _, id := range g.Order {
		for _, dep := range g.Tasks[id].Dependencies {
			if _, ok := g.Tasks[dep]; ok {
				indeg[id]++
			}
		}
	}
	succ := g.Successors()

	nextFree := make(map[string]time.Time)
	starts := make(map[string]time.Time, len(g.Tasks))
	ends := make(map[string]time.Time, len(g.Tasks))

	events := &dateQueue{}
	heap.Init(events)

	schedule := func(id string, current time.Time) {
		node := g.Tasks[id]
		owner := ownerLabel(node.Owner)
		start := current
		if avail, ok := nextFree[owner]; ok && avail.After(start) {
			start = avail
		}
		end := cal.AdvanceWorkingDays(start, node.DurationDays, owner)
		starts[id] = start
		ends[id] = end
		// The owner is busy through end and picks up new work the day after.
		nextFree[owner] = end.AddDate(0, 0, 1)
		heap.Push(events, dateEvent{end: end, id: id})
	}

	var ready []string
	for _, id := range g.Order {
		if indeg[id] == 0 {
			ready = append(ready, id)
		}
	}
	graph.SortKeys(ready)
	for _, id := range ready {
		schedule(id, base)
	}

	for events.Len() > 0 {
		ev := heap.Pop(events).(dateEvent)
		for _, v := range succ[ev.id] {
			indeg[v]--
			if indeg[v] == 0 {
				schedule(v, ev.end)
			}
		}
	}

	result := model.DependencySchedule{
		ProjectKey:        projectKey,
		Sprint:            sprint,
		StartUsed:         base,
		PerIssue:          make(map[string]model.DateScheduleEntry, len(ends)),
		OverallCompletion: base,
	}
	for id, end := range ends {
		node := g.Tasks[id]
		result.PerIssue[id] = model.DateScheduleEntry{
			ID:           id,
			Summary:      node.Summary,
			Owner:        ownerLabel(node.Owner),
			Start:        starts[id],
			End:          end,
			Days:         node.DurationDays,
			Dependencies: node.Dependencies,
		}
		if end.After(result.OverallCompletion) {
			result.OverallCompletion = end
		}
	}
	return result
}

// ExpectedCompletion answers "when will this one issue land" using the
// dependency-aware scheduler, returning its schedule entry alongside the
// overall completion for context.
func ExpectedCompletion(projectKey string, g *model.TaskGraph, issueKey string,
	sprint model.SprintWindow, params model.CalendarParams, today time.Time) (model.IssueCompletion, model.DependencySchedule, error) {

	sched := ScheduleWithDependencies(projectKey, g, sprint, params, today)
	entry, ok := sched.PerIssue[issueKey]
	if !ok {
		return model.IssueCompletion{}, sched, model.NewTaskNotFoundError("calendar", issueKey)
	}
	completion := entry.End
	return model.IssueCompletion{
		ProjectKey: projectKey,
		Issue:      issueKey,
		Owner:      entry.Owner,
		Completion: &completion,
		Entry:      &entry,
		Sprint:     sprint,
	}, sched, nil
}
