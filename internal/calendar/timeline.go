package calendar

import (
	"time"

	"github.com/quillforge/sprintscale/internal/graph"
	"github.com/quillforge/sprintscale/internal/model"
)

// Timeline lays a whole backlog out sequentially per owner: each owner's
// queue, sorted by the deterministic key, runs back-to-back from the base
// date on that owner's working calendar. Overall completion is the latest
// finish across owners.
func Timeline(projectKey string, g *model.TaskGraph, sprint model.SprintWindow,
	params model.CalendarParams, today time.Time) model.TimelineResult {

	cal := New(params, Weekdays)
	base := BaseStart(params, sprint, today)

	byOwner := make(map[string][]string)
	for _, id := range g.Order {
		owner := ownerLabel(g.Tasks[id].Owner)
		byOwner[owner] = append(byOwner[owner], id)
	}

	result := model.TimelineResult{
		ProjectKey:         projectKey,
		Sprint:             sprint,
		StartUsed:          base,
		WorkingDays:        cal.maskOf(),
		IssuesCount:        len(g.Order),
		PerIssueCompletion: make(map[string]time.Time, len(g.Order)),
		PerOwnerTimeline:   make(map[string][]model.DateScheduleEntry, len(byOwner)),
		OverallCompletion:  base,
	}

	for owner, ids := range byOwner {
		graph.SortKeys(ids)
		current := base
		var sched []model.DateScheduleEntry
		for _, id := range ids {
			node := g.Tasks[id]
			start := cal.NextWorkingDay(current, owner)
			end := cal.AdvanceWorkingDays(start, node.DurationDays, owner)
			// The owner's next task starts the day after this one ends.
			current = end.AddDate(0, 0, 1)
			sched = append(sched, model.DateScheduleEntry{
				ID:      id,
				Summary: node.Summary,
				Owner:   owner,
				Start:   start,
				End:     end,
				Days:    node.DurationDays,
				Status:  statusOf(node),
			})
			result.PerIssueCompletion[id] = end
			if end.After(result.OverallCompletion) {
				result.OverallCompletion = end
			}
		}
		result.PerOwnerTimeline[owner] = sched
	}
	return result
}

// CompletionIfRemoved re-runs the same sequential layout without one issue
// and diffs the overall completion. A positive delta means the backlog
// finishes that many days earlier without the issue.
func CompletionIfRemoved(projectKey string, g *model.TaskGraph, removed string,
	sprint model.SprintWindow, params model.CalendarParams, today time.Time) (model.RemovalImpact, error) {

	if _, ok := g.Tasks[removed]; !ok {
		return model.RemovalImpact{}, model.NewTaskNotFoundError("calendar", removed)
	}
	before := Timeline(projectKey, g, sprint, params, today)
	after := Timeline(projectKey, g.Without(removed), sprint, params, today)

	delta := int(before.OverallCompletion.Sub(after.OverallCompletion).Hours() / 24)
	return model.RemovalImpact{
		ProjectKey:   projectKey,
		RemovedIssue: removed,
		Before:       before.OverallCompletion,
		After:        after.OverallCompletion,
		DeltaDays:    delta,
	}, nil
}

// EstimateIssue is the lightweight single-issue estimate: it schedules only
// the target owner's queue, skipping items already done so they do not push
// future work, and reports the target's completion date.
func EstimateIssue(projectKey string, g *model.TaskGraph, issueKey string,
	sprint model.SprintWindow, params model.CalendarParams, today time.Time) (model.IssueCompletion, error) {

	target, ok := g.Tasks[issueKey]
	if !ok {
		return model.IssueCompletion{}, model.NewTaskNotFoundError("calendar", issueKey)
	}
	owner := ownerLabel(target.Owner)

	var ids []string
	for _, id := range g.Order {
		node := g.Tasks[id]
		if ownerLabel(node.Owner) != owner || node.Done {
			continue
		}
		ids = append(ids, id)
	}
	graph.SortKeys(ids)

	cal := New(params, Weekdays)
	current := BaseStart(params, sprint, today)

	result := model.IssueCompletion{
		ProjectKey: projectKey,
		Issue:      issueKey,
		Owner:      owner,
		Sprint:     sprint,
	}
	for _, id := range ids {
		node := g.Tasks[id]
		start := cal.NextWorkingDay(current, owner)
		end := cal.AdvanceWorkingDays(start, node.DurationDays, owner)
		current = end.AddDate(0, 0, 1)
		if id == issueKey {
			entry := model.DateScheduleEntry{
				ID:      id,
				Summary: node.Summary,
				Owner:   owner,
				Start:   start,
				End:     end,
				Days:    node.DurationDays,
				Status:  statusOf(node),
			}
			result.Entry = &entry
			completion := end
			result.Completion = &completion
			break
		}
	}
	return result, nil
}

func statusOf(node *model.TaskNode) string {
	if node.Done {
		return "Done"
	}
	return ""
}
