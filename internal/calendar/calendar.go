// Package calendar maps abstract day counts onto real dates, skipping
// non-working weekdays and holidays, and provides the two date-mapped
// scheduling modes: sequential per owner and dependency+resource aware.
package calendar

import (
	"time"

	"github.com/quillforge/sprintscale/internal/model"
)

// UnassignedOwner is the display label used when a task has no owner.
const UnassignedOwner = model.UnassignedOwner

// Calendar is a working-day mask plus holiday sets. Holidays are the union
// of the global set and the owner's personal set.
type Calendar struct {
	working map[time.Weekday]bool
	global  map[time.Time]bool
	byOwner map[string]map[time.Time]bool
}

// Weekdays is the default Mon-Fri working mask for the sequential mode.
var Weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// AllDays treats every weekday as working; the dependency-aware mode
// defaults to it, matching the upstream scheduler.
var AllDays = []time.Weekday{
	time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
	time.Thursday, time.Friday, time.Saturday,
}

// DateOnly truncates a time to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// New builds a calendar from caller params. defaultDays is used when the
// params leave the working-day mask unset.
func New(params model.CalendarParams, defaultDays []time.Weekday) Calendar {
	days := params.WorkingDays
	// An empty mask would make every date non-working and the day walks
	// would never terminate, so treat it like unset.
	if len(days) == 0 {
		days = defaultDays
	}
	c := Calendar{
		working: make(map[time.Weekday]bool, len(days)),
		global:  make(map[time.Time]bool, len(params.GlobalHolidays)),
		byOwner: make(map[string]map[time.Time]bool, len(params.HolidaysByOwner)),
	}
	for _, d := range days {
		c.working[d] = true
	}
	for _, h := range params.GlobalHolidays {
		c.global[DateOnly(h)] = true
	}
	for owner, hs := range params.HolidaysByOwner {
		set := make(map[time.Time]bool, len(hs))
		for _, h := range hs {
			set[DateOnly(h)] = true
		}
		c.byOwner[owner] = set
	}
	return c
}

// IsWorking reports whether d counts as a working day for owner: its
// weekday is in the mask and it is neither a global nor a personal holiday.
func (c Calendar) IsWorking(d time.Time, owner string) bool {
	d = DateOnly(d)
	if !c.working[d.Weekday()] {
		return false
	}
	if c.global[d] {
		return false
	}
	if set, ok := c.byOwner[owner]; ok && set[d] {
		return false
	}
	return true
}

// NextWorkingDay returns d itself when it is a working day for owner,
// otherwise the next working day after it.
func (c Calendar) NextWorkingDay(d time.Time, owner string) time.Time {
	cur := DateOnly(d)
	for !c.IsWorking(cur, owner) {
		cur = cur.AddDate(0, 0, 1)
	}
	return cur
}

// AdvanceWorkingDays walks forward from start until days working days have
// been consumed, counting a day only when it is working for owner, and
// returns the date on which the last day lands: Monday + 5 working days is
// Friday. days <= 0 returns start unchanged.
func (c Calendar) AdvanceWorkingDays(start time.Time, days int, owner string) time.Time {
	if days <= 0 {
		return DateOnly(start)
	}
	d := DateOnly(start)
	consumed := 0
	for {
		if c.IsWorking(d, owner) {
			consumed++
			if consumed == days {
				return d
			}
		}
		d = d.AddDate(0, 0, 1)
	}
}

// BaseStart picks the date a schedule begins from: the explicit override
// wins, then the inferred sprint start, then today.
func BaseStart(params model.CalendarParams, sprint model.SprintWindow, today time.Time) time.Time {
	if params.StartOn != nil {
		return DateOnly(*params.StartOn)
	}
	if sprint.Start != nil {
		return DateOnly(*sprint.Start)
	}
	return DateOnly(today)
}

// ownerLabel maps the empty owner to the unassigned display label used in
// per-owner groupings and holiday lookups.
func ownerLabel(owner string) string {
	if owner == "" {
		return UnassignedOwner
	}
	return owner
}

// maskOf lists the calendar's working weekdays in chronological order.
func (c Calendar) maskOf() []time.Weekday {
	var out []time.Weekday
	for _, d := range AllDays {
		if c.working[d] {
			out = append(out, d)
		}
	}
	return out
}
