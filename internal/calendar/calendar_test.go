package calendar

import (
	"testing"
	"time"

	"github.com/quillforge/sprintscale/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dp(t time.Time) *time.Time { return &t }

func TestIsWorking(t *testing.T) {
	cal := New(model.CalendarParams{
		GlobalHolidays:  []time.Time{date(2026, time.January, 1)},
		HolidaysByOwner: map[string][]time.Time{"alice": {date(2026, time.January, 2)}},
	}, Weekdays)

	tests := []struct {
		day   time.Time
		owner string
		want  bool
	}{
		{date(2026, time.January, 5), "alice", true},  // Monday
		{date(2026, time.January, 3), "alice", false}, // Saturday
		{date(2026, time.January, 4), "alice", false}, // Sunday
		{date(2026, time.January, 1), "bob", false},   // global holiday (Thursday)
		{date(2026, time.January, 2), "alice", false}, // personal holiday (Friday)
		{date(2026, time.January, 2), "bob", true},    // not bob's holiday
	}
	for _, tt := range tests {
		if got := cal.IsWorking(tt.day, tt.owner); got != tt.want {
			t.Errorf("IsWorking(%s, %s) = %v, want %v", tt.day.Format("2006-01-02"), tt.owner, got, tt.want)
		}
	}
}

func TestNextWorkingDay(t *testing.T) {
	cal := New(model.CalendarParams{}, Weekdays)
	// Saturday rolls to Monday.
	got := cal.NextWorkingDay(date(2026, time.January, 3), "alice")
	if want := date(2026, time.January, 5); !got.Equal(want) {
		t.Errorf("NextWorkingDay = %v, want %v", got, want)
	}
	// A working day is returned unchanged.
	mon := date(2026, time.January, 5)
	if got := cal.NextWorkingDay(mon, "alice"); !got.Equal(mon) {
		t.Errorf("NextWorkingDay(Monday) = %v", got)
	}
}

// A five-day task starting on a Friday with a Mon-Fri mask lands on the
// following Thursday: Friday is day one, the weekend is skipped, and the
// final consumed day is the finish.
func TestAdvanceWorkingDaysAcrossWeekend(t *testing.T) {
	cal := New(model.CalendarParams{}, Weekdays)
	friday := date(2026, time.January, 2)
	got := cal.AdvanceWorkingDays(friday, 5, "alice")
	if want := date(2026, time.January, 8); !got.Equal(want) {
		t.Errorf("AdvanceWorkingDays(Friday, 5) = %v, want %v", got, want)
	}
}

func TestAdvanceWorkingDaysZeroOrNegative(t *testing.T) {
	cal := New(model.CalendarParams{}, Weekdays)
	start := date(2026, time.January, 5)
	if got := cal.AdvanceWorkingDays(start, 0, "alice"); !got.Equal(start) {
		t.Errorf("zero days moved the date to %v", got)
	}
	if got := cal.AdvanceWorkingDays(start, -3, "alice"); !got.Equal(start) {
		t.Errorf("negative days moved the date to %v", got)
	}
}

// An explicitly empty working-day list behaves like an unset one; without
// the fallback no date would count as working and the day walks could never
// terminate.
func TestNewEmptyWorkingMaskFallsBack(t *testing.T) {
	cal := New(model.CalendarParams{WorkingDays: []time.Weekday{}}, Weekdays)
	if !cal.IsWorking(date(2026, time.January, 5), "alice") { // Monday
		t.Fatal("Monday not working under the fallback mask")
	}
	if cal.IsWorking(date(2026, time.January, 3), "alice") { // Saturday
		t.Error("Saturday working under the fallback mask")
	}
	// Friday + 5 working days lands on Thursday, same as the default mask.
	got := cal.AdvanceWorkingDays(date(2026, time.January, 2), 5, "alice")
	if want := date(2026, time.January, 8); !got.Equal(want) {
		t.Errorf("AdvanceWorkingDays = %v, want %v", got, want)
	}
	if got := cal.NextWorkingDay(date(2026, time.January, 3), "alice"); !got.Equal(date(2026, time.January, 5)) {
		t.Errorf("NextWorkingDay(Saturday) = %v, want Monday", got)
	}
}

func TestAdvanceWorkingDaysSkipsHolidays(t *testing.T) {
	cal := New(model.CalendarParams{
		GlobalHolidays: []time.Time{date(2026, time.January, 6)}, // Tuesday
	}, Weekdays)
	// Monday start, 3 working days: Mon, (Tue holiday), Wed, Thu.
	got := cal.AdvanceWorkingDays(date(2026, time.January, 5), 3, "alice")
	if want := date(2026, time.January, 8); !got.Equal(want) {
		t.Errorf("AdvanceWorkingDays with holiday = %v, want %v", got, want)
	}
}

func TestBaseStartPriority(t *testing.T) {
	today := date(2026, time.March, 2)
	sprintStart := date(2026, time.February, 23)
	override := date(2026, time.February, 25)

	sprint := model.SprintWindow{Start: dp(sprintStart)}

	if got := BaseStart(model.CalendarParams{StartOn: dp(override)}, sprint, today); !got.Equal(override) {
		t.Errorf("explicit override ignored: %v", got)
	}
	if got := BaseStart(model.CalendarParams{}, sprint, today); !got.Equal(sprintStart) {
		t.Errorf("sprint start ignored: %v", got)
	}
	if got := BaseStart(model.CalendarParams{}, model.SprintWindow{}, today); !got.Equal(today) {
		t.Errorf("today fallback = %v", got)
	}
}
