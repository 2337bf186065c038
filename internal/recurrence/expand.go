package recurrence

import (
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

// Everyday is a sentinel tag that expands to monday through saturday. Sunday
// is the week's rest day and is never scheduled.
const Everyday = "everyday"

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

var validDays = func() map[string]bool {
	m := map[string]bool{Everyday: true}
	for _, d := range weekdays {
		m[d] = true
	}
	return m
}()

// Seed is one assignment_chores row to be created: a single tracked
// occurrence of a chore within a week.
type Seed struct {
	ChoreID     int64
	Status      string
	CompletedOn *string
}

// ValidateDays checks every tag against the closed set monday..saturday plus
// "everyday". Tags are case-sensitive lowercase strings.
func ValidateDays(days []string) error {
	for _, d := range days {
		if !validDays[d] {
			return fmt.Errorf("unknown recurrence day %q", d)
		}
	}
	return nil
}

// ExpandChoresForWeek turns a chore selection into the flat list of per-day
// occurrences to track for one assignment week.
//
// A non-recurring chore, or a recurring chore with an empty day set, yields a
// single seed with a nil day: one occurrence for the whole week. A recurring
// chore yields one pending seed per resolved weekday, with "everyday"
// standing in for monday..saturday.
//
// The function is pure. Callers re-run it with replace-not-merge semantics
// whenever an assignment's chore selection changes: all prior rows are
// dropped and regenerated, discarding any in-progress completion state.
func ExpandChoresForWeek(chores []model.Chore) []Seed {
	var seeds []Seed
	for _, c := range chores {
		if !c.IsRecurring || len(c.RecurrenceDays) == 0 {
			seeds = append(seeds, Seed{
				ChoreID: c.ID,
				Status:  model.ChoreStatusPending,
			})
			continue
		}

		for _, day := range resolveDays(c.RecurrenceDays) {
			d := day
			seeds = append(seeds, Seed{
				ChoreID:     c.ID,
				Status:      model.ChoreStatusPending,
				CompletedOn: &d,
			})
		}
	}
	return seeds
}

// resolveDays replaces the "everyday" sentinel with the concrete weekday set.
func resolveDays(days []string) []string {
	for _, d := range days {
		if d == Everyday {
			return weekdays
		}
	}
	return days
}

// IsSunday reports whether the date falls on a Sunday. Assignment weeks
// always start on one.
func IsSunday(t time.Time) bool {
	return t.Weekday() == time.Sunday
}
