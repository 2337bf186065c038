package recurrence

import (
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

func TestValidateDays(t *testing.T) {
	if err := ValidateDays([]string{"monday", "saturday", "everyday"}); err != nil {
		t.Errorf("valid days rejected: %v", err)
	}
	if err := ValidateDays(nil); err != nil {
		t.Errorf("empty days rejected: %v", err)
	}
	if err := ValidateDays([]string{"sunday"}); err == nil {
		t.Error("expected error for sunday")
	}
	if err := ValidateDays([]string{"Monday"}); err == nil {
		t.Error("expected error for capitalized day")
	}
	if err := ValidateDays([]string{"monday", "funday"}); err == nil {
		t.Error("expected error for unknown day")
	}
}

func TestExpandRecurringChore(t *testing.T) {
	chores := []model.Chore{
		{ID: 1, IsRecurring: true, RecurrenceDays: []string{"monday", "tuesday"}},
	}

	seeds := ExpandChoresForWeek(chores)
	if len(seeds) != 2 {
		t.Fatalf("seeds = %d, want 2", len(seeds))
	}
	for i, want := range []string{"monday", "tuesday"} {
		if seeds[i].ChoreID != 1 {
			t.Errorf("seed %d chore_id = %d, want 1", i, seeds[i].ChoreID)
		}
		if seeds[i].Status != model.ChoreStatusPending {
			t.Errorf("seed %d status = %q, want pending", i, seeds[i].Status)
		}
		if seeds[i].CompletedOn == nil || *seeds[i].CompletedOn != want {
			t.Errorf("seed %d day = %v, want %q", i, seeds[i].CompletedOn, want)
		}
	}
}

func TestExpandEveryday(t *testing.T) {
	chores := []model.Chore{
		{ID: 7, IsRecurring: true, RecurrenceDays: []string{Everyday}},
	}

	seeds := ExpandChoresForWeek(chores)
	if len(seeds) != 6 {
		t.Fatalf("seeds = %d, want 6", len(seeds))
	}
	for _, seed := range seeds {
		if seed.CompletedOn == nil {
			t.Fatal("expected a concrete day on every seed")
		}
		if *seed.CompletedOn == "sunday" {
			t.Error("everyday must not include sunday")
		}
	}
	if *seeds[0].CompletedOn != "monday" || *seeds[5].CompletedOn != "saturday" {
		t.Errorf("days = %q..%q, want monday..saturday", *seeds[0].CompletedOn, *seeds[5].CompletedOn)
	}
}

func TestExpandNonRecurringChore(t *testing.T) {
	chores := []model.Chore{
		{ID: 3, IsRecurring: false, RecurrenceDays: []string{"monday"}},
	}

	seeds := ExpandChoresForWeek(chores)
	if len(seeds) != 1 {
		t.Fatalf("seeds = %d, want 1", len(seeds))
	}
	if seeds[0].CompletedOn != nil {
		t.Errorf("day = %q, want nil for a whole-week occurrence", *seeds[0].CompletedOn)
	}
}

func TestExpandRecurringWithoutDays(t *testing.T) {
	chores := []model.Chore{
		{ID: 4, IsRecurring: true},
	}

	seeds := ExpandChoresForWeek(chores)
	if len(seeds) != 1 {
		t.Fatalf("seeds = %d, want 1", len(seeds))
	}
	if seeds[0].CompletedOn != nil {
		t.Error("recurring chore with no days should fall back to one whole-week seed")
	}
}

func TestExpandMixedSelection(t *testing.T) {
	chores := []model.Chore{
		{ID: 1, IsRecurring: true, RecurrenceDays: []string{"wednesday"}},
		{ID: 2, IsRecurring: false},
	}

	seeds := ExpandChoresForWeek(chores)
	if len(seeds) != 2 {
		t.Fatalf("seeds = %d, want 2", len(seeds))
	}
	if seeds[0].CompletedOn == nil || *seeds[0].CompletedOn != "wednesday" {
		t.Errorf("first seed day = %v, want wednesday", seeds[0].CompletedOn)
	}
	if seeds[1].CompletedOn != nil {
		t.Error("second seed should be a whole-week occurrence")
	}
}

func TestIsSunday(t *testing.T) {
	sunday := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	if !IsSunday(sunday) {
		t.Error("2026-01-04 is a Sunday")
	}
	if IsSunday(sunday.AddDate(0, 0, 1)) {
		t.Error("2026-01-05 is a Monday")
	}
}
