package service

import (
	"context"
	"errors"
	"testing"

	"github.com/hiromu/schedo/internal/apperror"
	"github.com/hiromu/schedo/internal/model"
)

func TestSurveyCreate_Success(t *testing.T) {
	svc, _ := newTestSurveyService(t)

	survey, err := svc.Create(context.Background(), "  Team Sync  ", " planning ",
		[]string{"2025-03-01", "", "2025-03-02"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if survey.ID == "" {
		t.Error("expected survey to have an ID")
	}
	if survey.Title != "Team Sync" {
		t.Errorf("Title = %q, want trimmed %q", survey.Title, "Team Sync")
	}
	if survey.Description != "planning" {
		t.Errorf("Description = %q, want trimmed %q", survey.Description, "planning")
	}
	// The empty value is dropped, the two real dates are kept.
	if len(survey.Dates) != 2 {
		t.Fatalf("len(Dates) = %d, want 2", len(survey.Dates))
	}
	for _, date := range survey.Dates {
		if date.SurveyID != survey.ID {
			t.Errorf("date %s has SurveyID %q, want %q", date.ID, date.SurveyID, survey.ID)
		}
	}
}

func TestSurveyCreate_EmptyTitle(t *testing.T) {
	svc, repo := newTestSurveyService(t)

	_, err := svc.Create(context.Background(), "   ", "", []string{"2025-03-01"})
	if err == nil {
		t.Fatal("Create() should error on empty title")
	}
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	// Fail fast: validation failures must not touch storage.
	if len(repo.surveys) != 0 {
		t.Errorf("surveys written = %d, want 0", len(repo.surveys))
	}
}

func TestSurveyCreate_NoDates(t *testing.T) {
	svc, repo := newTestSurveyService(t)

	_, err := svc.Create(context.Background(), "Team Sync", "", []string{"", "  "})
	if err == nil {
		t.Fatal("Create() should error when every date is empty")
	}
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if len(repo.surveys) != 0 {
		t.Errorf("surveys written = %d, want 0", len(repo.surveys))
	}
}

func TestSurveyCreate_InvalidDate(t *testing.T) {
	svc, _ := newTestSurveyService(t)

	_, err := svc.Create(context.Background(), "Team Sync", "", []string{"03/01/2025"})
	if err == nil {
		t.Fatal("Create() should error on a non-ISO date")
	}
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestSurveyGet_NotFound(t *testing.T) {
	svc, _ := newTestSurveyService(t)

	_, err := svc.Get(context.Background(), "nonexistent")
	if err == nil {
		t.Fatal("Get() should error on nonexistent ID")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSurveyList_NewestFirst(t *testing.T) {
	svc, _ := newTestSurveyService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "first", "", []string{"2025-03-01"}); err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, "second", "", []string{"2025-03-02"}); err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	summaries, err := svc.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2", len(summaries))
	}
	if summaries[0].Title != "second" {
		t.Errorf("summaries[0].Title = %q, want %q (newest first)", summaries[0].Title, "second")
	}
}

// =========================================================================
// DATE-EDIT DIFF TESTS
// =========================================================================

func TestDiffDates_SetAlgebra(t *testing.T) {
	// Stored {A, B, C}; edited [{A, changed}, {new value}]
	// → removed {B, C}, kept {A}, added {new value}.
	stored := []model.SurveyDate{
		{ID: "A", DateValue: "2025-03-01"},
		{ID: "B", DateValue: "2025-03-02"},
		{ID: "C", DateValue: "2025-03-03"},
	}
	edits := []DateEdit{
		{ID: "A", Value: "2025-03-05"},
		{Value: "2025-03-10"},
	}

	removed, kept, added, err := DiffDates(stored, edits)
	if err != nil {
		t.Fatalf("DiffDates() error = %v", err)
	}

	if len(removed) != 2 || removed[0] != "B" || removed[1] != "C" {
		t.Errorf("removed = %v, want [B C]", removed)
	}
	if len(kept) != 1 || kept[0].ID != "A" || kept[0].Value != "2025-03-05" {
		t.Errorf("kept = %v, want [{A 2025-03-05}]", kept)
	}
	if len(added) != 1 || added[0] != "2025-03-10" {
		t.Errorf("added = %v, want [2025-03-10]", added)
	}
}

func TestDiffDates_UnknownID(t *testing.T) {
	stored := []model.SurveyDate{{ID: "A", DateValue: "2025-03-01"}}
	edits := []DateEdit{{ID: "Z", Value: "2025-03-02"}}

	_, _, _, err := DiffDates(stored, edits)
	if err == nil {
		t.Fatal("DiffDates() should error on an ID the survey never had")
	}
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestEditDates_EndToEnd(t *testing.T) {
	svc, _ := newTestSurveyService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Team Sync", "",
		[]string{"2025-03-01", "2025-03-02", "2025-03-03"})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}
	dateA := created.Dates[0]

	// Keep A with a changed value, drop B and C, add D.
	updated, err := svc.EditDates(ctx, created.ID, "Team Sync", "", []DateEdit{
		{ID: dateA.ID, Value: "2025-03-15"},
		{Value: "2025-03-20"},
	})
	if err != nil {
		t.Fatalf("EditDates() error = %v", err)
	}

	if len(updated.Dates) != 2 {
		t.Fatalf("len(Dates) = %d, want 2", len(updated.Dates))
	}
	// A keeps its id with the new value; D is new.
	if updated.Dates[0].ID != dateA.ID {
		t.Errorf("kept date ID = %q, want preserved %q", updated.Dates[0].ID, dateA.ID)
	}
	if updated.Dates[0].DateValue != "2025-03-15" {
		t.Errorf("kept date value = %q, want %q", updated.Dates[0].DateValue, "2025-03-15")
	}
	if updated.Dates[1].DateValue != "2025-03-20" {
		t.Errorf("added date value = %q, want %q", updated.Dates[1].DateValue, "2025-03-20")
	}
}

func TestEditDates_RemovedDateDeletesAnswers(t *testing.T) {
	repo := newMockRepo()
	surveys := NewSurveyService(repo, repo, testLogger())
	responses := NewResponseService(repo, repo, testLogger())
	ctx := context.Background()

	created, err := surveys.Create(ctx, "Team Sync", "", []string{"2025-03-01", "2025-03-02"})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}
	keep, remove := created.Dates[0], created.Dates[1]

	if _, err := responses.Submit(ctx, created.ID, "Alice", "tok", []Answer{
		{SurveyDateID: keep.ID, Availability: model.Available},
		{SurveyDateID: remove.ID, Availability: model.Maybe, Note: "only morning"},
	}); err != nil {
		t.Fatalf("setup: Submit() error = %v", err)
	}

	if _, err := surveys.EditDates(ctx, created.ID, "Team Sync", "", []DateEdit{
		{ID: keep.ID, Value: keep.DateValue},
	}); err != nil {
		t.Fatalf("EditDates() error = %v", err)
	}

	// The removed date's answers are gone; the response itself survives
	// with one fewer detail, which the matrix renders as "no answer".
	listed, err := responses.ListBySurvey(ctx, created.ID)
	if err != nil {
		t.Fatalf("ListBySurvey() error = %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("len(responses) = %d, want 1", len(listed))
	}
	if len(listed[0].Details) != 1 {
		t.Fatalf("len(Details) = %d, want 1", len(listed[0].Details))
	}
	if listed[0].Details[0].SurveyDateID != keep.ID {
		t.Errorf("surviving detail references %q, want %q",
			listed[0].Details[0].SurveyDateID, keep.ID)
	}
}

func TestEditDates_BlankedKeptDateCountsAsRemoved(t *testing.T) {
	svc, _ := newTestSurveyService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Team Sync", "", []string{"2025-03-01", "2025-03-02"})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	updated, err := svc.EditDates(ctx, created.ID, "Team Sync", "", []DateEdit{
		{ID: created.Dates[0].ID, Value: created.Dates[0].DateValue},
		{ID: created.Dates[1].ID, Value: "   "},
	})
	if err != nil {
		t.Fatalf("EditDates() error = %v", err)
	}
	if len(updated.Dates) != 1 {
		t.Fatalf("len(Dates) = %d, want 1", len(updated.Dates))
	}
	if updated.Dates[0].ID != created.Dates[0].ID {
		t.Errorf("surviving date = %q, want %q", updated.Dates[0].ID, created.Dates[0].ID)
	}
}

func TestEditDates_ValidationBeforeWrites(t *testing.T) {
	svc, _ := newTestSurveyService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Team Sync", "", []string{"2025-03-01"})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	_, err = svc.EditDates(ctx, created.ID, "", "", nil)
	if err == nil {
		t.Fatal("EditDates() should error on empty title")
	}
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}

	// Nothing was touched.
	unchanged, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if unchanged.Title != "Team Sync" || len(unchanged.Dates) != 1 {
		t.Errorf("survey changed after failed validation: %+v", unchanged)
	}
}
