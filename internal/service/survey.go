// Package service contains the business logic layer: validation, the
// date-edit diffing, the duplicate-name check, and the multi-step write
// sequences that keep surveys and responses consistent across tables.
//
// Services accept primitives and return domain models and apperror values —
// they know nothing about HTTP. Handlers translate both directions.
//
// CONSISTENCY MODEL:
// Every mutation validates fully before the first write (fail fast, no
// partial state). Once writes begin, each step's failure aborts the
// remaining steps and surfaces the storage error verbatim; already-committed
// steps stay committed. There is no compensating rollback — a deliberate
// weak-consistency choice for a low-stakes scheduling tool.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hiromu/schedo/internal/apperror"
	"github.com/hiromu/schedo/internal/model"
	"github.com/hiromu/schedo/internal/repository"
)

// Validation constants.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	DefaultListLimit     = 20
	MaxListLimit         = 100
)

// DateEdit is one entry of a client-edited date list. A non-empty ID marks a
// kept (possibly changed) stored date; an empty ID marks a new one.
type DateEdit struct {
	ID    string `json:"id,omitempty"`
	Value string `json:"value"`
}

// SurveyService handles survey creation, listing, and the date-edit flow.
//
// It holds both repositories: editing a survey's dates must also remove the
// response details referencing deleted dates, and that cross-table step is
// this layer's responsibility (the storage has no cascade).
type SurveyService struct {
	surveys   repository.SurveyRepository
	responses repository.ResponseRepository
	logger    *slog.Logger
}

func NewSurveyService(surveys repository.SurveyRepository, responses repository.ResponseRepository, logger *slog.Logger) *SurveyService {
	return &SurveyService{
		surveys:   surveys,
		responses: responses,
		logger:    logger,
	}
}

// Create validates and saves a new survey with its candidate dates.
//
// Date values that trim to empty are dropped; at least one must remain.
// The survey row and its date rows are two separate writes: if the second
// fails the survey stays committed without dates, and the storage error is
// surfaced verbatim.
func (s *SurveyService) Create(ctx context.Context, title, description string, dateValues []string) (*model.SurveyWithDates, error) {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if len(description) > MaxDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}

	values, err := cleanDateValues(dateValues)
	if err != nil {
		return nil, err
	}

	survey := &model.Survey{
		Title:       title,
		Description: strings.TrimSpace(description),
	}
	if err := s.surveys.CreateSurvey(ctx, survey); err != nil {
		s.logger.Error("failed to create survey",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating survey: %w", err)
	}

	dates, err := s.surveys.CreateDates(ctx, survey.ID, values)
	if err != nil {
		s.logger.Error("failed to create survey dates",
			slog.String("surveyId", survey.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating survey dates: %w", err)
	}

	s.logger.Info("survey created",
		slog.String("id", survey.ID),
		slog.String("title", survey.Title),
		slog.Int("dates", len(dates)),
	)

	return &model.SurveyWithDates{Survey: *survey, Dates: dates}, nil
}

// Get retrieves a survey with its dates, sorted ascending by date value.
func (s *SurveyService) Get(ctx context.Context, id string) (*model.SurveyWithDates, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "survey ID is required")
	}

	survey, err := s.surveys.GetSurvey(ctx, id)
	if err != nil {
		return nil, err
	}

	dates, err := s.surveys.ListDates(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing survey dates: %w", err)
	}

	return &model.SurveyWithDates{Survey: *survey, Dates: dates}, nil
}

// List retrieves surveys newest-first with dates and response counts.
func (s *SurveyService) List(ctx context.Context, limit, offset int) ([]model.SurveySummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	summaries, err := s.surveys.ListSurveys(ctx, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("failed to list surveys", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing surveys: %w", err)
	}

	return summaries, nil
}

// EditDates updates a survey's title, description, and candidate date set.
//
// The edited list is diffed against the stored set into three disjoint
// groups:
//   - removed: stored dates whose ID is absent from the edited list — their
//     response details are deleted first, then the dates themselves;
//   - kept: edited entries carrying a stored ID — updated in place, so the
//     ID (and every answer referencing it) survives a value change;
//   - added: entries without an ID — inserted as new dates. Existing
//     responses do not gain details for them; their matrix cells read
//     "no answer" until the respondent edits.
func (s *SurveyService) EditDates(ctx context.Context, id, title, description string, edits []DateEdit) (*model.SurveyWithDates, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "survey ID is required")
	}

	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if len(description) > MaxDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}

	// Entries that trim to an empty value are dropped before diffing, so a
	// kept date blanked out by the client counts as removed.
	cleaned := make([]DateEdit, 0, len(edits))
	for _, edit := range edits {
		value := strings.TrimSpace(edit.Value)
		if value == "" {
			continue
		}
		if err := validateDateValue(value); err != nil {
			return nil, err
		}
		cleaned = append(cleaned, DateEdit{ID: edit.ID, Value: value})
	}
	if len(cleaned) == 0 {
		return nil, apperror.ValidationFailed("dates", "at least one date is required")
	}

	survey, err := s.surveys.GetSurvey(ctx, id)
	if err != nil {
		return nil, err
	}

	stored, err := s.surveys.ListDates(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing survey dates: %w", err)
	}

	removed, kept, added, err := DiffDates(stored, cleaned)
	if err != nil {
		return nil, err
	}

	survey.Title = title
	survey.Description = strings.TrimSpace(description)
	if err := s.surveys.UpdateSurvey(ctx, survey); err != nil {
		return nil, fmt.Errorf("updating survey: %w", err)
	}

	// Details first, then the dates they reference: the storage layer has
	// no cascade, so the ordering here is what keeps referential integrity.
	if len(removed) > 0 {
		if err := s.responses.DeleteDetailsForDates(ctx, removed); err != nil {
			return nil, fmt.Errorf("deleting answers for removed dates: %w", err)
		}
		if err := s.surveys.DeleteDates(ctx, removed); err != nil {
			return nil, fmt.Errorf("deleting removed dates: %w", err)
		}
	}

	for _, edit := range kept {
		if err := s.surveys.UpdateDate(ctx, edit.ID, edit.Value); err != nil {
			return nil, fmt.Errorf("updating date %s: %w", edit.ID, err)
		}
	}

	if len(added) > 0 {
		if _, err := s.surveys.CreateDates(ctx, id, added); err != nil {
			return nil, fmt.Errorf("adding new dates: %w", err)
		}
	}

	s.logger.Info("survey dates edited",
		slog.String("id", id),
		slog.Int("removed", len(removed)),
		slog.Int("kept", len(kept)),
		slog.Int("added", len(added)),
	)

	return s.Get(ctx, id)
}

// DiffDates computes the three disjoint edit sets from the stored dates and
// the client-edited list:
//
//	removed — stored IDs absent from the edited list, in stored order
//	kept    — edited entries whose ID exists in the stored set
//	added   — edited entries without an ID, as plain values
//
// An edited entry referencing an ID the survey never had is a validation
// error rather than a silent insert.
func DiffDates(stored []model.SurveyDate, edits []DateEdit) (removed []string, kept []DateEdit, added []string, err error) {
	storedIDs := make(map[string]bool, len(stored))
	for _, date := range stored {
		storedIDs[date.ID] = true
	}

	editedIDs := make(map[string]bool, len(edits))
	for _, edit := range edits {
		if edit.ID == "" {
			added = append(added, edit.Value)
			continue
		}
		if !storedIDs[edit.ID] {
			return nil, nil, nil, apperror.ValidationFailed("dates",
				fmt.Sprintf("unknown date id %s", edit.ID))
		}
		if editedIDs[edit.ID] {
			return nil, nil, nil, apperror.ValidationFailed("dates",
				fmt.Sprintf("duplicate date id %s", edit.ID))
		}
		editedIDs[edit.ID] = true
		kept = append(kept, edit)
	}

	for _, date := range stored {
		if !editedIDs[date.ID] {
			removed = append(removed, date.ID)
		}
	}

	return removed, kept, added, nil
}

func validateTitle(title string) error {
	if title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	return nil
}

func validateDateValue(value string) error {
	if _, err := time.Parse(model.DateLayout, value); err != nil {
		return apperror.ValidationFailed("dates",
			fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", value))
	}
	return nil
}

// cleanDateValues trims the values, drops empties, validates the rest, and
// requires at least one to remain.
func cleanDateValues(dateValues []string) ([]string, error) {
	values := make([]string, 0, len(dateValues))
	for _, value := range dateValues {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if err := validateDateValue(value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return nil, apperror.ValidationFailed("dates", "at least one date is required")
	}
	return values, nil
}
