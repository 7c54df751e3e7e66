package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hiromu/schedo/internal/apperror"
	"github.com/hiromu/schedo/internal/model"
	"github.com/hiromu/schedo/internal/repository"
)

const (
	MaxNameLength = 100
	MaxNoteLength = 500
)

// Answer is one submitted availability for one candidate date.
type Answer struct {
	SurveyDateID string             `json:"surveyDateId"`
	Availability model.Availability `json:"availability"`
	Note         string             `json:"note"`
}

// DetailEdit is one edited answer, addressed by the detail's own ID (not by
// date) so edits always land on the existing row.
type DetailEdit struct {
	DetailID     string             `json:"detailId"`
	Availability model.Availability `json:"availability"`
	Note         string             `json:"note"`
}

// ResponseService handles response submission, editing, and the weak-identity
// lookup used by the "edit my response" flow.
type ResponseService struct {
	surveys   repository.SurveyRepository
	responses repository.ResponseRepository
	logger    *slog.Logger
}

func NewResponseService(surveys repository.SurveyRepository, responses repository.ResponseRepository, logger *slog.Logger) *ResponseService {
	return &ResponseService{
		surveys:   surveys,
		responses: responses,
		logger:    logger,
	}
}

// Submit validates and saves a new response with one detail per survey date.
//
// The duplicate-name rejection is a pre-insert existence check, not a
// storage constraint: two submissions racing under the same name can both
// pass it. Accepted and documented — this is a scheduling poll, not a
// banking ledger.
//
// Notes are forced empty unless the availability is "maybe", so the
// note-only-with-maybe invariant holds at rest no matter what the client
// sent.
func (s *ResponseService) Submit(ctx context.Context, surveyID, name, cookieID string, answers []Answer) (*model.ResponseWithDetails, error) {
	surveyID = strings.TrimSpace(surveyID)
	if surveyID == "" {
		return nil, apperror.ValidationFailed("surveyId", "survey ID is required")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("respondentName", "name is required")
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("respondentName",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}

	if _, err := s.surveys.GetSurvey(ctx, surveyID); err != nil {
		return nil, err
	}

	dates, err := s.surveys.ListDates(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("listing survey dates: %w", err)
	}

	byDate, err := answersByDate(dates, answers)
	if err != nil {
		return nil, err
	}

	// Existence check before insert; see the race note above.
	existing, err := s.responses.FindByName(ctx, surveyID, name)
	if err != nil {
		return nil, fmt.Errorf("checking for duplicate name: %w", err)
	}
	if len(existing) > 0 {
		return nil, apperror.Conflict("this name is already used in this survey, pick another")
	}

	response := &model.Response{
		SurveyID:       surveyID,
		RespondentName: name,
		CookieID:       cookieID,
	}
	if err := s.responses.CreateResponse(ctx, response); err != nil {
		s.logger.Error("failed to create response",
			slog.String("surveyId", surveyID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating response: %w", err)
	}

	// One detail per survey date, in date order.
	details := make([]model.ResponseDetail, 0, len(dates))
	for _, date := range dates {
		answer := byDate[date.ID]
		details = append(details, model.ResponseDetail{
			ResponseID:   response.ID,
			SurveyDateID: date.ID,
			Availability: answer.Availability,
			Note:         model.NoteFor(answer.Availability, strings.TrimSpace(answer.Note)),
		})
	}
	if err := s.responses.CreateDetails(ctx, details); err != nil {
		s.logger.Error("failed to create response details",
			slog.String("responseId", response.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating response details: %w", err)
	}

	s.logger.Info("response submitted",
		slog.String("id", response.ID),
		slog.String("surveyId", surveyID),
		slog.String("respondent", name),
	)

	return &model.ResponseWithDetails{Response: *response, Details: details}, nil
}

// Update edits an existing response's answers in place. Each edit addresses
// one of the response's own details by ID; the number of details never
// changes. The parent response's updated_at is bumped afterwards.
func (s *ResponseService) Update(ctx context.Context, responseID string, edits []DetailEdit) (*model.ResponseWithDetails, error) {
	responseID = strings.TrimSpace(responseID)
	if responseID == "" {
		return nil, apperror.ValidationFailed("id", "response ID is required")
	}
	if len(edits) == 0 {
		return nil, apperror.ValidationFailed("answers", "at least one answer is required")
	}

	response, err := s.responses.GetResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}

	ownDetails := make(map[string]bool, len(response.Details))
	for _, detail := range response.Details {
		ownDetails[detail.ID] = true
	}

	// Validate every edit before the first write.
	seen := make(map[string]bool, len(edits))
	for _, edit := range edits {
		if !ownDetails[edit.DetailID] {
			return nil, apperror.ValidationFailed("answers",
				fmt.Sprintf("answer %s does not belong to this response", edit.DetailID))
		}
		if seen[edit.DetailID] {
			return nil, apperror.ValidationFailed("answers",
				fmt.Sprintf("duplicate answer %s", edit.DetailID))
		}
		seen[edit.DetailID] = true
		if err := validateAnswer(edit.Availability, edit.Note); err != nil {
			return nil, err
		}
	}

	for _, edit := range edits {
		note := model.NoteFor(edit.Availability, strings.TrimSpace(edit.Note))
		if err := s.responses.UpdateDetail(ctx, edit.DetailID, edit.Availability, note); err != nil {
			return nil, fmt.Errorf("updating answer %s: %w", edit.DetailID, err)
		}
	}

	if err := s.responses.TouchResponse(ctx, responseID); err != nil {
		return nil, fmt.Errorf("updating response timestamp: %w", err)
	}

	s.logger.Info("response updated",
		slog.String("id", responseID),
		slog.Int("answers", len(edits)),
	)

	return s.responses.GetResponse(ctx, responseID)
}

// Find locates a returning visitor's response in a survey.
//
// Precedence is a fallback chain, not a merge: an identity-token match wins
// outright; the name is only consulted when the token matches nothing. The
// repositories return matches earliest-created first, so "first match" is
// deterministic.
func (s *ResponseService) Find(ctx context.Context, surveyID, name, cookieID string) (*model.Response, error) {
	surveyID = strings.TrimSpace(surveyID)
	if surveyID == "" {
		return nil, apperror.ValidationFailed("surveyId", "survey ID is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("respondentName", "name is required")
	}

	if cookieID != "" {
		matches, err := s.responses.FindByCookie(ctx, surveyID, cookieID)
		if err != nil {
			return nil, fmt.Errorf("finding response by identity: %w", err)
		}
		if len(matches) > 0 {
			return &matches[0], nil
		}
	}

	matches, err := s.responses.FindByName(ctx, surveyID, name)
	if err != nil {
		return nil, fmt.Errorf("finding response by name: %w", err)
	}
	if len(matches) > 0 {
		return &matches[0], nil
	}

	return nil, &apperror.AppError{
		Err:     apperror.ErrNotFound,
		Message: "no response found, check the name and survey ID",
	}
}

// Get retrieves a response with its details, for the edit form.
func (s *ResponseService) Get(ctx context.Context, id string) (*model.ResponseWithDetails, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "response ID is required")
	}
	return s.responses.GetResponse(ctx, id)
}

// ListBySurvey retrieves a survey's responses newest-first, with details.
// Used by the results view and the organizer's response listing.
func (s *ResponseService) ListBySurvey(ctx context.Context, surveyID string) ([]model.ResponseWithDetails, error) {
	surveyID = strings.TrimSpace(surveyID)
	if surveyID == "" {
		return nil, apperror.ValidationFailed("surveyId", "survey ID is required")
	}

	responses, err := s.responses.ListResponses(ctx, surveyID)
	if err != nil {
		s.logger.Error("failed to list responses",
			slog.String("surveyId", surveyID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing responses: %w", err)
	}

	return responses, nil
}

// answersByDate validates that the answers cover every survey date exactly
// once, and indexes them by date ID.
func answersByDate(dates []model.SurveyDate, answers []Answer) (map[string]Answer, error) {
	dateIDs := make(map[string]bool, len(dates))
	for _, date := range dates {
		dateIDs[date.ID] = true
	}

	byDate := make(map[string]Answer, len(answers))
	for _, answer := range answers {
		if !dateIDs[answer.SurveyDateID] {
			return nil, apperror.ValidationFailed("answers",
				fmt.Sprintf("unknown date id %s", answer.SurveyDateID))
		}
		if _, dup := byDate[answer.SurveyDateID]; dup {
			return nil, apperror.ValidationFailed("answers",
				fmt.Sprintf("duplicate answer for date %s", answer.SurveyDateID))
		}
		if err := validateAnswer(answer.Availability, answer.Note); err != nil {
			return nil, err
		}
		byDate[answer.SurveyDateID] = answer
	}

	for _, date := range dates {
		if _, ok := byDate[date.ID]; !ok {
			return nil, apperror.ValidationFailed("answers",
				fmt.Sprintf("missing answer for date %s", date.DateValue))
		}
	}

	return byDate, nil
}

func validateAnswer(availability model.Availability, note string) error {
	if !availability.Valid() {
		return apperror.ValidationFailed("availability",
			fmt.Sprintf("invalid availability %q", availability))
	}
	if len(note) > MaxNoteLength {
		return apperror.ValidationFailed("note",
			fmt.Sprintf("note must be %d characters or less", MaxNoteLength))
	}
	return nil
}
