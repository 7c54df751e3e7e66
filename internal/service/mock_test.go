package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/hiromu/schedo/internal/apperror"
	"github.com/hiromu/schedo/internal/model"
	"github.com/hiromu/schedo/internal/repository"
)

// mockRepo is an in-memory implementation of both repository interfaces.
// The service layer doesn't know or care which implementation it gets —
// that's the point of the interfaces. Slices keep insertion order so the
// mock can reproduce the real repositories' ordering guarantees
// (dates ascending by value, responses newest-first, lookups
// earliest-created first).
type mockRepo struct {
	surveys   []*model.Survey
	dates     []*model.SurveyDate
	responses []*model.Response
	details   []*model.ResponseDetail
	nextID    int
}

var (
	_ repository.SurveyRepository   = (*mockRepo)(nil)
	_ repository.ResponseRepository = (*mockRepo)(nil)
)

func newMockRepo() *mockRepo {
	return &mockRepo{}
}

func (m *mockRepo) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *mockRepo) CreateSurvey(_ context.Context, survey *model.Survey) error {
	survey.ID = m.id("survey")
	now := time.Now()
	survey.CreatedAt = now
	survey.UpdatedAt = now
	stored := *survey
	m.surveys = append(m.surveys, &stored)
	return nil
}

func (m *mockRepo) GetSurvey(_ context.Context, id string) (*model.Survey, error) {
	for _, s := range m.surveys {
		if s.ID == id {
			result := *s
			return &result, nil
		}
	}
	return nil, apperror.NotFound("survey", id)
}

func (m *mockRepo) ListSurveys(ctx context.Context, _ repository.ListOptions) ([]model.SurveySummary, error) {
	result := make([]model.SurveySummary, 0, len(m.surveys))
	// Newest first = reverse insertion order.
	for i := len(m.surveys) - 1; i >= 0; i-- {
		s := m.surveys[i]
		dates, _ := m.ListDates(ctx, s.ID)
		count, _ := m.CountResponses(ctx, s.ID)
		result = append(result, model.SurveySummary{
			Survey:        *s,
			Dates:         dates,
			ResponseCount: count,
		})
	}
	return result, nil
}

func (m *mockRepo) UpdateSurvey(_ context.Context, survey *model.Survey) error {
	for _, s := range m.surveys {
		if s.ID == survey.ID {
			s.Title = survey.Title
			s.Description = survey.Description
			s.UpdatedAt = time.Now()
			return nil
		}
	}
	return apperror.NotFound("survey", survey.ID)
}

func (m *mockRepo) CreateDates(_ context.Context, surveyID string, values []string) ([]model.SurveyDate, error) {
	created := make([]model.SurveyDate, 0, len(values))
	for _, value := range values {
		date := model.SurveyDate{
			ID:        m.id("date"),
			SurveyID:  surveyID,
			DateValue: value,
			CreatedAt: time.Now(),
		}
		stored := date
		m.dates = append(m.dates, &stored)
		created = append(created, date)
	}
	return created, nil
}

func (m *mockRepo) ListDates(_ context.Context, surveyID string) ([]model.SurveyDate, error) {
	var result []model.SurveyDate
	for _, d := range m.dates {
		if d.SurveyID == surveyID {
			result = append(result, *d)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DateValue < result[j].DateValue
	})
	return result, nil
}

func (m *mockRepo) UpdateDate(_ context.Context, id, value string) error {
	for _, d := range m.dates {
		if d.ID == id {
			d.DateValue = value
			return nil
		}
	}
	return apperror.NotFound("survey date", id)
}

func (m *mockRepo) DeleteDates(_ context.Context, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.dates[:0]
	for _, d := range m.dates {
		if !drop[d.ID] {
			kept = append(kept, d)
		}
	}
	m.dates = kept
	return nil
}

func (m *mockRepo) CreateResponse(_ context.Context, response *model.Response) error {
	response.ID = m.id("response")
	now := time.Now()
	response.CreatedAt = now
	response.UpdatedAt = now
	stored := *response
	m.responses = append(m.responses, &stored)
	return nil
}

func (m *mockRepo) CreateDetails(_ context.Context, details []model.ResponseDetail) error {
	for i := range details {
		details[i].ID = m.id("detail")
		details[i].CreatedAt = time.Now()
		stored := details[i]
		m.details = append(m.details, &stored)
	}
	return nil
}

func (m *mockRepo) GetResponse(_ context.Context, id string) (*model.ResponseWithDetails, error) {
	for _, r := range m.responses {
		if r.ID == id {
			result := model.ResponseWithDetails{Response: *r}
			for _, d := range m.details {
				if d.ResponseID == id {
					result.Details = append(result.Details, *d)
				}
			}
			return &result, nil
		}
	}
	return nil, apperror.NotFound("response", id)
}

func (m *mockRepo) ListResponses(ctx context.Context, surveyID string) ([]model.ResponseWithDetails, error) {
	var result []model.ResponseWithDetails
	for i := len(m.responses) - 1; i >= 0; i-- {
		if m.responses[i].SurveyID != surveyID {
			continue
		}
		r, err := m.GetResponse(ctx, m.responses[i].ID)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, nil
}

func (m *mockRepo) CountResponses(_ context.Context, surveyID string) (int, error) {
	count := 0
	for _, r := range m.responses {
		if r.SurveyID == surveyID {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) FindByCookie(_ context.Context, surveyID, cookieID string) ([]model.Response, error) {
	var result []model.Response
	for _, r := range m.responses {
		if r.SurveyID == surveyID && r.CookieID == cookieID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRepo) FindByName(_ context.Context, surveyID, name string) ([]model.Response, error) {
	var result []model.Response
	for _, r := range m.responses {
		if r.SurveyID == surveyID && r.RespondentName == name {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRepo) UpdateDetail(_ context.Context, id string, availability model.Availability, note string) error {
	for _, d := range m.details {
		if d.ID == id {
			d.Availability = availability
			d.Note = note
			return nil
		}
	}
	return apperror.NotFound("response detail", id)
}

func (m *mockRepo) TouchResponse(_ context.Context, id string) error {
	for _, r := range m.responses {
		if r.ID == id {
			r.UpdatedAt = time.Now()
			return nil
		}
	}
	return apperror.NotFound("response", id)
}

func (m *mockRepo) DeleteDetailsForDates(_ context.Context, dateIDs []string) error {
	drop := make(map[string]bool, len(dateIDs))
	for _, id := range dateIDs {
		drop[id] = true
	}
	kept := m.details[:0]
	for _, d := range m.details {
		if !drop[d.SurveyDateID] {
			kept = append(kept, d)
		}
	}
	m.details = kept
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSurveyService(t *testing.T) (*SurveyService, *mockRepo) {
	t.Helper()
	repo := newMockRepo()
	return NewSurveyService(repo, repo, testLogger()), repo
}

func newTestResponseService(t *testing.T) (*ResponseService, *mockRepo) {
	t.Helper()
	repo := newMockRepo()
	return NewResponseService(repo, repo, testLogger()), repo
}
