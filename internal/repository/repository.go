package repository

import (
	"context"

	"github.com/hiromu/schedo/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// SurveyRepository persists surveys and their candidate dates.
//
// The storage layer never cascades: deleting dates does not delete the
// response details referencing them. Multi-row consistency (delete details
// first, then dates) is the service layer's job, so the interface exposes
// the individual steps rather than a combined operation.
type SurveyRepository interface {
	CreateSurvey(ctx context.Context, survey *model.Survey) error
	GetSurvey(ctx context.Context, id string) (*model.Survey, error)
	ListSurveys(ctx context.Context, opts ListOptions) ([]model.SurveySummary, error)
	UpdateSurvey(ctx context.Context, survey *model.Survey) error

	CreateDates(ctx context.Context, surveyID string, values []string) ([]model.SurveyDate, error)
	ListDates(ctx context.Context, surveyID string) ([]model.SurveyDate, error)
	UpdateDate(ctx context.Context, id, value string) error
	DeleteDates(ctx context.Context, ids []string) error
}

// ResponseRepository persists responses and their per-date details.
//
// FindByCookie and FindByName return matches ordered earliest-created first
// (id as tiebreaker) so that "first match" in the lookup chain is
// deterministic rather than storage-defined.
type ResponseRepository interface {
	CreateResponse(ctx context.Context, response *model.Response) error
	CreateDetails(ctx context.Context, details []model.ResponseDetail) error
	GetResponse(ctx context.Context, id string) (*model.ResponseWithDetails, error)
	ListResponses(ctx context.Context, surveyID string) ([]model.ResponseWithDetails, error)
	CountResponses(ctx context.Context, surveyID string) (int, error)

	FindByCookie(ctx context.Context, surveyID, cookieID string) ([]model.Response, error)
	FindByName(ctx context.Context, surveyID, name string) ([]model.Response, error)

	UpdateDetail(ctx context.Context, id string, availability model.Availability, note string) error
	TouchResponse(ctx context.Context, id string) error
	DeleteDetailsForDates(ctx context.Context, dateIDs []string) error
}
