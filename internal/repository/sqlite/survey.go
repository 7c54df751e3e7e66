package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/hiromu/schedo/internal/apperror"
	"github.com/hiromu/schedo/internal/model"
	"github.com/hiromu/schedo/internal/repository"
)

// Compile-time check that *DB implements repository.SurveyRepository.
var _ repository.SurveyRepository = (*DB)(nil)

// CreateSurvey inserts a new survey row. The survey's ID and timestamps are
// generated here and written back through the pointer.
func (db *DB) CreateSurvey(ctx context.Context, survey *model.Survey) error {
	survey.ID = xid.New().String()

	now := time.Now()
	survey.CreatedAt = now
	survey.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO surveys (id, title, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		survey.ID,
		survey.Title,
		survey.Description,
		survey.CreatedAt,
		survey.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating survey: %w", err)
	}

	return nil
}

// GetSurvey retrieves a single survey by its ID.
// sql.ErrNoRows is translated to the domain's NotFound error so the handler
// can map it to 404 without knowing about database/sql.
func (db *DB) GetSurvey(ctx context.Context, id string) (*model.Survey, error) {
	var survey model.Survey

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, description, created_at, updated_at
		 FROM surveys
		 WHERE id = ?`,
		id,
	).Scan(
		&survey.ID,
		&survey.Title,
		&survey.Description,
		&survey.CreatedAt,
		&survey.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("survey", id)
		}
		return nil, fmt.Errorf("sqlite: getting survey %s: %w", id, err)
	}

	return &survey, nil
}

// ListSurveys retrieves surveys newest-first with their candidate dates and
// response counts, for the landing-page listing.
func (db *DB) ListSurveys(ctx context.Context, opts repository.ListOptions) ([]model.SurveySummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT s.id, s.title, s.description, s.created_at, s.updated_at,
		        (SELECT COUNT(*) FROM responses r WHERE r.survey_id = s.id)
		 FROM surveys s
		 ORDER BY s.created_at DESC
		 LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing surveys: %w", err)
	}
	defer rows.Close()

	summaries := make([]model.SurveySummary, 0, limit)
	for rows.Next() {
		var s model.SurveySummary
		if err := rows.Scan(
			&s.ID, &s.Title, &s.Description, &s.CreatedAt, &s.UpdatedAt,
			&s.ResponseCount,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning survey row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating surveys: %w", err)
	}

	for i := range summaries {
		dates, err := db.ListDates(ctx, summaries[i].ID)
		if err != nil {
			return nil, err
		}
		summaries[i].Dates = dates
	}

	return summaries, nil
}

// UpdateSurvey modifies a survey's title and description in place.
// ID and created_at are immutable; updated_at is always bumped.
func (db *DB) UpdateSurvey(ctx context.Context, survey *model.Survey) error {
	survey.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE surveys
		 SET title = ?, description = ?, updated_at = ?
		 WHERE id = ?`,
		survey.Title,
		survey.Description,
		survey.UpdatedAt,
		survey.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating survey %s: %w", survey.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("survey", survey.ID)
	}

	return nil
}

// CreateDates inserts one survey_dates row per value and returns the created
// rows. Values are stored as given — ordering and dedup are display concerns.
func (db *DB) CreateDates(ctx context.Context, surveyID string, values []string) ([]model.SurveyDate, error) {
	dates := make([]model.SurveyDate, 0, len(values))
	now := time.Now()

	for _, value := range values {
		date := model.SurveyDate{
			ID:        xid.New().String(),
			SurveyID:  surveyID,
			DateValue: value,
			CreatedAt: now,
		}

		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO survey_dates (id, survey_id, date_value, created_at)
			 VALUES (?, ?, ?, ?)`,
			date.ID,
			date.SurveyID,
			date.DateValue,
			date.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: creating survey date: %w", err)
		}

		dates = append(dates, date)
	}

	return dates, nil
}

// ListDates retrieves all candidate dates for a survey, ascending by
// date_value. ISO date strings sort chronologically, and insertion order
// (id is time-sortable) breaks ties, so the order is stable.
func (db *DB) ListDates(ctx context.Context, surveyID string) ([]model.SurveyDate, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, survey_id, date_value, created_at
		 FROM survey_dates
		 WHERE survey_id = ?
		 ORDER BY date_value ASC, id ASC`,
		surveyID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing survey dates: %w", err)
	}
	defer rows.Close()

	var dates []model.SurveyDate
	for rows.Next() {
		var d model.SurveyDate
		if err := rows.Scan(&d.ID, &d.SurveyID, &d.DateValue, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning survey date row: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating survey dates: %w", err)
	}

	return dates, nil
}

// UpdateDate changes a candidate date's value in place, preserving its ID —
// and therefore every response detail already referencing it.
func (db *DB) UpdateDate(ctx context.Context, id, value string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE survey_dates SET date_value = ? WHERE id = ?`,
		value, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating survey date %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("survey date", id)
	}

	return nil
}

// DeleteDates removes the given survey_dates rows. Response details
// referencing them must be removed first (the service does this) — there is
// no storage-level cascade.
func (db *DB) DeleteDates(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`DELETE FROM survey_dates WHERE id IN (%s)`,
		placeholders(len(ids)),
	)
	if _, err := db.conn.ExecContext(ctx, query, toArgs(ids)...); err != nil {
		return fmt.Errorf("sqlite: deleting survey dates: %w", err)
	}

	return nil
}

// placeholders returns "?, ?, ?" with n question marks, for IN clauses.
// Only the placeholder count is interpolated into the SQL — values still go
// through parameter binding.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
