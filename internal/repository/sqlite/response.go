package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/hiromu/schedo/internal/apperror"
	"github.com/hiromu/schedo/internal/model"
	"github.com/hiromu/schedo/internal/repository"
)

// Compile-time check that *DB implements repository.ResponseRepository.
var _ repository.ResponseRepository = (*DB)(nil)

// CreateResponse inserts a new response row, generating its ID and
// timestamps.
func (db *DB) CreateResponse(ctx context.Context, response *model.Response) error {
	response.ID = xid.New().String()

	now := time.Now()
	response.CreatedAt = now
	response.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO responses (id, survey_id, respondent_name, cookie_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		response.ID,
		response.SurveyID,
		response.RespondentName,
		response.CookieID,
		response.CreatedAt,
		response.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating response: %w", err)
	}

	return nil
}

// CreateDetails inserts one response_details row per detail, generating IDs.
// Each insert is its own statement; a failure mid-way leaves the earlier
// rows committed, matching the service's documented failure policy.
func (db *DB) CreateDetails(ctx context.Context, details []model.ResponseDetail) error {
	now := time.Now()

	for i := range details {
		details[i].ID = xid.New().String()
		details[i].CreatedAt = now

		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO response_details (id, response_id, survey_date_id, availability, note, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			details[i].ID,
			details[i].ResponseID,
			details[i].SurveyDateID,
			string(details[i].Availability),
			details[i].Note,
			details[i].CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: creating response detail: %w", err)
		}
	}

	return nil
}

// GetResponse retrieves a response with all its details.
func (db *DB) GetResponse(ctx context.Context, id string) (*model.ResponseWithDetails, error) {
	var r model.ResponseWithDetails

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, survey_id, respondent_name, cookie_id, created_at, updated_at
		 FROM responses
		 WHERE id = ?`,
		id,
	).Scan(
		&r.ID,
		&r.SurveyID,
		&r.RespondentName,
		&r.CookieID,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("response", id)
		}
		return nil, fmt.Errorf("sqlite: getting response %s: %w", id, err)
	}

	details, err := db.listDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Details = details

	return &r, nil
}

// ListResponses retrieves all responses for a survey, newest submission
// first, each with its details.
func (db *DB) ListResponses(ctx context.Context, surveyID string) ([]model.ResponseWithDetails, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, survey_id, respondent_name, cookie_id, created_at, updated_at
		 FROM responses
		 WHERE survey_id = ?
		 ORDER BY created_at DESC, id DESC`,
		surveyID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing responses: %w", err)
	}
	defer rows.Close()

	var responses []model.ResponseWithDetails
	for rows.Next() {
		var r model.ResponseWithDetails
		if err := rows.Scan(
			&r.ID, &r.SurveyID, &r.RespondentName, &r.CookieID,
			&r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning response row: %w", err)
		}
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating responses: %w", err)
	}

	for i := range responses {
		details, err := db.listDetails(ctx, responses[i].ID)
		if err != nil {
			return nil, err
		}
		responses[i].Details = details
	}

	return responses, nil
}

// CountResponses returns how many responses a survey has received.
func (db *DB) CountResponses(ctx context.Context, surveyID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM responses WHERE survey_id = ?`,
		surveyID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting responses: %w", err)
	}
	return count, nil
}

// FindByCookie returns responses in a survey carrying the given cookie
// token, earliest-created first. The ordering makes "first match" in the
// lookup chain deterministic.
func (db *DB) FindByCookie(ctx context.Context, surveyID, cookieID string) ([]model.Response, error) {
	return db.findResponses(ctx,
		`SELECT id, survey_id, respondent_name, cookie_id, created_at, updated_at
		 FROM responses
		 WHERE survey_id = ? AND cookie_id = ?
		 ORDER BY created_at ASC, id ASC`,
		surveyID, cookieID,
	)
}

// FindByName returns responses in a survey with the exact respondent name
// (case-sensitive), earliest-created first.
func (db *DB) FindByName(ctx context.Context, surveyID, name string) ([]model.Response, error) {
	return db.findResponses(ctx,
		`SELECT id, survey_id, respondent_name, cookie_id, created_at, updated_at
		 FROM responses
		 WHERE survey_id = ? AND respondent_name = ?
		 ORDER BY created_at ASC, id ASC`,
		surveyID, name,
	)
}

func (db *DB) findResponses(ctx context.Context, query string, args ...any) ([]model.Response, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: finding responses: %w", err)
	}
	defer rows.Close()

	var responses []model.Response
	for rows.Next() {
		var r model.Response
		if err := rows.Scan(
			&r.ID, &r.SurveyID, &r.RespondentName, &r.CookieID,
			&r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning response row: %w", err)
		}
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating responses: %w", err)
	}

	return responses, nil
}

// UpdateDetail changes one answer in place, addressed by the detail's own ID.
// The detail keeps its response and survey date associations.
func (db *DB) UpdateDetail(ctx context.Context, id string, availability model.Availability, note string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE response_details SET availability = ?, note = ? WHERE id = ?`,
		string(availability), note, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating response detail %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("response detail", id)
	}

	return nil
}

// TouchResponse bumps a response's updated_at, marking it as edited.
func (db *DB) TouchResponse(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE responses SET updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching response %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("response", id)
	}

	return nil
}

// DeleteDetailsForDates removes every answer referencing the given survey
// dates. Called before the dates themselves are deleted, since the schema
// has no cascade.
func (db *DB) DeleteDetailsForDates(ctx context.Context, dateIDs []string) error {
	if len(dateIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`DELETE FROM response_details WHERE survey_date_id IN (%s)`,
		placeholders(len(dateIDs)),
	)
	if _, err := db.conn.ExecContext(ctx, query, toArgs(dateIDs)...); err != nil {
		return fmt.Errorf("sqlite: deleting response details: %w", err)
	}

	return nil
}

// listDetails retrieves the details for one response, in insertion order
// (xid ids sort by creation time, which is also survey-date submission order).
func (db *DB) listDetails(ctx context.Context, responseID string) ([]model.ResponseDetail, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, response_id, survey_date_id, availability, note, created_at
		 FROM response_details
		 WHERE response_id = ?
		 ORDER BY id ASC`,
		responseID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing response details: %w", err)
	}
	defer rows.Close()

	var details []model.ResponseDetail
	for rows.Next() {
		var d model.ResponseDetail
		var availability string
		if err := rows.Scan(
			&d.ID, &d.ResponseID, &d.SurveyDateID, &availability, &d.Note,
			&d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning response detail row: %w", err)
		}
		d.Availability = model.Availability(availability)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating response details: %w", err)
	}

	return details, nil
}
