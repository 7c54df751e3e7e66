// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// DateLayout is the wire and storage format for candidate dates.
//
// Dates are calendar dates with no time component. We keep them as plain
// "2006-01-02" strings end to end: ISO dates compare lexicographically in
// chronological order, so sorting needs no parsing, and we never pass them
// through time.Time conversions that could shift the day across a timezone
// boundary.
const DateLayout = "2006-01-02"

// Survey is the root aggregate: an organizer-created poll with a title,
// optional description, and one or more candidate dates.
//
// Description uses an empty string as the zero value rather than a nullable
// pointer — simpler to work with and safe to display.
type Survey struct {
	ID          string    `json:"id"          db:"id"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"` // May be empty
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}

// SurveyDate is one candidate calendar date belonging to a Survey.
//
// DateValue is a DateLayout string. Dates are not required to be unique or
// ordered at rest — consumers sort by DateValue for display.
type SurveyDate struct {
	ID        string    `json:"id"        db:"id"`
	SurveyID  string    `json:"surveyId"  db:"survey_id"`
	DateValue string    `json:"dateValue" db:"date_value"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// SurveyWithDates bundles a survey with its candidate dates, the shape the
// view and response flows work with.
type SurveyWithDates struct {
	Survey
	Dates []SurveyDate `json:"dates"`
}

// SurveySummary is a listing row: the survey, its dates, and how many
// responses it has received so far.
type SurveySummary struct {
	Survey
	Dates         []SurveyDate `json:"dates"`
	ResponseCount int          `json:"responseCount"`
}
