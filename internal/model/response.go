package model

import "time"

// Availability is a respondent's answer for a single candidate date.
//
// The three values form a closed set; anything else is rejected at the
// service boundary. A free-text note is only meaningful for Maybe
// ("can attend, with conditions") — NoteFor collapses the rule into one
// place instead of scattering conditionals across call sites.
type Availability string

const (
	Available   Availability = "available"
	Maybe       Availability = "maybe"
	Unavailable Availability = "unavailable"
)

// Valid reports whether a is one of the three known availability values.
func (a Availability) Valid() bool {
	switch a {
	case Available, Maybe, Unavailable:
		return true
	}
	return false
}

// NoteFor returns the note to store for an answer: the note itself when the
// availability is Maybe, otherwise empty. Every write path goes through this,
// which keeps the "note only with maybe" invariant true at rest.
func NoteFor(a Availability, note string) string {
	if a == Maybe {
		return note
	}
	return ""
}

// Response is one respondent's submission against a Survey.
//
// CookieID is the opaque, client-generated identity token carried so a
// returning visitor can find their own response later. It has no
// cryptographic integrity and is never an authorization credential. Empty
// string means no token was presented.
type Response struct {
	ID             string    `json:"id"             db:"id"`
	SurveyID       string    `json:"surveyId"       db:"survey_id"`
	RespondentName string    `json:"respondentName" db:"respondent_name"`
	CookieID       string    `json:"-"              db:"cookie_id"` // Never exposed over the API
	CreatedAt      time.Time `json:"createdAt"      db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt"      db:"updated_at"`
}

// ResponseDetail is one respondent's availability for one SurveyDate.
// A response is created with exactly one detail per survey date; later edits
// mutate details in place by ID and never change their number.
type ResponseDetail struct {
	ID           string       `json:"id"           db:"id"`
	ResponseID   string       `json:"responseId"   db:"response_id"`
	SurveyDateID string       `json:"surveyDateId" db:"survey_date_id"`
	Availability Availability `json:"availability" db:"availability"`
	Note         string       `json:"note"         db:"note"` // Empty unless Availability == Maybe
	CreatedAt    time.Time    `json:"createdAt"    db:"created_at"`
}

// ResponseWithDetails bundles a response with its per-date answers.
type ResponseWithDetails struct {
	Response
	Details []ResponseDetail `json:"details"`
}
