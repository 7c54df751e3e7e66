// Package aggregate turns stored responses into display-ready projections:
// per-date tallies, a respondent×date matrix, and the collected "maybe"
// notes.
//
// Everything here is a pure function over the rows the repository returns —
// no I/O, no mutation of the inputs. The same inputs always produce the same
// outputs, which is what makes this layer trivially testable.
package aggregate

import (
	"sort"
	"time"

	"github.com/hiromu/schedo/internal/model"
)

// DateTally is the aggregated result for one candidate date.
type DateTally struct {
	DateID      string `json:"dateId"`
	DateValue   string `json:"dateValue"`
	Available   int    `json:"available"`
	Maybe       int    `json:"maybe"`
	Unavailable int    `json:"unavailable"`
	Total       int    `json:"total"`
}

// Cell is one matrix entry: a respondent's answer for one date.
// Answered is false when the response has no detail for that date (e.g. the
// date was added to the survey after the response was submitted).
type Cell struct {
	SurveyDateID string             `json:"surveyDateId"`
	Answered     bool               `json:"answered"`
	Availability model.Availability `json:"availability,omitempty"`
	Note         string             `json:"note,omitempty"`
}

// RespondentRow is one matrix row: a respondent and their answer for every
// date, in date order.
type RespondentRow struct {
	ResponseID     string `json:"responseId"`
	RespondentName string `json:"respondentName"`
	Cells          []Cell `json:"cells"`
}

// NoteEntry is one "maybe" note, with the respondent and date it belongs to.
type NoteEntry struct {
	RespondentName string `json:"respondentName"`
	DateValue      string `json:"dateValue"`
	Note           string `json:"note"`
}

// SortDates returns the dates ordered ascending by date value. The sort is
// stable: dates sharing a value keep their input relative order. The input
// slice is not modified.
func SortDates(dates []model.SurveyDate) []model.SurveyDate {
	sorted := make([]model.SurveyDate, len(dates))
	copy(sorted, dates)
	// ISO date strings compare lexicographically in chronological order.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DateValue < sorted[j].DateValue
	})
	return sorted
}

// ByDate computes one tally per candidate date: how many responses marked it
// available, maybe, and unavailable. A response lacking a detail for a date
// simply contributes nothing to that date's counts.
//
// Output is ordered ascending by date value (stable on ties), regardless of
// input order.
func ByDate(dates []model.SurveyDate, responses []model.ResponseWithDetails) []DateTally {
	tallies := make([]DateTally, 0, len(dates))

	for _, date := range SortDates(dates) {
		tally := DateTally{
			DateID:    date.ID,
			DateValue: date.DateValue,
		}

		for _, response := range responses {
			for _, detail := range response.Details {
				if detail.SurveyDateID != date.ID {
					continue
				}
				switch detail.Availability {
				case model.Available:
					tally.Available++
				case model.Maybe:
					tally.Maybe++
				case model.Unavailable:
					tally.Unavailable++
				}
			}
		}

		tally.Total = tally.Available + tally.Maybe + tally.Unavailable
		tallies = append(tallies, tally)
	}

	return tallies
}

// Matrix builds one row per response, each with one cell per date in sorted
// date order. Rows keep the caller's response order (typically newest
// submission first) — the aggregator does not re-sort them.
func Matrix(dates []model.SurveyDate, responses []model.ResponseWithDetails) []RespondentRow {
	sorted := SortDates(dates)

	rows := make([]RespondentRow, 0, len(responses))
	for _, response := range responses {
		byDate := make(map[string]model.ResponseDetail, len(response.Details))
		for _, detail := range response.Details {
			byDate[detail.SurveyDateID] = detail
		}

		row := RespondentRow{
			ResponseID:     response.ID,
			RespondentName: response.RespondentName,
			Cells:          make([]Cell, 0, len(sorted)),
		}
		for _, date := range sorted {
			cell := Cell{SurveyDateID: date.ID}
			if detail, ok := byDate[date.ID]; ok {
				cell.Answered = true
				cell.Availability = detail.Availability
				cell.Note = detail.Note
			}
			row.Cells = append(row.Cells, cell)
		}
		rows = append(rows, row)
	}

	return rows
}

// Notes collects every "maybe" answer carrying a non-empty note, grouped by
// respondent (responses in caller order, each respondent's notes in date
// order).
func Notes(dates []model.SurveyDate, responses []model.ResponseWithDetails) []NoteEntry {
	sorted := SortDates(dates)

	var entries []NoteEntry
	for _, response := range responses {
		byDate := make(map[string]model.ResponseDetail, len(response.Details))
		for _, detail := range response.Details {
			byDate[detail.SurveyDateID] = detail
		}

		for _, date := range sorted {
			detail, ok := byDate[date.ID]
			if !ok || detail.Availability != model.Maybe || detail.Note == "" {
				continue
			}
			entries = append(entries, NoteEntry{
				RespondentName: response.RespondentName,
				DateValue:      date.DateValue,
				Note:           detail.Note,
			})
		}
	}

	return entries
}

// Weekend classifies a date value for display emphasis: "saturday",
// "sunday", or "" for weekdays.
//
// The value is parsed as a wall-clock calendar date — no timezone
// conversion — so the day-of-week never shifts across a local-time offset.
// Unparseable values classify as "".
func Weekend(dateValue string) string {
	date, err := time.Parse(model.DateLayout, dateValue)
	if err != nil {
		return ""
	}
	switch date.Weekday() {
	case time.Saturday:
		return "saturday"
	case time.Sunday:
		return "sunday"
	}
	return ""
}
