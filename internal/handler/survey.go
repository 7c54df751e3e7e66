package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hiromu/schedo/internal/aggregate"
	"github.com/hiromu/schedo/internal/model"
	"github.com/hiromu/schedo/internal/service"
)

// SurveyHandler manages the survey CRUD endpoints and the results view.
//
// It holds both services: the results endpoint joins the survey's dates with
// its responses before handing them to the aggregator.
type SurveyHandler struct {
	surveys   *service.SurveyService
	responses *service.ResponseService
	logger    *slog.Logger
}

func NewSurveyHandler(surveys *service.SurveyService, responses *service.ResponseService, logger *slog.Logger) *SurveyHandler {
	return &SurveyHandler{
		surveys:   surveys,
		responses: responses,
		logger:    logger,
	}
}

type createSurveyRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Dates       []string `json:"dates"`
}

type updateSurveyRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Dates       []service.DateEdit `json:"dates"`
}

// dateView decorates a candidate date with its weekend class, which the UI
// uses to colour Saturdays and Sundays.
type dateView struct {
	model.SurveyDate
	Weekend string `json:"weekend,omitempty"`
}

// surveyView is the wire shape for a survey with sorted, decorated dates.
type surveyView struct {
	model.Survey
	Dates []dateView `json:"dates"`
}

func toSurveyView(survey *model.SurveyWithDates) surveyView {
	view := surveyView{
		Survey: survey.Survey,
		Dates:  make([]dateView, 0, len(survey.Dates)),
	}
	for _, date := range aggregate.SortDates(survey.Dates) {
		view.Dates = append(view.Dates, dateView{
			SurveyDate: date,
			Weekend:    aggregate.Weekend(date.DateValue),
		})
	}
	return view
}

// HandleList returns surveys newest-first with dates and response counts.
//
// HTTP: GET /api/surveys?limit=20&offset=0
func (h *SurveyHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	summaries, err := h.surveys.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// HandleCreate creates a survey with its candidate dates.
//
// HTTP: POST /api/surveys
// BODY: {"title": "Team Sync", "description": "", "dates": ["2025-03-01"]}
func (h *SurveyHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSurveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid survey JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	survey, err := h.surveys.Create(r.Context(), req.Title, req.Description, req.Dates)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSurveyView(survey))
}

// HandleGet returns one survey with its sorted dates.
//
// HTTP: GET /api/surveys/{id}
func (h *SurveyHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	survey, err := h.surveys.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSurveyView(survey))
}

// HandleUpdate edits a survey's title, description, and date set. Entries
// carrying an id keep (and possibly re-value) a stored date; entries without
// one are added; stored dates absent from the list are removed along with
// their answers.
//
// HTTP: PUT /api/surveys/{id}
// BODY: {"title": "...", "dates": [{"id": "d1", "value": "2025-03-05"}, {"value": "2025-03-10"}]}
func (h *SurveyHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateSurveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid survey JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	survey, err := h.surveys.EditDates(r.Context(), r.PathValue("id"), req.Title, req.Description, req.Dates)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSurveyView(survey))
}

// tallyView decorates a date tally with its weekend class.
type tallyView struct {
	aggregate.DateTally
	Weekend string `json:"weekend,omitempty"`
}

type resultsResponse struct {
	Survey        surveyView                `json:"survey"`
	ResponseCount int                       `json:"responseCount"`
	Tallies       []tallyView               `json:"tallies"`
	Rows          []aggregate.RespondentRow `json:"rows"`
	Notes         []aggregate.NoteEntry     `json:"notes"`
}

// HandleResults returns the aggregated view of a survey: per-date tallies,
// the respondent×date matrix (newest submission first), and the collected
// "maybe" notes.
//
// HTTP: GET /api/surveys/{id}/results
func (h *SurveyHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	survey, err := h.surveys.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	responses, err := h.responses.ListBySurvey(r.Context(), survey.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	tallies := aggregate.ByDate(survey.Dates, responses)
	views := make([]tallyView, 0, len(tallies))
	for _, tally := range tallies {
		views = append(views, tallyView{
			DateTally: tally,
			Weekend:   aggregate.Weekend(tally.DateValue),
		})
	}

	writeJSON(w, http.StatusOK, resultsResponse{
		Survey:        toSurveyView(survey),
		ResponseCount: len(responses),
		Tallies:       views,
		Rows:          aggregate.Matrix(survey.Dates, responses),
		Notes:         aggregate.Notes(survey.Dates, responses),
	})
}

// HandleListResponses returns a survey's responses newest-first, for the
// organizer's per-survey response listing.
//
// HTTP: GET /api/surveys/{id}/responses
func (h *SurveyHandler) HandleListResponses(w http.ResponseWriter, r *http.Request) {
	// The survey must exist — a missing survey is a hard 404, not an
	// empty list.
	survey, err := h.surveys.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	responses, err := h.responses.ListBySurvey(r.Context(), survey.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if responses == nil {
		responses = []model.ResponseWithDetails{}
	}

	writeJSON(w, http.StatusOK, responses)
}
