package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hiromu/schedo/internal/identity"
	"github.com/hiromu/schedo/internal/service"
)

// ResponseHandler manages response submission, editing, and the
// "find my response" lookup.
//
// Submission and lookup resolve the visitor's pseudo-identity from the
// request cookie (creating and setting one if absent) so a returning visitor
// can be matched to their response later. The token is a convenience key,
// not a credential — the lookup falls back to exact name match.
type ResponseHandler struct {
	responses *service.ResponseService
	logger    *slog.Logger
}

func NewResponseHandler(responses *service.ResponseService, logger *slog.Logger) *ResponseHandler {
	return &ResponseHandler{
		responses: responses,
		logger:    logger,
	}
}

type submitResponseRequest struct {
	RespondentName string           `json:"respondentName"`
	Answers        []service.Answer `json:"answers"`
}

type updateResponseRequest struct {
	Answers []service.DetailEdit `json:"answers"`
}

type lookupRequest struct {
	SurveyID       string `json:"surveyId"`
	RespondentName string `json:"respondentName"`
}

type lookupResponse struct {
	ResponseID     string `json:"responseId"`
	RespondentName string `json:"respondentName"`
}

// HandleSubmit submits a new response with one answer per candidate date.
//
// HTTP: POST /api/surveys/{id}/responses
// BODY: {"respondentName": "Alice", "answers": [{"surveyDateId": "d1", "availability": "maybe", "note": "only morning"}]}
func (h *ResponseHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid response JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	// Resolve (or mint) the browser's identity token before writing, so
	// the stored response carries it.
	cookieID := identity.GetOrCreate(identity.NewCookieStore(w, r))

	response, err := h.responses.Submit(r.Context(), r.PathValue("id"), req.RespondentName, cookieID, req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, response)
}

// HandleLookup finds a visitor's previous response in a survey, preferring
// the identity token from the request cookie and falling back to the exact
// name.
//
// HTTP: POST /api/responses/lookup
// BODY: {"surveyId": "s1", "respondentName": "Alice"}
func (h *ResponseHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid lookup JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	cookieID := identity.GetOrCreate(identity.NewCookieStore(w, r))

	response, err := h.responses.Find(r.Context(), req.SurveyID, req.RespondentName, cookieID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, lookupResponse{
		ResponseID:     response.ID,
		RespondentName: response.RespondentName,
	})
}

// HandleGet returns one response with its answers, for the edit form.
//
// HTTP: GET /api/responses/{id}
func (h *ResponseHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	response, err := h.responses.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// HandleUpdate edits an existing response's answers in place.
//
// HTTP: PUT /api/responses/{id}
// BODY: {"answers": [{"detailId": "det1", "availability": "unavailable"}]}
func (h *ResponseHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid response JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	response, err := h.responses.Update(r.Context(), r.PathValue("id"), req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}
