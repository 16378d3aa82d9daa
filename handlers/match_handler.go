package handlers

import (
	"net/http"
	"time"

	"github.com/Dosada05/league-engine/models"
	"github.com/Dosada05/league-engine/services"
	"github.com/google/uuid"
)

type MatchHandler struct {
	resultService services.ResultService
}

func NewMatchHandler(rs services.ResultService) *MatchHandler {
	return &MatchHandler{resultService: rs}
}

type submitResultInput struct {
	WinnerID string       `json:"winner_id"`
	Score    models.Score `json:"score"`
}

type reasonInput struct {
	Reason string `json:"reason"`
}

type correctResultInput struct {
	WinnerID string       `json:"winner_id"`
	Score    models.Score `json:"score"`
	Reason   string       `json:"reason"`
}

type rescheduleInput struct {
	ProposedDate time.Time `json:"proposed_date"`
	Reason       string    `json:"reason"`
}

type walkoverInput struct {
	ForfeitingPlayerID string `json:"forfeiting_player_id"`
	Reason             string `json:"reason"`
}

// matchAction resolves the match id and caller shared by every match endpoint, runs op
// and writes the updated match.
func (h *MatchHandler) matchAction(w http.ResponseWriter, r *http.Request, op func(actor models.Actor, matchID uuid.UUID) (*models.Match, error)) {
	matchID, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}

	match, err := op(actor, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Start godoc
// @Summary Mark a scheduled match as in progress
// @Tags matches
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string "Invalid transition"
// @Security BearerAuth
// @Router /matches/{matchID}/start [post]
func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.matchAction(w, r, func(actor models.Actor, matchID uuid.UUID) (*models.Match, error) {
		return h.resultService.StartMatch(r.Context(), actor, matchID)
	})
}

// SubmitResult godoc
// @Summary Submit a result for approval
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param input body submitResultInput true "Result"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string "Invalid transition"
// @Failure 422 {object} map[string]string "Invalid score"
// @Security BearerAuth
// @Router /matches/{matchID}/result [post]
func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	var input submitResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.matchAction(w, r, func(actor models.Actor, matchID uuid.UUID) (*models.Match, error) {
		return h.resultService.SubmitResult(r.Context(), actor, matchID, input.WinnerID, input.Score)
	})
}

// Approve godoc
// @Summary Approve a submitted result
// @Tags matches
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string "Invalid transition"
// @Security BearerAuth
// @Router /matches/{matchID}/approve [post]
func (h *MatchHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.matchAction(w, r, func(actor models.Actor, matchID uuid.UUID) (*models.Match, error) {
		return h.resultService.Approve(r.Context(), actor, matchID)
	})
}

// Reject godoc
// @Summary Reject a submitted result
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param input body reasonInput true "Reason"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 422 {object} map[string]string "Reason required"
// @Security BearerAuth
// @Router /matches/{matchID}/reject [post]
func (h *MatchHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var input reasonInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.matchAction(w, r, func(actor models.Actor, matchID uuid.UUID) (*models.Match, error) {
		return h.resultService.Reject(r.Context(), actor, matchID, input.Reason)
	})
}

// Correct godoc
// @Summary Correct the result of a completed match
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param input body correctResultInput true "Corrected result"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /matches/{matchID}/correct [post]
func (h *MatchHandler) Correct(w http.ResponseWriter, r *http.Request) {
	var input correctResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.matchAction(w, r, func(actor models.Actor, matchID uuid.UUID) (*models.Match, error) {
		return h.resultService.Correct(r.Context(), actor, matchID, input.Score, input.WinnerID, input.Reason)
	})
}

// Reschedule godoc
// @Summary Propose a new date for a match
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param input body rescheduleInput true "New date"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 422 {object} map[string]string "Date required"
// @Security BearerAuth
// @Router /matches/{matchID}/reschedule [post]
func (h *MatchHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var input rescheduleInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.matchAction(w, r, func(actor models.Actor, matchID uuid.UUID) (*models.Match, error) {
		return h.resultService.Reschedule(r.Context(), actor, matchID, input.ProposedDate, input.Reason)
	})
}

// Postpone godoc
// @Summary Postpone a match
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param input body reasonInput true "Reason"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /matches/{matchID}/postpone [post]
func (h *MatchHandler) Postpone(w http.ResponseWriter, r *http.Request) {
	var input reasonInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.matchAction(w, r, func(actor models.Actor, matchID uuid.UUID) (*models.Match, error) {
		return h.resultService.Postpone(r.Context(), actor, matchID, input.Reason)
	})
}

// Cancel godoc
// @Summary Cancel a match
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param input body reasonInput true "Reason"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /matches/{matchID}/cancel [post]
func (h *MatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var input reasonInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.matchAction(w, r, func(actor models.Actor, matchID uuid.UUID) (*models.Match, error) {
		return h.resultService.Cancel(r.Context(), actor, matchID, input.Reason)
	})
}

// Walkover godoc
// @Summary Award the match to the opponent of a forfeiting side
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param input body walkoverInput true "Forfeit"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /matches/{matchID}/walkover [post]
func (h *MatchHandler) Walkover(w http.ResponseWriter, r *http.Request) {
	var input walkoverInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.matchAction(w, r, func(actor models.Actor, matchID uuid.UUID) (*models.Match, error) {
		return h.resultService.ProcessWalkover(r.Context(), actor, matchID, input.ForfeitingPlayerID, input.Reason)
	})
}
