package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/league-engine/services"
	"github.com/google/uuid"
)

type LeagueHandler struct {
	leagueService    services.LeagueService
	scheduleService  services.ScheduleService
	standingsService services.StandingsService
	playoffService   services.PlayoffService
	bracketService   services.BracketService
	resultService    services.ResultService
}

func NewLeagueHandler(
	ls services.LeagueService,
	ss services.ScheduleService,
	sts services.StandingsService,
	ps services.PlayoffService,
	bs services.BracketService,
	rs services.ResultService,
) *LeagueHandler {
	return &LeagueHandler{
		leagueService:    ls,
		scheduleService:  ss,
		standingsService: sts,
		playoffService:   ps,
		bracketService:   bs,
		resultService:    rs,
	}
}

// Create godoc
// @Summary Create a league
// @Tags leagues
// @Accept json
// @Produce json
// @Param input body services.CreateLeagueInput true "League"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /leagues [post]
func (h *LeagueHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}

	var input services.CreateLeagueInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	league, err := h.leagueService.CreateLeague(r.Context(), actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"league": league}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Get a league with its standings snapshot
// @Tags leagues
// @Produce json
// @Param leagueID path string true "League ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /leagues/{leagueID} [get]
func (h *LeagueHandler) Get(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getUUIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	league, err := h.leagueService.GetLeague(r.Context(), leagueID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"league": league}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Delete godoc
// @Summary Delete a league with its matches and standings
// @Tags leagues
// @Produce json
// @Param leagueID path string true "League ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /leagues/{leagueID} [delete]
func (h *LeagueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getUUIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}

	if err := h.scheduleService.DeleteLeague(r.Context(), actor, leagueID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "league deleted"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GenerateSchedule godoc
// @Summary Generate the round-robin schedule
// @Tags schedule
// @Produce json
// @Param leagueID path string true "League ID"
// @Success 201 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string "League is not open"
// @Failure 422 {object} map[string]string "Fewer than two participants"
// @Security BearerAuth
// @Router /leagues/{leagueID}/schedule [post]
func (h *LeagueHandler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getUUIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}

	matches, err := h.scheduleService.GenerateRoundRobin(r.Context(), actor, leagueID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ClearMatches godoc
// @Summary Remove every match and reopen the league
// @Tags schedule
// @Produce json
// @Param leagueID path string true "League ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string "League is completed"
// @Security BearerAuth
// @Router /leagues/{leagueID}/matches [delete]
func (h *LeagueHandler) ClearMatches(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getUUIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}

	deleted, err := h.scheduleService.ClearAllMatches(r.Context(), actor, leagueID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"deleted": deleted}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMatches godoc
// @Summary List league matches ordered by round
// @Tags matches
// @Produce json
// @Param leagueID path string true "League ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /leagues/{leagueID}/matches [get]
func (h *LeagueHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getUUIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.leagueService.ListMatches(r.Context(), leagueID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Standings godoc
// @Summary Compute the current standings table
// @Tags standings
// @Produce json
// @Param leagueID path string true "League ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /leagues/{leagueID}/standings [get]
func (h *LeagueHandler) Standings(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getUUIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	table, err := h.standingsService.ComputeStandings(r.Context(), leagueID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": table}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Completion godoc
// @Summary Report round-robin completion progress
// @Tags standings
// @Produce json
// @Param leagueID path string true "League ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /leagues/{leagueID}/completion [get]
func (h *LeagueHandler) Completion(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getUUIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	completion, err := h.standingsService.CheckCompletion(r.Context(), leagueID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"completion": completion}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CheckPlayoffs godoc
// @Summary Promote the league to playoffs once the round-robin is complete
// @Description Returns a null playoff while regular matches are still open.
// @Tags playoffs
// @Produce json
// @Param leagueID path string true "League ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /leagues/{leagueID}/playoffs/check [post]
func (h *LeagueHandler) CheckPlayoffs(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getUUIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if _, ok := requestActor(w, r); !ok {
		return
	}

	playoff, err := h.playoffService.CheckAndAdvanceToPlayoffs(r.Context(), leagueID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"playoff": playoff}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Bracket godoc
// @Summary Project the league bracket for display
// @Tags playoffs
// @Produce json
// @Param leagueID path string true "League ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /leagues/{leagueID}/bracket [get]
func (h *LeagueHandler) Bracket(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getUUIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.ProjectBracket(r.Context(), leagueID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type bulkApproveInput struct {
	MatchIDs []uuid.UUID `json:"match_ids"`
}

// BulkApprove godoc
// @Summary Approve several pending results at once
// @Description Responds 207 when some matches could not be approved; the approved ones stay approved.
// @Tags matches
// @Accept json
// @Produce json
// @Param leagueID path string true "League ID"
// @Param input body bulkApproveInput true "Match ids"
// @Success 200 {object} services.BulkApprovalResult
// @Success 207 {object} services.BulkApprovalResult
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /leagues/{leagueID}/matches/approve [post]
func (h *LeagueHandler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getUUIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}

	var input bulkApproveInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if len(input.MatchIDs) == 0 {
		badRequestResponse(w, r, errors.New("match_ids must not be empty"))
		return
	}

	result, err := h.resultService.BulkApprove(r.Context(), actor, leagueID, input.MatchIDs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Partial() {
		status = http.StatusMultiStatus
	}
	if err := writeJSON(w, status, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
