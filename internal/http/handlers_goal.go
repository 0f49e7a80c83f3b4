package http

import (
	"net/http"
	"time"

	"risparmi/internal/core"
	"risparmi/internal/services"
)

type createGoalRequest struct {
	Description  string `json:"description"`
	TargetAmount string `json:"target_amount"`
	TargetDate   string `json:"target_date"`
	Icon         string `json:"icon"`
}

type updateGoalRequest struct {
	Description  *string `json:"description"`
	TargetAmount *string `json:"target_amount"`
	SavedAmount  *string `json:"saved_amount"`
	TargetDate   *string `json:"target_date"`
	Status       *string `json:"status"`
	Icon         *string `json:"icon"`
}

type contributeRequest struct {
	Amount string `json:"amount"`
}

type goalResponse struct {
	ID              string `json:"id"`
	Description     string `json:"description"`
	TargetAmount    string `json:"target_amount"`
	SavedAmount     string `json:"saved_amount"`
	TargetDate      string `json:"target_date"`
	Status          string `json:"status"`
	Icon            string `json:"icon,omitempty"`
	Progress        string `json:"progress"`
	RemainingAmount string `json:"remaining_amount"`
}

func toGoalResponse(res services.GoalResult) goalResponse {
	return goalResponse{
		ID:              res.Goal.ID.String(),
		Description:     res.Goal.Description,
		TargetAmount:    core.FormatAmount(res.Goal.TargetAmount),
		SavedAmount:     core.FormatAmount(res.Goal.SavedAmount),
		TargetDate:      res.Goal.TargetDate.UTC().Format(dateLayout),
		Status:          string(res.Goal.Status),
		Icon:            res.Goal.Icon,
		Progress:        res.Progress.StringFixed(1),
		RemainingAmount: core.FormatAmount(res.Remaining),
	}
}

func (h *handlers) createGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	var req createGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	target, err := core.ParseAmount(req.TargetAmount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	targetDate, err := parseDate(req.TargetDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.goals.CreateGoal(r.Context(), services.CreateGoalInput{
		UserID:       userID,
		Description:  sanitizeInput(req.Description),
		TargetAmount: target,
		TargetDate:   targetDate,
		Icon:         sanitizeInput(req.Icon),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toGoalResponse(res))
}

func (h *handlers) listGoals(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	results, err := h.goals.ListGoals(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]goalResponse, len(results))
	for i, res := range results {
		out[i] = toGoalResponse(res)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}
	goalID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.goals.GetGoal(r.Context(), userID, goalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(res))
}

func (h *handlers) updateGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}
	goalID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	in := services.UpdateGoalInput{UserID: userID, GoalID: goalID}

	if req.Description != nil {
		d := sanitizeInput(*req.Description)
		in.Description = &d
	}
	if req.TargetAmount != nil {
		target, err := core.ParseAmount(*req.TargetAmount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		in.TargetAmount = &target
	}
	if req.SavedAmount != nil {
		saved, err := core.ParseNonNegativeAmount(*req.SavedAmount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		in.SavedAmount = &saved
	}
	if req.TargetDate != nil {
		var date time.Time
		if date, err = parseDate(*req.TargetDate); err != nil {
			writeError(w, r, err)
			return
		}
		in.TargetDate = &date
	}
	if req.Status != nil {
		status := core.GoalStatus(sanitizeInput(*req.Status))
		in.Status = &status
	}
	if req.Icon != nil {
		icon := sanitizeInput(*req.Icon)
		in.Icon = &icon
	}

	res, err := h.goals.UpdateGoal(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(res))
}

func (h *handlers) deleteGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}
	goalID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.goals.DeleteGoal(r.Context(), userID, goalID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) contributeToGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}
	goalID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req contributeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.goals.ContributeToGoal(r.Context(), userID, goalID, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(res))
}

func (h *handlers) cumulativeSavings(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	total, err := h.goals.CumulativeSavings(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"cumulative_savings": core.FormatAmount(total),
	})
}

type goalEventResponse struct {
	GoalID     string `json:"goal_id"`
	Event      string `json:"event"`
	Amount     string `json:"amount"`
	OccurredAt string `json:"occurred_at"`
}

func (h *handlers) listGoalEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	events, err := h.goals.GoalEvents(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]goalEventResponse, len(events))
	for i, ev := range events {
		out[i] = goalEventResponse{
			GoalID:     ev.GoalID.String(),
			Event:      ev.Event,
			Amount:     core.FormatAmount(ev.Amount),
			OccurredAt: ev.OccurredAt.UTC().Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type monthlyNetResponse struct {
	Month      string `json:"month"`
	Income     string `json:"income"`
	Expense    string `json:"expense"`
	Net        string `json:"net"`
	HasSummary bool   `json:"has_summary"`
}

func (h *handlers) monthlySavings(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	nets, err := h.goals.MonthlyNets(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]monthlyNetResponse, len(nets))
	for i, n := range nets {
		out[i] = monthlyNetResponse{
			Month:      n.Month,
			Income:     core.FormatAmount(n.Income),
			Expense:    core.FormatAmount(n.Expense),
			Net:        core.FormatAmount(n.Net),
			HasSummary: n.HasSummary,
		}
	}
	writeJSON(w, http.StatusOK, out)
}
