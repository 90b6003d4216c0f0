package handlers

import (
	"net/http"

	"github.com/rachelandtim/wedding-api/internal/domain"
	"github.com/rachelandtim/wedding-api/internal/http/response"
	"github.com/rachelandtim/wedding-api/pkg/logger"
)

// Leaderboard handles GET /v1/scores.
func (h *Handlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	scores, err := h.scoreRepo.Top(r.Context(), domain.LeaderboardSize)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to load leaderboard", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}

	entries := make([]domain.LeaderboardEntry, 0, len(scores))
	for i, s := range scores {
		entries = append(entries, domain.LeaderboardEntry{
			ID:        s.ID,
			Rank:      i + 1,
			Name:      s.Name,
			Score:     s.Score,
			CreatedAt: s.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"scores": entries})
}

// SubmitScore handles POST /v1/scores.
func (h *Handlers) SubmitScore(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitScoreRequest
	if !decodeJSON(r, &req) {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	score, err := h.scoreRepo.Create(r.Context(), req.Name, *req.Score)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to save score", "error", err)
		response.InternalError(w, "Something went wrong. Please try again.")
		return
	}

	rank, err := h.scoreRepo.RankOf(r.Context(), score.Score)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to compute rank", "error", err)
		rank = 0
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"score": score,
		"rank":  rank,
	})
}
