package handlers

import (
	"context"
	"net/http"
	"time"

	"millionMetersAPI/middleware"
	"millionMetersAPI/services"
)

type TeamHandler struct {
	leaderboardService *services.LeaderboardService
}

func NewTeamHandler(leaderboardService *services.LeaderboardService) *TeamHandler {
	return &TeamHandler{
		leaderboardService: leaderboardService,
	}
}

func (h *TeamHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	board, err := h.leaderboardService.GetLeaderboard(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Error loading leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, board)
}

func (h *TeamHandler) GetTeamProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if _, ok := middleware.GetUserID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	progress, err := h.leaderboardService.GetTeamProgress(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Error loading team progress")
		return
	}

	respondWithJSON(w, http.StatusOK, progress)
}
