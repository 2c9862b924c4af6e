package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"millionMetersAPI/middleware"
	"millionMetersAPI/services"
)

type BadgeHandler struct {
	badgeService *services.BadgeService
}

func NewBadgeHandler(badgeService *services.BadgeService) *BadgeHandler {
	return &BadgeHandler{
		badgeService: badgeService,
	}
}

// GetBadges returns the stored badge document, computing it first for users
// who have never been reconciled.
func (h *BadgeHandler) GetBadges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	data, err := h.badgeService.Badges(ctx, userID)
	if err != nil {
		log.Printf("Failed to load badges for user %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Error loading badges")
		return
	}

	respondWithJSON(w, http.StatusOK, data)
}

// RefreshBadges runs a reconciliation pass and returns any newly earned
// badges so the client can show the celebration.
func (h *BadgeHandler) RefreshBadges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	earned, err := h.badgeService.ReconcileUser(ctx, userID)
	if err != nil {
		log.Printf("Badge refresh failed for user %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Error refreshing badges")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"newlyEarned": earned,
	})
}

type grantBadgeRequest struct {
	UserID  string `json:"userId"`
	BadgeID string `json:"badgeId"`
}

// GrantBadge is the admin endpoint for manual badges.
func (h *BadgeHandler) GrantBadge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req grantBadgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.BadgeID == "" {
		respondWithError(w, http.StatusBadRequest, "userId and badgeId are required")
		return
	}

	if err := h.badgeService.GrantManualBadge(ctx, req.UserID, req.BadgeID); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

// Migrate sweeps every user through reconciliation. Used to backfill badge
// documents after rule changes.
func (h *BadgeHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	processed, failed, err := h.badgeService.ReconcileAll(ctx)
	if err != nil {
		log.Printf("Badge migration failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Migration failed")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{
		"processed": processed,
		"failed":    failed,
	})
}
