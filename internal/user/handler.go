package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/creativeplayground/accounts/internal/activity"
	"github.com/creativeplayground/accounts/internal/httputil"
	"github.com/creativeplayground/accounts/internal/logging"
	"github.com/creativeplayground/accounts/internal/requestctx"
)

// phonePattern matches E.164-style numbers: a plus sign and up to 14 digits.
var phonePattern = regexp.MustCompile(`^\+\d{1,14}$`)

// ActivityLister provides the user's recent request history.
type ActivityLister interface {
	List(ctx context.Context, userID uuid.UUID) ([]activity.Entry, error)
}

// Handler contains HTTP handlers for user profile endpoints
type Handler struct {
	repo     *Repository
	activity ActivityLister
}

func NewHandler(repo *Repository, activityLister ActivityLister) *Handler {
	return &Handler{
		repo:     repo,
		activity: activityLister,
	}
}

// UpdateProfileRequest represents a partial profile update. Absent fields
// are left unchanged.
type UpdateProfileRequest struct {
	Username    *string `json:"username"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
	DateOfBirth *string `json:"date_of_birth"` // YYYY-MM-DD
}

// ActivityResponse wraps the recent activity list
type ActivityResponse struct {
	Activity []activity.Entry `json:"activity"`
}

// GetMe returns the authenticated user's profile
// @Summary      Get current user
// @Description  Return the profile of the authenticated user.
// @Tags         users
// @Produce      json
// @Success      200 {object} User
// @Failure      401 {object} map[string]string "Not authenticated"
// @Failure      404 {object} map[string]string "User not found"
// @Router       /me [get]
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := requestctx.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "authentication required", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	u, err := h.repo.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Warn("authenticated user no longer exists", "user_id", userID)
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to fetch user", "user_id", userID, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to fetch user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, u, http.StatusOK)
}

// UpdateMe applies a partial update to the authenticated user's profile
// @Summary      Update current user
// @Description  Partially update profile fields. Fields left out of the body are unchanged.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body UpdateProfileRequest true "Fields to update"
// @Success      200 {object} User
// @Failure      400 {object} map[string]string "Validation error"
// @Failure      401 {object} map[string]string "Not authenticated"
// @Router       /me [patch]
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := requestctx.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "authentication required", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid profile update body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	update := ProfileUpdate{
		Username:  trimmed(req.Username),
		FirstName: trimmed(req.FirstName),
		LastName:  trimmed(req.LastName),
	}

	if req.PhoneNumber != nil {
		phone := strings.TrimSpace(*req.PhoneNumber)
		if !phonePattern.MatchString(phone) {
			httputil.RespondErrorWithCode(w, "phone number must be in international format, e.g. +14155550123", httputil.CodeInvalidPhoneNumber, http.StatusBadRequest)
			return
		}
		update.PhoneNumber = &phone
	}

	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil || dob.After(time.Now()) {
			httputil.RespondErrorWithCode(w, "date of birth must be a past date in YYYY-MM-DD format", httputil.CodeInvalidDateOfBirth, http.StatusBadRequest)
			return
		}
		update.DateOfBirth = &dob
	}

	u, err := h.repo.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to update profile", "user_id", userID, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update profile", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("profile updated", "user_id", userID)
	httputil.RespondJSON(w, u, http.StatusOK)
}

// GetMyActivity returns the authenticated user's recent requests
// @Summary      Get recent activity
// @Description  Return the last recorded requests for the authenticated user, newest first.
// @Tags         users
// @Produce      json
// @Success      200 {object} ActivityResponse
// @Failure      401 {object} map[string]string "Not authenticated"
// @Router       /me/activity [get]
func (h *Handler) GetMyActivity(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := requestctx.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "authentication required", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	entries, err := h.activity.List(r.Context(), userID)
	if err != nil {
		logger.Error("failed to list user activity", "user_id", userID, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to fetch activity", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, ActivityResponse{Activity: entries}, http.StatusOK)
}

// GetStats returns aggregate user counts
// @Summary      Get user statistics
// @Description  Return total, verified, and recently joined user counts.
// @Tags         users
// @Produce      json
// @Success      200 {object} Stats
// @Failure      500 {object} map[string]string "Internal server error"
// @Router       /stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	stats, err := h.repo.GetStats(r.Context())
	if err != nil {
		logger.Error("failed to fetch user stats", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to fetch stats", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, stats, http.StatusOK)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
