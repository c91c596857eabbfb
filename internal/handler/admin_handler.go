package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"microloan-service/configs"
	"microloan-service/internal/service"
	"microloan-service/pkg/utils"
)

// AdminHandler handles administrative HTTP requests
type AdminHandler struct {
	userService  service.UserService
	trashService service.TrashService
	logger       *logrus.Logger
	config       *configs.Config
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(userService service.UserService, trashService service.TrashService, logger *logrus.Logger, config *configs.Config) *AdminHandler {
	return &AdminHandler{
		userService:  userService,
		trashService: trashService,
		logger:       logger,
		config:       config,
	}
}

// GetPendingUsers handles retrieving users awaiting approval
func (h *AdminHandler) GetPendingUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.GetPendingApproval(r.Context())
	if err != nil {
		h.logger.Warnf("Failed to get pending users: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to get pending users")
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "pending users retrieved successfully", users)
}

// ApproveUser handles activating a pending user account
func (h *AdminHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.userService.Approve(r.Context(), userID); err != nil {
		h.logger.Warnf("Failed to approve user: %v", err)
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "user approved successfully", nil)
}

// DeactivateUser handles disabling a user account
func (h *AdminHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.userService.Deactivate(r.Context(), userID); err != nil {
		h.logger.Warnf("Failed to deactivate user: %v", err)
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "user deactivated successfully", nil)
}

// VerifyKYC handles marking a user's KYC documents as verified
func (h *AdminHandler) VerifyKYC(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.userService.VerifyKYC(r.Context(), userID); err != nil {
		h.logger.Warnf("Failed to verify KYC: %v", err)
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "KYC verified successfully", nil)
}

// PurgeTrash handles an on-demand purge of trashed loans past the
// retention window
func (h *AdminHandler) PurgeTrash(w http.ResponseWriter, r *http.Request) {
	purged, err := h.trashService.PurgeExpired(r.Context())
	if err != nil {
		h.logger.Warnf("Failed to purge trash: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to purge trash")
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "trash purged successfully", map[string]interface{}{
		"purged": purged,
	})
}
