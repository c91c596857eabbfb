package handler

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"microloan-service/configs"
	"microloan-service/internal/service"
	"microloan-service/pkg/utils"
)

// TrashHandler handles the soft-delete lifecycle of loans
type TrashHandler struct {
	trashService service.TrashService
	logger       *logrus.Logger
	config       *configs.Config
}

// NewTrashHandler creates a new TrashHandler
func NewTrashHandler(trashService service.TrashService, logger *logrus.Logger, config *configs.Config) *TrashHandler {
	return &TrashHandler{
		trashService: trashService,
		logger:       logger,
		config:       config,
	}
}

// List handles retrieving the caller's trashed loans
func (h *TrashHandler) List(w http.ResponseWriter, r *http.Request) {
	lenderID, _, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	loans, err := h.trashService.ListTrash(r.Context(), lenderID)
	if err != nil {
		h.logger.Warnf("Failed to list trash: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to list trash")
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "trash retrieved successfully", loans)
}

// MoveToTrash handles soft-deleting a loan
func (h *TrashHandler) MoveToTrash(w http.ResponseWriter, r *http.Request) {
	lenderID, _, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	loanID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.trashService.MoveToTrash(r.Context(), loanID, lenderID); err != nil {
		h.logger.Warnf("Failed to move loan to trash: %v", err)
		utils.RespondWithError(w, trashErrorCode(err), err.Error())
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "loan moved to trash", nil)
}

// Restore handles restoring a trashed loan within the retention window
func (h *TrashHandler) Restore(w http.ResponseWriter, r *http.Request) {
	lenderID, _, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	loanID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.trashService.Restore(r.Context(), loanID, lenderID); err != nil {
		h.logger.Warnf("Failed to restore loan: %v", err)
		utils.RespondWithError(w, trashErrorCode(err), err.Error())
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "loan restored successfully", nil)
}

// PermanentDelete handles permanently deleting a trashed loan with its
// EMIs and payments
func (h *TrashHandler) PermanentDelete(w http.ResponseWriter, r *http.Request) {
	lenderID, _, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	loanID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.trashService.PermanentDelete(r.Context(), loanID, lenderID); err != nil {
		h.logger.Warnf("Failed to permanently delete loan: %v", err)
		utils.RespondWithError(w, trashErrorCode(err), err.Error())
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "loan permanently deleted", nil)
}

// trashErrorCode maps trash lifecycle errors to HTTP status codes
func trashErrorCode(err error) int {
	switch {
	case errors.Is(err, service.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrRetentionExpired):
		return http.StatusGone
	default:
		return http.StatusBadRequest
	}
}
