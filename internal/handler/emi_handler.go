package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"microloan-service/configs"
	"microloan-service/internal/models"
	"microloan-service/internal/service"
	"microloan-service/pkg/utils"
)

// EMIHandler handles EMI-related HTTP requests
type EMIHandler struct {
	emiService service.EMIService
	logger     *logrus.Logger
	config     *configs.Config
}

// NewEMIHandler creates a new EMIHandler
func NewEMIHandler(emiService service.EMIService, logger *logrus.Logger, config *configs.Config) *EMIHandler {
	return &EMIHandler{
		emiService: emiService,
		logger:     logger,
		config:     config,
	}
}

// MarkPaid handles settling an EMI in full
func (h *EMIHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	lenderID, _, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	emiID, ok := pathID(w, r)
	if !ok {
		return
	}

	payment, err := h.emiService.MarkPaid(r.Context(), emiID, lenderID)
	if err != nil {
		h.logger.Warnf("Failed to mark EMI as paid: %v", err)
		utils.RespondWithError(w, emiErrorCode(err), err.Error())
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "EMI marked as paid", payment)
}

// RecordPayment handles recording a full or partial payment against an EMI
func (h *EMIHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	lenderID, _, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	emiID, ok := pathID(w, r)
	if !ok {
		return
	}

	// Parse request body
	var paymentReq models.RecordPaymentRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&paymentReq); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	payment, err := h.emiService.RecordPayment(r.Context(), emiID, lenderID, &paymentReq)
	if err != nil {
		h.logger.Warnf("Failed to record payment: %v", err)
		utils.RespondWithError(w, emiErrorCode(err), err.Error())
		return
	}

	utils.RespondWithSuccess(w, http.StatusCreated, "payment recorded successfully", payment)
}

// emiErrorCode maps access violations to 403 and everything else to 400
func emiErrorCode(err error) int {
	if errors.Is(err, service.ErrAccessDenied) {
		return http.StatusForbidden
	}
	return http.StatusBadRequest
}
