package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"microloan-service/configs"
	"microloan-service/internal/models"
	"microloan-service/internal/service"
	"microloan-service/pkg/utils"
)

// PaymentHandler handles payment-related HTTP requests
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *logrus.Logger
	config         *configs.Config
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService service.PaymentService, logger *logrus.Logger, config *configs.Config) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
		config:         config,
	}
}

// GetByLoanID handles retrieving payments for a specific loan
func (h *PaymentHandler) GetByLoanID(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	loanID, ok := pathID(w, r)
	if !ok {
		return
	}

	payments, err := h.paymentService.GetByLoanID(r.Context(), loanID, userID, models.Role(role))
	if err != nil {
		h.logger.Warnf("Failed to get payments: %v", err)
		utils.RespondWithError(w, loanErrorCode(err), "payments not found")
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "payments retrieved successfully", payments)
}

// GetHistory handles retrieving the caller's payment history across loans
func (h *PaymentHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	payments, err := h.paymentService.GetHistory(r.Context(), userID, models.Role(role))
	if err != nil {
		h.logger.Warnf("Failed to get payment history: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to get payment history")
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "payment history retrieved successfully", payments)
}
