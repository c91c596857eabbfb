package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"microloan-service/configs"
	"microloan-service/internal/models"
	"microloan-service/internal/service"
	"microloan-service/pkg/utils"
)

// LoanHandler handles loan-related HTTP requests
type LoanHandler struct {
	loanService service.LoanService
	logger      *logrus.Logger
	config      *configs.Config
}

// NewLoanHandler creates a new LoanHandler
func NewLoanHandler(loanService service.LoanService, logger *logrus.Logger, config *configs.Config) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
		logger:      logger,
		config:      config,
	}
}

// Create handles loan issuance by a lender
func (h *LoanHandler) Create(w http.ResponseWriter, r *http.Request) {
	lenderID, _, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	// Parse request body
	var loanRequest models.LoanRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&loanRequest); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	// Create the loan
	loanID, err := h.loanService.Create(r.Context(), &loanRequest, lenderID)
	if err != nil {
		h.logger.Warnf("Failed to create loan: %v", err)
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Return success response
	utils.RespondWithSuccess(w, http.StatusCreated, "loan created successfully", map[string]interface{}{
		"loan_id": loanID,
	})
}

// GetAll handles retrieving the caller's loan portfolio
func (h *LoanHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	portfolio, err := h.loanService.GetPortfolio(r.Context(), userID, models.Role(role))
	if err != nil {
		h.logger.Warnf("Failed to get loans: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to get loans")
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "loans retrieved successfully", portfolio)
}

// GetByID handles retrieving a specific loan by ID
func (h *LoanHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	loanID, ok := pathID(w, r)
	if !ok {
		return
	}

	loan, err := h.loanService.GetByID(r.Context(), loanID, userID, models.Role(role))
	if err != nil {
		h.logger.Warnf("Failed to get loan: %v", err)
		utils.RespondWithError(w, loanErrorCode(err), "loan not found")
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "loan retrieved successfully", loan)
}

// GetSchedule handles retrieving the EMI schedule and summary for a loan
func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	loanID, ok := pathID(w, r)
	if !ok {
		return
	}

	emis, summary, err := h.loanService.GetSchedule(r.Context(), loanID, userID, models.Role(role))
	if err != nil {
		h.logger.Warnf("Failed to get EMI schedule: %v", err)
		utils.RespondWithError(w, loanErrorCode(err), "EMI schedule not found")
		return
	}

	response := map[string]interface{}{
		"emis":    emis,
		"summary": summary,
	}

	utils.RespondWithSuccess(w, http.StatusOK, "EMI schedule retrieved successfully", response)
}

// GetSummary handles retrieving only the derived repayment figures for a loan
func (h *LoanHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	loanID, ok := pathID(w, r)
	if !ok {
		return
	}

	_, summary, err := h.loanService.GetSchedule(r.Context(), loanID, userID, models.Role(role))
	if err != nil {
		h.logger.Warnf("Failed to get loan summary: %v", err)
		utils.RespondWithError(w, loanErrorCode(err), "loan not found")
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "loan summary retrieved successfully", summary)
}

// Disburse handles recording loan disbursement by the owning lender
func (h *LoanHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	lenderID, _, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	loanID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.loanService.Disburse(r.Context(), loanID, lenderID); err != nil {
		h.logger.Warnf("Failed to disburse loan: %v", err)
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "loan disbursed successfully", nil)
}

// GetStats handles retrieving portfolio-level statistics
func (h *LoanHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	stats, err := h.loanService.GetPortfolioStats(r.Context(), userID, models.Role(role))
	if err != nil {
		h.logger.Warnf("Failed to get portfolio stats: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to get statistics")
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "statistics retrieved successfully", stats)
}

// pathID parses the {id} path variable
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid ID")
		return 0, false
	}

	return id, true
}

// loanErrorCode maps access violations to 403 and everything else to 404
func loanErrorCode(err error) int {
	if errors.Is(err, service.ErrAccessDenied) {
		return http.StatusForbidden
	}
	return http.StatusNotFound
}
