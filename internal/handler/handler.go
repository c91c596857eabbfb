package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"microloan-service/configs"
	"microloan-service/internal/service"
	"microloan-service/pkg/utils"
)

// Dependencies contains handler dependencies
type Dependencies struct {
	Services *service.Service
	Logger   *logrus.Logger
	Config   *configs.Config
}

// Handler contains all HTTP handlers for the application
type Handler struct {
	User    *UserHandler
	Loan    *LoanHandler
	EMI     *EMIHandler
	Payment *PaymentHandler
	Trash   *TrashHandler
	Admin   *AdminHandler
}

// NewHandler creates a new Handler with all subhandlers
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		User:    NewUserHandler(deps.Services.User, deps.Logger, deps.Config),
		Loan:    NewLoanHandler(deps.Services.Loan, deps.Logger, deps.Config),
		EMI:     NewEMIHandler(deps.Services.EMI, deps.Logger, deps.Config),
		Payment: NewPaymentHandler(deps.Services.Payment, deps.Logger, deps.Config),
		Trash:   NewTrashHandler(deps.Services.Trash, deps.Logger, deps.Config),
		Admin:   NewAdminHandler(deps.Services.User, deps.Services.Trash, deps.Logger, deps.Config),
	}
}

// callerFromContext extracts the authenticated user's ID and role set by the
// auth middleware
func callerFromContext(w http.ResponseWriter, r *http.Request) (int, string, bool) {
	userID, ok := r.Context().Value("user_id").(int)
	if !ok {
		utils.RespondWithError(w, http.StatusInternalServerError, "user ID not found in context")
		return 0, "", false
	}

	role, ok := r.Context().Value("role").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusInternalServerError, "role not found in context")
		return 0, "", false
	}

	return userID, role, true
}
