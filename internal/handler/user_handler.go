package handler

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"microloan-service/configs"
	"microloan-service/internal/models"
	"microloan-service/internal/service"
	"microloan-service/pkg/utils"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService service.UserService
	logger      *logrus.Logger
	config      *configs.Config
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *logrus.Logger, config *configs.Config) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
		config:      config,
	}
}

// Register handles user registration
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	// Parse request body
	var userReg models.UserRegistration
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&userReg); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	// Register the user
	userID, err := h.userService.Register(r.Context(), &userReg)
	if err != nil {
		h.logger.Warnf("Failed to register user: %v", err)
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Return success response
	utils.RespondWithSuccess(w, http.StatusCreated, "registration received, awaiting admin approval", map[string]interface{}{
		"user_id": userID,
	})
}

// Login handles user login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	// Parse request body
	var loginReq models.UserLogin
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&loginReq); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	// Authenticate the user
	tokenResponse, err := h.userService.Login(r.Context(), &loginReq)
	if err != nil {
		h.logger.Warnf("Failed login attempt: %v", err)
		utils.RespondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	// Return success response
	utils.RespondWithSuccess(w, http.StatusOK, "login successful", tokenResponse)
}

// Profile handles retrieving the authenticated user's profile
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		h.logger.Warnf("Failed to get user: %v", err)
		utils.RespondWithError(w, http.StatusNotFound, "user not found")
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "profile retrieved successfully", user)
}

// UpdateProfile handles updating the authenticated user's profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	var user models.User
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&user); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	// A user can only update their own profile
	user.ID = userID

	if err := h.userService.Update(r.Context(), &user); err != nil {
		h.logger.Warnf("Failed to update user: %v", err)
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "profile updated successfully", nil)
}
