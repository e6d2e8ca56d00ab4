package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/paygate/internal/api/dto"
	"github.com/pratik-mahalle/paygate/internal/api/middleware"
	"github.com/pratik-mahalle/paygate/internal/auth"
	"github.com/pratik-mahalle/paygate/internal/config"
	"github.com/pratik-mahalle/paygate/internal/domain/session"
	"github.com/pratik-mahalle/paygate/internal/domain/user"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
	"github.com/pratik-mahalle/paygate/internal/pkg/logger"
	"github.com/pratik-mahalle/paygate/internal/pkg/utils"
	"github.com/pratik-mahalle/paygate/internal/pkg/validator"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userService user.Service
	sessions    session.Service
	issuer      *auth.Issuer
	config      *config.Config
	logger      *logger.Logger
	validator   *validator.Validator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	userService user.Service,
	sessions session.Service,
	issuer *auth.Issuer,
	cfg *config.Config,
	log *logger.Logger,
	val *validator.Validator,
) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		sessions:    sessions,
		issuer:      issuer,
		config:      cfg,
		logger:      log,
		validator:   val,
	}
}

// Signup handles user registration
// @Summary User registration
// @Description Register a new account and start a session
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.SignupRequest true "Registration details"
// @Success 201 {object} dto.AuthResponse "User successfully registered"
// @Failure 400 {object} utils.ErrorResponse "Invalid request or validation error"
// @Failure 409 {object} utils.ErrorResponse "Email already registered"
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	created, err := h.userService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	pair, err := h.sessions.Issue(r.Context(), created.ID, created.Email)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to issue tokens after signup")
		utils.WriteAppError(w, err)
		return
	}

	setAuthCookies(w, pair, h.issuer, h.config.IsProduction())
	middleware.AddLogField(w, "user_id", created.ID)

	utils.WriteSuccess(w, http.StatusCreated, dto.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         dto.ToUserDTO(created),
	})
}

// Login handles user login
// @Summary User login
// @Description Authenticate user with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.AuthResponse "Successfully authenticated"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Failure 401 {object} utils.ErrorResponse "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	authenticated, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.WithFields(map[string]interface{}{
			"email": user.NormalizeEmail(req.Email),
		}).Warn("Authentication failed")
		utils.WriteAppError(w, err)
		return
	}

	pair, err := h.sessions.Issue(r.Context(), authenticated.ID, authenticated.Email)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to issue tokens")
		utils.WriteAppError(w, err)
		return
	}

	setAuthCookies(w, pair, h.issuer, h.config.IsProduction())
	middleware.AddLogField(w, "user_id", authenticated.ID)

	utils.WriteSuccess(w, http.StatusOK, dto.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         dto.ToUserDTO(authenticated),
	})
}

// Refresh exchanges a refresh token for a new pair
// @Summary Refresh tokens
// @Description Rotate a refresh token. The presented token stops working.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest false "Refresh token, or the refreshToken cookie"
// @Success 200 {object} dto.TokenResponse "New token pair"
// @Failure 401 {object} utils.ErrorResponse "Refresh token revoked, expired or invalid"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshTokenRequest
	if err := decodeOptional(w, r, &req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if req.RefreshToken == "" {
		if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
			req.RefreshToken = cookie.Value
		}
	}
	if validationErrs := h.validator.Validate(req); len(validationErrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", validationErrs))
		return
	}

	pair, err := h.sessions.Rotate(r.Context(), req.RefreshToken)
	if err != nil {
		middleware.AddLogField(w, "refresh_error", err.Error())
		utils.WriteAppError(w, err)
		return
	}

	setAuthCookies(w, pair, h.issuer, h.config.IsProduction())
	utils.WriteSuccess(w, http.StatusOK, dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout revokes sessions and clears auth cookies. It always succeeds.
// @Summary User logout
// @Description An access token revokes every session of its user; a refresh token revokes only itself
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LogoutRequest false "Credentials to revoke"
// @Success 200 {object} utils.SuccessResponse "Successfully logged out"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req dto.LogoutRequest
	_ = decodeOptional(w, r, &req)

	if req.RefreshToken == "" {
		if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
			req.RefreshToken = cookie.Value
		}
	}

	// A token in the body wins over the one OptionalAuthMiddleware resolved
	userID, everywhere := middleware.GetUserID(r)
	if req.Token != "" {
		claims, err := h.issuer.VerifyAccess(req.Token)
		userID, everywhere = 0, err == nil
		if err == nil {
			userID = claims.UserID
		}
	}
	if everywhere {
		if err := h.sessions.RevokeAll(r.Context(), userID); err != nil {
			h.logger.ErrorWithErr(err, "Failed to revoke sessions on logout")
		}
		middleware.AddLogField(w, "user_id", userID)
	}
	if req.RefreshToken != "" {
		if err := h.sessions.RevokeOne(r.Context(), req.RefreshToken); err != nil {
			h.logger.ErrorWithErr(err, "Failed to revoke refresh token on logout")
		}
	}

	clearAuthCookies(w, h.config.IsProduction())
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Logged out successfully", nil)
}

// Google is reserved for federated sign-in
// @Summary Google sign-in
// @Tags Auth
// @Produce json
// @Failure 501 {object} utils.ErrorResponse "Not implemented"
// @Router /auth/google [post]
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	utils.WriteError(w, errors.NotImplemented("Google sign-in is not available"))
}

// Me returns the authenticated user
// @Summary Get current user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UserDTO "Current user"
// @Failure 401 {object} utils.ErrorResponse "Not authenticated"
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	u, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.ToUserDTO(u))
}
