package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/riskgate/internal/models"
	pkghttp "github.com/BradenHooton/riskgate/pkg/http"
)

const (
	messageChallenge   = "MFA Required"
	messageBlock       = "Account Locked due to suspicious activity"
	messageMFAVerified = "MFA Verified"
	messageMFAInvalid  = "Invalid MFA Code"
)

// LoginServiceInterface defines the login flow as seen by the transport
type LoginServiceInterface interface {
	Login(ctx context.Context, identity, secret string, lctx models.LoginContext) (*models.LoginResult, error)
}

// ChallengeServiceInterface defines the challenge verification flow
type ChallengeServiceInterface interface {
	Complete(ctx context.Context, code, challengeToken string) (*models.ChallengeResult, error)
}

// AuthHandler handles login and challenge verification requests
type AuthHandler struct {
	login     LoginServiceInterface
	challenge ChallengeServiceInterface
	ipConfig  *pkghttp.IPConfig
	logger    *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(login LoginServiceInterface, challenge ChallengeServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		login:     login,
		challenge: challenge,
		ipConfig:  ipConfig,
		logger:    logger,
	}
}

// Request DTOs

// LoginContextRequest is the client-supplied session context
type LoginContextRequest struct {
	DeviceID *string `json:"device_id,omitempty" validate:"omitempty,max=255"`
	IP       *string `json:"ip,omitempty" validate:"omitempty,ip"`
	Hour     *int    `json:"hour,omitempty" validate:"omitempty,min=0,max=23"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string              `json:"username" validate:"required,max=255"`
	Password string              `json:"password" validate:"required,max=1024"`
	Context  LoginContextRequest `json:"context"`
}

// VerifyChallengeRequest represents the request body for challenge verification
type VerifyChallengeRequest struct {
	Code           string `json:"code" validate:"required,max=16"`
	ChallengeToken string `json:"challenge_token,omitempty"`
}

// Response DTOs

// LoginResponse is returned for every credential-valid login
type LoginResponse struct {
	Status         models.Decision `json:"status"`
	RiskScore      int             `json:"risk_score"`
	Reasons        []string        `json:"reasons"`
	Message        string          `json:"message,omitempty"`
	AttemptID      string          `json:"attempt_id,omitempty"`
	AccessToken    string          `json:"access_token,omitempty"`
	ChallengeToken string          `json:"challenge_token,omitempty"`
}

// DenyResponse is returned when credentials or a second factor are rejected
type DenyResponse struct {
	Status  models.Decision `json:"status"`
	Reason  string          `json:"reason,omitempty"`
	Message string          `json:"message,omitempty"`
}

// ChallengeResponse is returned for a verified second factor
type ChallengeResponse struct {
	Status      models.Decision `json:"status"`
	Message     string          `json:"message"`
	AccessToken string          `json:"access_token,omitempty"`
}

// Login runs the risk-scored login flow
// @Summary Risk-scored login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} LoginResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} DenyResponse
// @Failure 503 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.login.Login(r.Context(), req.Username, req.Password, h.loginContext(r, req.Context))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredential):
			pkghttp.WriteJSON(w, http.StatusUnauthorized, DenyResponse{
				Status: models.DecisionDeny,
				Reason: "Invalid credentials",
			})
		case errors.Is(err, models.ErrHistoryUnavailable):
			pkghttp.WriteServiceUnavailable(w, "Login temporarily unavailable")
		default:
			h.logger.Error("login failed", slog.Any("error", err))
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	resp := LoginResponse{
		Status:         result.Decision,
		RiskScore:      result.RiskScore,
		Reasons:        result.Reasons,
		AttemptID:      result.AttemptID,
		AccessToken:    result.AccessToken,
		ChallengeToken: result.ChallengeToken,
	}
	if resp.Reasons == nil {
		resp.Reasons = []string{}
	}
	switch result.Decision {
	case models.DecisionChallenge:
		resp.Message = messageChallenge
	case models.DecisionBlock:
		resp.Message = messageBlock
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// VerifyChallenge checks a second-factor code
// @Summary Verify second factor
// @Accept json
// @Param request body VerifyChallengeRequest true "Challenge request"
// @Produce json
// @Success 200 {object} ChallengeResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} DenyResponse
// @Router /auth/verify-challenge [post]
func (h *AuthHandler) VerifyChallenge(w http.ResponseWriter, r *http.Request) {
	var req VerifyChallengeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.challenge.Complete(r.Context(), req.Code, req.ChallengeToken)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidChallenge):
			pkghttp.WriteJSON(w, http.StatusUnauthorized, DenyResponse{
				Status:  models.DecisionDeny,
				Message: messageMFAInvalid,
			})
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteJSON(w, http.StatusUnauthorized, DenyResponse{
				Status:  models.DecisionDeny,
				Message: "Invalid or expired challenge token",
			})
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ChallengeResponse{
		Status:      result.Decision,
		Message:     messageMFAVerified,
		AccessToken: result.AccessToken,
	})
}

// loginContext prefers the IP the client reported and falls back to the
// connection's address.
func (h *AuthHandler) loginContext(r *http.Request, req LoginContextRequest) models.LoginContext {
	lctx := models.LoginContext{
		DeviceFingerprint: req.DeviceID,
		IPAddress:         req.IP,
		Hour:              req.Hour,
	}
	if lctx.IPAddress == nil {
		if ip := pkghttp.ExtractClientIP(r, h.ipConfig); ip != "" {
			lctx.IPAddress = &ip
		}
	}
	return lctx
}
