package signup

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"
	apperrors "github.com/tendant/settle-idm/pkg/errors"
)

type Handle struct {
	signupService *SignupService
}

func NewHandle(signupService *SignupService) *Handle {
	return &Handle{signupService: signupService}
}

// RegisterRoutes registers the registration forms, usually under /signup
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Post("/customer", h.PostCustomer)
	r.Post("/seller", h.PostSeller)
}

// PostCustomer handles POST /customer
func (h *Handle) PostCustomer(w http.ResponseWriter, r *http.Request) {
	h.signup(w, r, h.signupService.RegisterCustomer)
}

// PostSeller handles POST /seller
func (h *Handle) PostSeller(w http.ResponseWriter, r *http.Request) {
	h.signup(w, r, h.signupService.RegisterSeller)
}

type registerFunc func(ctx context.Context, req RegisterUserRequest) (*RegisterUserResult, error)

func (h *Handle) signup(w http.ResponseWriter, r *http.Request, register registerFunc) {
	var body SignupRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		slog.Warn("Failed to decode signup request", "error", err)
		apperrors.WriteError(w, r, apperrors.InvalidInput("body", "unable to parse request"))
		return
	}

	var req RegisterUserRequest
	if err := copier.Copy(&req, &body); err != nil {
		apperrors.WriteError(w, r, apperrors.Internal(err))
		return
	}

	result, err := register(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, SignupResponse{
		UserID:  result.UserID.String(),
		Role:    string(result.Role),
		Message: "Registration successful",
	})
}

// handleServiceError converts service errors to HTTP responses
func (h *Handle) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var signupErr *SignupError
	if !errors.As(err, &signupErr) {
		apperrors.WriteError(w, r, apperrors.Internal(err))
		return
	}

	statusCode := http.StatusBadRequest
	switch signupErr.Code {
	case ErrCodeRegistrationDisabled:
		statusCode = http.StatusForbidden
	case ErrCodeInvalidRequest:
		statusCode = http.StatusBadRequest
	case ErrCodeEmailExists:
		statusCode = http.StatusConflict
	case ErrCodeInternalError:
		statusCode = http.StatusInternalServerError
	}

	resp := apperrors.ErrorResponse{
		Code:    apperrors.ErrorCode(signupErr.Code),
		Message: signupErr.Message,
	}
	if len(signupErr.Details) > 0 {
		resp.Details = make(map[string]interface{}, len(signupErr.Details))
		for k, v := range signupErr.Details {
			resp.Details[k] = v
		}
	}
	render.Status(r, statusCode)
	render.JSON(w, r, resp)
}
