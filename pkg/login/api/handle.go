package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/tendant/simple-auth/pkg/errors"
	"github.com/tendant/simple-auth/pkg/login"
	"github.com/tendant/simple-auth/pkg/response"
	tg "github.com/tendant/simple-auth/pkg/tokengenerator"
)

const (
	msgLoginSuccessful = "Login successful"
	msgResetRequested  = "If an account exists with that email, we will send a password reset link to it."
	msgResetCompleted  = "Password has been reset successfully"
	msgInvalidBody     = "Invalid request body"
)

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	LastLogin time.Time `json:"lastLogin"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

type Handle struct {
	loginService *login.LoginService
	resetService *login.PasswordResetService
	verifier     tg.Verifier
}

func NewHandle(loginService *login.LoginService, resetService *login.PasswordResetService, verifier tg.Verifier) Handle {
	return Handle{
		loginService: loginService,
		resetService: resetService,
		verifier:     verifier,
	}
}

// Routes mounts the auth endpoints. The public middlewares, typically the
// rate limiter, wrap only the unauthenticated POST routes.
func (h Handle) Routes(public ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(public...)
		r.Post("/login", h.PostLogin)
		r.Post("/forgot-password", h.PostForgotPassword)
		r.Post("/reset-password", h.PostResetPassword)
	})

	r.Group(func(r chi.Router) {
		r.Use(tg.Authenticator(h.verifier))
		r.Get("/me", h.GetMe)
	})

	return r
}

func (h Handle) PostLogin(w http.ResponseWriter, r *http.Request) {
	var data LoginRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		response.Error(w, r, errors.Validation(msgInvalidBody))
		return
	}

	result, err := h.loginService.Authenticate(r.Context(), data.Identifier, data.Password)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	var user User
	if err := copier.Copy(&user, &result.User); err != nil {
		response.Error(w, r, errors.InternalWrap(err, "failed to map user"))
		return
	}

	response.OK(w, r, msgLoginSuccessful, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      user,
	})
}

// PostForgotPassword answers the same 200 for known and unknown addresses.
// Delivery failures are logged by the service and hidden here; storage
// failures still surface as 500.
func (h Handle) PostForgotPassword(w http.ResponseWriter, r *http.Request) {
	var data ForgotPasswordRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		response.Error(w, r, errors.Validation(msgInvalidBody))
		return
	}

	err := h.resetService.RequestReset(r.Context(), data.Email)
	switch {
	case err == nil:
	case errors.IsCategory(err, errors.CategoryDependency):
		slog.Error("Password reset email not delivered", "err", err)
	default:
		response.Error(w, r, err)
		return
	}

	response.OK(w, r, msgResetRequested, nil)
}

func (h Handle) PostResetPassword(w http.ResponseWriter, r *http.Request) {
	var data ResetPasswordRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		response.Error(w, r, errors.Validation(msgInvalidBody))
		return
	}

	if err := h.resetService.ResetPassword(r.Context(), data.Token, data.Password); err != nil {
		response.Error(w, r, err)
		return
	}

	response.OK(w, r, msgResetCompleted, nil)
}

// GetMe returns the claims of the verified session token.
func (h Handle) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := tg.AuthUserFromContext(r.Context())
	if !ok {
		response.Error(w, r, errors.Unauthorized("Authentication required"))
		return
	}
	response.OK(w, r, "Authenticated", user)
}
