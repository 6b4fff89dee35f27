package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/2beens/ninjatraining/internal/telemetry/tracing"
	"github.com/2beens/ninjatraining/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=auth_test

type accountsService interface {
	SignUp(ctx context.Context, email, password string) (*User, error)
	SignIn(ctx context.Context, email, password string) (string, *User, error)
	SignOut(ctx context.Context, token string) (bool, error)
	User(ctx context.Context, userID uuid.UUID) (*User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, newPassword string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, recoveryToken, newPassword string) error
	Introspect(ctx context.Context, token, tokenType string) (*Introspection, error)
}

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type passwordRecoverRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type passwordUpdateRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type SignInResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type Handler struct {
	accounts accountsService
	validate *validator.Validate
}

func NewHandler(accounts accountsService) *Handler {
	return &Handler{
		accounts: accounts,
		validate: validator.New(),
	}
}

// decode reads a JSON body into req and validates it, writing the error response on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if !pkg.IsJSONRequest(r) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		log.Debugf("auth, unmarshal json params: %s", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			http.Error(w, "invalid field: "+validationErrs[0].Field(), http.StatusBadRequest)
			return false
		}
		http.Error(w, "invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.signup")
	defer span.End()

	var req signUpRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.accounts.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		log.Errorf("sign up: %s", err)
		http.Error(w, "sign up failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, user, http.StatusCreated)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.login")
	defer span.End()

	var req signInRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, user, err := h.accounts.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrWrongCredentials) {
			http.Error(w, "wrong email or password", http.StatusUnauthorized)
			return
		}
		log.Errorf("login: %s", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	log.Trace("new login success")
	pkg.WriteJSON(w, SignInResponse{Token: token, User: user}, http.StatusOK)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.logout")
	defer span.End()

	authToken := r.Header.Get(TokenHeader)
	if authToken == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	loggedOut, err := h.accounts.SignOut(ctx, authToken)
	if err != nil {
		log.Errorf("logout: %s", err)
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}
	if !loggedOut {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	pkg.WriteTextResponseOK(w, "logged-out")
}

func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.session")
	defer span.End()

	userID, ok := UserIDFrom(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	user, err := h.accounts.User(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, "no can do", http.StatusUnauthorized)
			return
		}
		log.Errorf("get session user: %s", err)
		http.Error(w, "get session failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, user, http.StatusOK)
}

func (h *Handler) HandlePasswordReset(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.password.reset")
	defer span.End()

	var req passwordResetRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.accounts.RequestPasswordReset(ctx, req.Email); err != nil {
		log.Errorf("request password reset: %s", err)
		http.Error(w, "password reset failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "if the account exists, a recovery e-mail is on its way")
}

func (h *Handler) HandlePasswordRecover(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.password.recover")
	defer span.End()

	var req passwordRecoverRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.accounts.ResetPassword(ctx, req.Token, req.Password); err != nil {
		if errors.Is(err, ErrInvalidRecoveryToken) {
			http.Error(w, "recovery link is invalid or expired", http.StatusBadRequest)
			return
		}
		log.Errorf("reset password: %s", err)
		http.Error(w, "password reset failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "password updated")
}

func (h *Handler) HandlePasswordUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.password.update")
	defer span.End()

	userID, ok := UserIDFrom(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req passwordUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.accounts.UpdatePassword(ctx, userID, req.Password); err != nil {
		log.Errorf("update password: %s", err)
		http.Error(w, "password update failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "password updated")
}

func (h *Handler) HandleIntrospect(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.introspect")
	defer span.End()

	token := r.URL.Query().Get("token")
	tokenType := r.URL.Query().Get("type")
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}
	if tokenType == "" {
		tokenType = TokenTypeSession
	}

	introspection, err := h.accounts.Introspect(ctx, token, tokenType)
	if err != nil {
		if errors.Is(err, ErrUnknownTokenType) {
			http.Error(w, "unknown token type", http.StatusBadRequest)
			return
		}
		log.Errorf("introspect token: %s", err)
		http.Error(w, "introspect failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, introspection, http.StatusOK)
}
